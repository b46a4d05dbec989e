package model

import "encoding/json"

// Position is a user's holding in a single symbol.
// Quantity and AveragePrice keep full float precision in memory and on disk;
// presentation rounding (4 and 2 decimals) happens only in MarshalJSON.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
}

// MarshalJSON rounds Quantity to 4 decimals and AveragePrice to 2.
func (p Position) MarshalJSON() ([]byte, error) {
	type plain Position
	out := plain(p)
	out.Quantity = Round(out.Quantity, 4)
	out.AveragePrice = Round(out.AveragePrice, 2)
	return json.Marshal(out)
}

// Portfolio is a snapshot of one user's open positions and cumulative
// realized P&L.
type Portfolio struct {
	Positions   []Position `json:"positions"`
	RealizedPnL float64    `json:"realized_pnl"`
}

// Position returns the position for symbol, if held.
func (pf *Portfolio) Position(symbol string) (Position, bool) {
	for _, p := range pf.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}

// MarshalJSON rounds RealizedPnL to 2 decimals and emits an empty array
// instead of null when there are no positions.
func (pf Portfolio) MarshalJSON() ([]byte, error) {
	type plain Portfolio
	out := plain(pf)
	if out.Positions == nil {
		out.Positions = []Position{}
	}
	out.RealizedPnL = Round(out.RealizedPnL, 2)
	return json.Marshal(out)
}
