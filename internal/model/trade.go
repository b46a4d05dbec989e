package model

import (
	"encoding/json"
	"strings"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalizes a raw side string. ok is false for anything other
// than BUY or SELL (case-insensitive).
func ParseSide(raw string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// TradeResult is the outcome of an executed trade: the fill itself, the
// account balance reported after the funds movement, and the user's
// portfolio after the position update.
type TradeResult struct {
	UserID         string    `json:"user_id"`
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	Quantity       float64   `json:"quantity"`
	Price          float64   `json:"price"`
	Total          float64   `json:"total"`
	Balance        float64   `json:"balance"`
	Portfolio      Portfolio `json:"portfolio"`
	RealizedChange float64   `json:"realized_change"` // realized P&L from this trade only
}

// MarshalJSON applies presentation rounding: quantity to 4 decimals,
// money fields to 2.
func (t TradeResult) MarshalJSON() ([]byte, error) {
	type plain TradeResult
	out := plain(t)
	out.Quantity = Round(out.Quantity, 4)
	out.Price = Round(out.Price, 2)
	out.Total = Round(out.Total, 2)
	out.Balance = Round(out.Balance, 2)
	out.RealizedChange = Round(out.RealizedChange, 2)
	return json.Marshal(out)
}
