package model

import "time"

// Quote represents the latest simulated quote for a stock symbol.
// Price fields carry at most 2 decimal places and ChangePercent at most 3;
// the market rounds them when it applies a tick, so quotes serialize as-is.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	UpdatedAt     time.Time `json:"updated_at"` // UTC timestamp of the last tick
}
