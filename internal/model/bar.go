// Package model defines the canonical market-data types shared by every
// layer: OHLCV bars, timeframes, and per-bar indicator snapshots.
package model

import (
	"encoding/json"
	"time"
)

// Bar represents one canonical OHLCV observation for a symbol.
// Volume, TradeCount and VWAP are pointers because providers may omit them;
// nil means "not supplied", never zero. (symbol, timestamp) is unique within
// a timeframe's table.
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"` // UTC
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     *int64    `json:"volume"`
	TradeCount *int64    `json:"trade_count"`
	VWAP       *float64  `json:"vwap"`
}

// Key returns the natural key for this bar: "symbol@timestamp".
func (b *Bar) Key() string {
	return b.Symbol + "@" + b.Timestamp.UTC().Format(time.RFC3339Nano)
}

// JSON returns the JSON-encoded bar (ignoring errors for cache usage).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}
