// Package provider defines the upstream market-data capability: a paginated
// bar endpoint returning per-symbol lists of raw OHLCV records plus an
// opaque continuation token. Concrete clients live in subpackages.
package provider

import (
	"context"
	"fmt"
	"time"

	"zenigh/internal/model"
)

// RawBar is one provider-native bar record. Field names follow the wire
// format (t/o/h/l/c/v/n/vw). Volume, trade count and VWAP are optional on
// the wire; absence degrades to nil, never to zero.
type RawBar struct {
	Timestamp  string   `json:"t"` // ISO-8601, normally "Z"-suffixed
	Open       float64  `json:"o"`
	High       float64  `json:"h"`
	Low        float64  `json:"l"`
	Close      float64  `json:"c"`
	Volume     *int64   `json:"v,omitempty"`
	TradeCount *int64   `json:"n,omitempty"`
	VWAP       *float64 `json:"vw,omitempty"`
}

// PageRequest describes one page fetch. PageToken is empty for the first
// page and carries the provider's continuation token afterwards.
type PageRequest struct {
	Start     time.Time
	End       time.Time
	Timeframe model.Timeframe
	PageToken string
}

// Page is one page of results: per-symbol bar lists (chronological within
// the page) and the token for the next page, empty when exhausted.
type Page struct {
	Bars          map[string][]RawBar `json:"bars"`
	NextPageToken string              `json:"next_page_token"`
}

// BarProvider is the consumed upstream capability.
type BarProvider interface {
	// GetBars fetches a single page of bars.
	GetBars(ctx context.Context, req PageRequest) (*Page, error)
}

// Error reports a provider failure: transport error, non-2xx response, or a
// malformed payload. Status is zero when no HTTP response was received.
type Error struct {
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider: status %d: %s", e.Status, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider: %s: %v", e.Msg, e.Err)
	}
	return "provider: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }
