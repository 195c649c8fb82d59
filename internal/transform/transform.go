// Package transform normalizes provider-native bar records into canonical
// bars ready for the time-series store.
package transform

import (
	"fmt"
	"sort"
	"time"

	"zenigh/internal/model"
	"zenigh/internal/provider"
)

// ParseError reports a malformed provider record. A single bad timestamp
// fails the whole transform so a partially-normalized batch is never stored.
type ParseError struct {
	Symbol string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse bar for %s: bad timestamp %q: %v", e.Symbol, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Bars flattens a per-symbol map of raw records into one ordered slice of
// canonical bars. Symbols are visited in sorted order so the output is
// deterministic; within a symbol, page order is preserved. Optional fields
// absent on the wire stay nil on the canonical bar.
func Bars(raw map[string][]provider.RawBar) ([]model.Bar, error) {
	symbols := make([]string, 0, len(raw))
	for symbol := range raw {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	total := 0
	for _, symbol := range symbols {
		total += len(raw[symbol])
	}

	bars := make([]model.Bar, 0, total)
	for _, symbol := range symbols {
		for _, rb := range raw[symbol] {
			ts, err := time.Parse(time.RFC3339, rb.Timestamp)
			if err != nil {
				return nil, &ParseError{Symbol: symbol, Raw: rb.Timestamp, Err: err}
			}
			bars = append(bars, model.Bar{
				Symbol:     symbol,
				Timestamp:  ts.UTC(),
				Open:       rb.Open,
				High:       rb.High,
				Low:        rb.Low,
				Close:      rb.Close,
				Volume:     rb.Volume,
				TradeCount: rb.TradeCount,
				VWAP:       rb.VWAP,
			})
		}
	}
	return bars, nil
}
