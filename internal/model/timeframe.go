package model

import (
	"errors"
	"fmt"
)

// Timeframe is an enumerated bar bucket size. Each timeframe maps to its own
// physical bar table; the set is fixed at configuration time and not
// user-extensible at runtime.
type Timeframe string

const (
	Timeframe5Min  Timeframe = "5T"
	Timeframe15Min Timeframe = "15T"
)

// ErrUnknownTimeframe is returned for a timeframe outside the configured set.
// It is a configuration error and fails fast before storage is touched.
var ErrUnknownTimeframe = errors.New("unknown timeframe")

var timeframeTables = map[Timeframe]string{
	Timeframe5Min:  "market_data_5m",
	Timeframe15Min: "market_data_15m",
}

// Timeframes returns all configured timeframes in a stable order.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe5Min, Timeframe15Min}
}

// Valid reports whether tf is part of the configured set.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeTables[tf]
	return ok
}

// Table returns the physical bar table for tf, or ErrUnknownTimeframe.
func (tf Timeframe) Table() (string, error) {
	table, ok := timeframeTables[tf]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeframe, string(tf))
	}
	return table, nil
}
