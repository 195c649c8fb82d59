package model

import (
	"encoding/json"
	"time"
)

// IndicatorValues maps an indicator key to its computed value at one bar.
// A value is either a scalar (*float64) for single-output indicators or a
// map[string]*float64 record for multi-output ones (e.g. MACD →
// {macd, signal, histogram}). A nil scalar or nil record entry means the
// value is absent at this bar (warm-up), which is distinct from zero.
type IndicatorValues map[string]any

// Snapshot is one persisted row of computed indicator values for a single
// (symbol, timeframe, timestamp). Whole rows are replaced on recomputation;
// individual indicator entries are never updated in place.
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Timestamp time.Time `json:"timestamp"`

	Indicators IndicatorValues `json:"indicators"`

	// Signals is reserved for future alerting logic and is always null.
	Signals json.RawMessage `json:"signals"`

	// DataPointsUsed is the length of the bar series the computation ran over.
	DataPointsUsed int `json:"data_points_used"`
}

// JSON returns the JSON-encoded snapshot (ignoring errors for cache usage).
func (s *Snapshot) JSON() []byte {
	out, _ := json.Marshal(s)
	return out
}
