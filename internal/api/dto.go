package api

import (
	"time"

	"zenigh/internal/indicator"
	"zenigh/internal/model"
)

// BarOut is the REST representation of one stored bar. Optional fields
// serialize as null when the provider omitted them.
type BarOut struct {
	Symbol     string                `json:"symbol"`
	Timestamp  string                `json:"ts"`
	Open       float64               `json:"open"`
	High       float64               `json:"high"`
	Low        float64               `json:"low"`
	Close      float64               `json:"close"`
	Volume     *int64                `json:"volume"`
	TradeCount *int64                `json:"trade_count"`
	VWAP       *float64              `json:"vwap"`
	Indicators model.IndicatorValues `json:"indicators,omitempty"`
}

func barOut(b model.Bar) BarOut {
	return BarOut{
		Symbol:     b.Symbol,
		Timestamp:  b.Timestamp.UTC().Format(time.RFC3339),
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     b.Volume,
		TradeCount: b.TradeCount,
		VWAP:       b.VWAP,
	}
}

// SnapshotOut is the REST representation of one indicator snapshot.
type SnapshotOut struct {
	Symbol         string                `json:"symbol"`
	Timeframe      string                `json:"timeframe"`
	Timestamp      string                `json:"ts"`
	Indicators     model.IndicatorValues `json:"indicators"`
	Signals        any                   `json:"signals"`
	DataPointsUsed int                   `json:"data_points_used"`
}

func snapshotOut(s model.Snapshot) SnapshotOut {
	out := SnapshotOut{
		Symbol:         s.Symbol,
		Timeframe:      string(s.Timeframe),
		Timestamp:      s.Timestamp.UTC().Format(time.RFC3339),
		Indicators:     s.Indicators,
		DataPointsUsed: s.DataPointsUsed,
	}
	if len(s.Signals) > 0 {
		out.Signals = s.Signals
	}
	return out
}

// OHLCVData carries caller-supplied input channels for POST /calculate.
// Open, high, low and volume may be empty when the requested indicators
// only consume the close series.
type OHLCVData struct {
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
}

// CalculateRequest is the body of POST /calculate: an ad hoc indicator run
// over caller-provided data, nothing read from or written to storage.
type CalculateRequest struct {
	Data   OHLCVData                   `json:"data"`
	Params map[string]indicator.Config `json:"params"`
}

// CalculateResponse mirrors the engine's partial-failure contract: success
// holds iff errors is empty.
type CalculateResponse struct {
	Success bool                        `json:"success"`
	Results map[string]indicator.Result `json:"results"`
	Errors  map[string]string           `json:"errors,omitempty"`
}

// LatestOut is the REST representation of the cached latest bar + snapshot.
type LatestOut struct {
	Bar      *BarOut      `json:"bar"`
	Snapshot *SnapshotOut `json:"snapshot"`
}
