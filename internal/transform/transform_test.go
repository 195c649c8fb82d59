package transform

import (
	"errors"
	"testing"
	"time"

	"zenigh/internal/provider"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func TestBars_Normalizes(t *testing.T) {
	raw := map[string][]provider.RawBar{
		"SPY": {
			{Timestamp: "2024-01-02T09:30:00Z", Open: 470.1, High: 470.5, Low: 469.9, Close: 470.3,
				Volume: i64(120000), TradeCount: i64(900), VWAP: f64(470.2)},
			{Timestamp: "2024-01-02T09:35:00Z", Open: 470.3, High: 470.8, Low: 470.2, Close: 470.6},
		},
	}

	bars, err := Bars(raw)
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	b := bars[0]
	if b.Symbol != "SPY" {
		t.Errorf("symbol: got %q", b.Symbol)
	}
	want := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	if !b.Timestamp.Equal(want) {
		t.Errorf("timestamp: got %v, want %v", b.Timestamp, want)
	}
	if b.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp not normalized to UTC: %v", b.Timestamp.Location())
	}
	if b.Volume == nil || *b.Volume != 120000 {
		t.Errorf("volume: got %v", b.Volume)
	}

	// Fields absent in the raw record map to nil, not zero.
	b2 := bars[1]
	if b2.Volume != nil || b2.TradeCount != nil || b2.VWAP != nil {
		t.Errorf("absent fields must be nil: v=%v n=%v vw=%v", b2.Volume, b2.TradeCount, b2.VWAP)
	}
}

func TestBars_DeterministicSymbolOrder(t *testing.T) {
	raw := map[string][]provider.RawBar{
		"QQQ": {{Timestamp: "2024-01-02T09:30:00Z", Close: 1}},
		"AAPL": {
			{Timestamp: "2024-01-02T09:30:00Z", Close: 2},
			{Timestamp: "2024-01-02T09:35:00Z", Close: 3},
		},
		"SPY": {{Timestamp: "2024-01-02T09:30:00Z", Close: 4}},
	}

	bars, err := Bars(raw)
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}
	gotOrder := make([]string, len(bars))
	for i, b := range bars {
		gotOrder[i] = b.Symbol
	}
	wantOrder := []string{"AAPL", "AAPL", "QQQ", "SPY"}
	for i, want := range wantOrder {
		if gotOrder[i] != want {
			t.Fatalf("bar %d: got symbol %s, want %s (order %v)", i, gotOrder[i], want, gotOrder)
		}
	}
}

func TestBars_MalformedTimestampFailsWholeTransform(t *testing.T) {
	raw := map[string][]provider.RawBar{
		"SPY": {
			{Timestamp: "2024-01-02T09:30:00Z", Close: 1},
			{Timestamp: "yesterday-ish", Close: 2},
		},
	}

	bars, err := Bars(raw)
	if err == nil {
		t.Fatal("expected ParseError")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Symbol != "SPY" || perr.Raw != "yesterday-ish" {
		t.Errorf("error must name the offending symbol and raw value, got %+v", perr)
	}
	if bars != nil {
		t.Errorf("expected no partial result, got %d bars", len(bars))
	}
}
