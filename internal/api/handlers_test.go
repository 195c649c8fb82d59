package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zenigh/internal/compute"
	"zenigh/internal/indicator"
	"zenigh/internal/ingest"
	"zenigh/internal/model"
	"zenigh/internal/provider"
	"zenigh/internal/store/sqlite"
)

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

type fakeProvider struct {
	bars map[string][]provider.RawBar
}

func (f *fakeProvider) GetBars(ctx context.Context, req provider.PageRequest) (*provider.Page, error) {
	return &provider.Page{Bars: f.bars}, nil
}

func newTestServer(t *testing.T, p provider.BarProvider) (*Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(sqlite.Config{DBPath: filepath.Join(t.TempDir(), "api_test.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := indicator.NewEngine()
	srv := NewServer(
		store,
		nil,
		ingest.New(p, store, nil),
		compute.New(store, nil, engine, nil, 2),
		engine,
		[]string{"SPY"},
	)
	return srv, store
}

func seedBars(t *testing.T, store *sqlite.Store, n int) {
	t.Helper()
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		v := int64(1000 + i)
		close := 100 + float64(i%5)
		bars[i] = model.Bar{
			Symbol:    "SPY",
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      close - 0.5,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    &v,
		}
	}
	if _, err := store.UpsertBars(context.Background(), bars, model.Timeframe5Min); err != nil {
		t.Fatalf("seed bars: %v", err)
	}
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return out
}

// ─────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProvider{})
	rec := doRequest(t, srv, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("status field %v", body["status"])
	}
}

func TestSymbolsAndTimeframes(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProvider{})

	body := decodeBody(t, doRequest(t, srv, "GET", "/symbols", ""))
	symbols, _ := body["symbols"].([]any)
	if len(symbols) != 1 || symbols[0] != "SPY" {
		t.Errorf("symbols: %v", body["symbols"])
	}

	body = decodeBody(t, doRequest(t, srv, "GET", "/timeframes", ""))
	tfs, _ := body["timeframes"].([]any)
	if len(tfs) != 2 {
		t.Errorf("timeframes: %v", body["timeframes"])
	}
}

func TestIngest_EndToEnd(t *testing.T) {
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	raw := make([]provider.RawBar, 3)
	for i := range raw {
		raw[i] = provider.RawBar{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute).Format(time.RFC3339),
			Open:      100, High: 101, Low: 99, Close: 100.5,
		}
	}
	srv, store := newTestServer(t, &fakeProvider{bars: map[string][]provider.RawBar{"SPY": raw}})

	rec := doRequest(t, srv, "POST", "/ingest/2024-01-02/2024-01-03/5T", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	bars, err := store.ReadBars(context.Background(), "SPY", model.Timeframe5Min)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(bars) != 3 {
		t.Errorf("stored %d bars, want 3", len(bars))
	}
}

func TestIngest_RejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProvider{})

	if rec := doRequest(t, srv, "POST", "/ingest/not-a-date/2024-01-03", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status %d, want 400", rec.Code)
	}
	if rec := doRequest(t, srv, "POST", "/ingest/2024-01-03/2024-01-02", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range: status %d, want 400", rec.Code)
	}
	if rec := doRequest(t, srv, "POST", "/ingest/2024-01-02/2024-01-03/1H", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown timeframe: status %d, want 400", rec.Code)
	}
}

func TestData_MergesIndicators(t *testing.T) {
	srv, store := newTestServer(t, &fakeProvider{})
	seedBars(t, store, 20)

	// Compute first so /data has snapshots to merge.
	if rec := doRequest(t, srv, "POST", "/ta/calculate", ""); rec.Code != http.StatusOK {
		t.Fatalf("/ta/calculate: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec := doRequest(t, srv, "GET", "/data/SPY/5T", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 20 {
		t.Fatalf("count %v, want 20", body["count"])
	}
	bars := body["bars"].([]any)
	last := bars[len(bars)-1].(map[string]any)
	indicators, ok := last["indicators"].(map[string]any)
	if !ok {
		t.Fatalf("last bar has no indicators: %v", last)
	}
	if indicators["EMA9"] == nil {
		t.Error("EMA9 should be computed at the last bar")
	}
}

func TestTA_ReturnsSnapshots(t *testing.T) {
	srv, store := newTestServer(t, &fakeProvider{})
	seedBars(t, store, 15)
	doRequest(t, srv, "POST", "/ta/calculate", "")

	rec := doRequest(t, srv, "GET", "/ta/SPY/5T", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 15 {
		t.Errorf("count %v, want 15", body["count"])
	}
	snaps := body["snapshots"].([]any)
	first := snaps[0].(map[string]any)
	if first["data_points_used"].(float64) != 15 {
		t.Errorf("data_points_used %v, want 15", first["data_points_used"])
	}
	// Warm-up values serialize as explicit nulls, not omissions.
	indicators := first["indicators"].(map[string]any)
	if _, present := indicators["EMA9"]; !present {
		t.Error("EMA9 key must be present at warm-up bars")
	}
	if indicators["EMA9"] != nil {
		t.Errorf("EMA9 at first bar should be null, got %v", indicators["EMA9"])
	}
}

func TestCalculate_AdHoc(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProvider{})

	body := `{
		"data": {"close": [100, 102, 101, 103, 105, 107, 106, 108, 110, 111]},
		"params": {
			"SMA5": {"function": "SMA", "params": {"period": 5}},
			"BAD":  {"function": "NOPE"}
		}
	}`
	rec := doRequest(t, srv, "POST", "/calculate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["success"].(bool) {
		t.Error("success must be false when any indicator failed")
	}
	errs := resp["errors"].(map[string]any)
	if _, ok := errs["BAD"]; !ok {
		t.Errorf("expected BAD in errors, got %v", errs)
	}
	results := resp["results"].(map[string]any)
	sma, ok := results["SMA5"].(map[string]any)
	if !ok {
		t.Fatalf("expected SMA5 in results, got keys %v", results)
	}
	values := sma["values"].([]any)
	if len(values) != 10 {
		t.Fatalf("SMA5 length %d, want 10", len(values))
	}
	// Warm-up serializes as nulls, computed values as numbers.
	if values[3] != nil {
		t.Errorf("values[3] should be null, got %v", values[3])
	}
	if values[4] == nil {
		t.Error("values[4] should be computed")
	}
}

func TestCalculate_EmptyClose(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProvider{})
	body := `{"data": {"close": []}, "params": {"SMA5": {"function": "SMA", "params": {"period": 5}}}}`
	rec := doRequest(t, srv, "POST", "/calculate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	resp := decodeBody(t, rec)
	if resp["success"].(bool) {
		t.Error("empty close must fail the requested indicators")
	}
}

func TestLatest_WithoutCache(t *testing.T) {
	srv, _ := newTestServer(t, &fakeProvider{})
	rec := doRequest(t, srv, "GET", "/latest/SPY/5T", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503", rec.Code)
	}
}
