package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"zenigh/internal/model"
	"zenigh/internal/provider"
	"zenigh/internal/store/sqlite"
)

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(sqlite.Config{DBPath: filepath.Join(t.TempDir(), "ingest_test.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func i64(v int64) *int64 { return &v }

// fakeProvider serves canned pages per timeframe and can fail one of them.
type fakeProvider struct {
	pages  map[model.Timeframe]*provider.Page
	failTF model.Timeframe
	calls  int
}

func (f *fakeProvider) GetBars(ctx context.Context, req provider.PageRequest) (*provider.Page, error) {
	f.calls++
	if req.Timeframe == f.failTF {
		return nil, &provider.Error{Status: 502, Msg: "upstream unavailable"}
	}
	page, ok := f.pages[req.Timeframe]
	if !ok {
		return &provider.Page{Bars: map[string][]provider.RawBar{}}, nil
	}
	return page, nil
}

func rawBars(n int, start time.Time, step time.Duration) []provider.RawBar {
	bars := make([]provider.RawBar, n)
	for i := range bars {
		bars[i] = provider.RawBar{
			Timestamp: start.Add(time.Duration(i) * step).UTC().Format(time.RFC3339),
			Open:      100, High: 101, Low: 99, Close: 100.5,
			Volume: i64(int64(1000 + i)),
		}
	}
	return bars
}

// ─────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────

func TestRun_WritesBarsPerTimeframe(t *testing.T) {
	store := openTestStore(t)
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

	p := &fakeProvider{pages: map[model.Timeframe]*provider.Page{
		model.Timeframe5Min: {Bars: map[string][]provider.RawBar{
			"SPY": rawBars(4, start, 5*time.Minute),
		}},
		model.Timeframe15Min: {Bars: map[string][]provider.RawBar{
			"SPY": rawBars(2, start, 15*time.Minute),
		}},
	}}

	summary := New(p, store, nil).Run(context.Background(), start, start.Add(time.Hour), model.Timeframes())

	if !summary.OK() {
		t.Fatalf("expected clean run, failed: %+v", summary.Failed)
	}
	counts := map[model.Timeframe]int{}
	for _, s := range summary.Succeeded {
		counts[s.Timeframe] = s.Bars
	}
	if counts[model.Timeframe5Min] != 4 || counts[model.Timeframe15Min] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}

	got, err := store.ReadBars(context.Background(), "SPY", model.Timeframe5Min)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("5T store holds %d bars, want 4", len(got))
	}
}

func TestRun_IsolatesTimeframeFailure(t *testing.T) {
	store := openTestStore(t)
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

	p := &fakeProvider{
		pages: map[model.Timeframe]*provider.Page{
			model.Timeframe5Min: {Bars: map[string][]provider.RawBar{
				"SPY": rawBars(3, start, 5*time.Minute),
			}},
		},
		failTF: model.Timeframe15Min,
	}

	summary := New(p, store, nil).Run(context.Background(), start, start.Add(time.Hour), model.Timeframes())

	if summary.OK() {
		t.Fatal("run with a failing timeframe must not report OK")
	}
	if len(summary.Succeeded) != 1 || summary.Succeeded[0].Timeframe != model.Timeframe5Min {
		t.Errorf("5T should still succeed, got %+v", summary.Succeeded)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].Timeframe != model.Timeframe15Min {
		t.Fatalf("expected exactly the 15T failure, got %+v", summary.Failed)
	}
	if summary.Failed[0].Message == "" {
		t.Error("failure must carry the error message")
	}

	// The failing timeframe wrote nothing.
	got, err := store.ReadBars(context.Background(), "SPY", model.Timeframe15Min)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("15T store should be empty, got %d bars", len(got))
	}
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

	p := &fakeProvider{pages: map[model.Timeframe]*provider.Page{
		model.Timeframe5Min: {Bars: map[string][]provider.RawBar{
			"SPY": rawBars(3, start, 5*time.Minute),
		}},
	}}

	orch := New(p, store, nil)
	tfs := []model.Timeframe{model.Timeframe5Min}
	for i := 0; i < 2; i++ {
		if summary := orch.Run(context.Background(), start, start.Add(time.Hour), tfs); !summary.OK() {
			t.Fatalf("run %d failed: %+v", i, summary.Failed)
		}
	}

	got, err := store.ReadBars(context.Background(), "SPY", model.Timeframe5Min)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("re-running the same window duplicated rows: %d bars, want 3", len(got))
	}
}

func TestRun_EmptyWindow(t *testing.T) {
	store := openTestStore(t)
	p := &fakeProvider{}
	start := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	summary := New(p, store, nil).Run(context.Background(), start, start.Add(time.Hour), []model.Timeframe{model.Timeframe5Min})
	if !summary.OK() {
		t.Fatalf("empty window must succeed, failed: %+v", summary.Failed)
	}
	if summary.Succeeded[0].Bars != 0 {
		t.Errorf("expected 0 bars, got %d", summary.Succeeded[0].Bars)
	}
}
