// Package compute runs indicator computation over stored bars: for each
// symbol/timeframe pair it loads the full history, evaluates the configured
// indicator set, re-aligns the outputs per bar and persists the snapshots.
package compute

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"zenigh/internal/indicator"
	"zenigh/internal/metrics"
	"zenigh/internal/model"
	"zenigh/internal/store/redis"
	"zenigh/internal/store/sqlite"
)

// PairResult records one computed symbol/timeframe pair. IndicatorErrors
// carries per-key failures that were isolated inside the batch; the pair
// itself still computed and persisted the keys that succeeded.
type PairResult struct {
	Symbol          string            `json:"symbol"`
	Timeframe       model.Timeframe   `json:"timeframe"`
	Snapshots       int               `json:"snapshots"`
	IndicatorErrors map[string]string `json:"indicator_errors,omitempty"`
}

// PairSkip records a pair with no stored bars. Not an error: the symbol may
// simply not have been ingested for that timeframe yet.
type PairSkip struct {
	Symbol    string          `json:"symbol"`
	Timeframe model.Timeframe `json:"timeframe"`
}

// PairError records a pair whose computation run failed outright.
type PairError struct {
	Symbol    string          `json:"symbol"`
	Timeframe model.Timeframe `json:"timeframe"`
	Err       error           `json:"-"`
	Message   string          `json:"error"`
}

// Summary is the outcome of one computation run. Slices are sorted by
// symbol then timeframe so identical runs produce identical summaries.
type Summary struct {
	Computed []PairResult `json:"computed"`
	Skipped  []PairSkip   `json:"skipped,omitempty"`
	Failed   []PairError  `json:"failed,omitempty"`
}

// OK reports whether no pair failed outright.
func (s Summary) OK() bool { return len(s.Failed) == 0 }

// Orchestrator fans symbol/timeframe pairs out over a bounded worker pool.
type Orchestrator struct {
	store   *sqlite.Store
	cache   *redis.Cache
	engine  *indicator.Engine
	metrics *metrics.Metrics
	workers int
}

// New builds a computation orchestrator. cache and m may be nil; workers
// below 1 is clamped to 1.
func New(store *sqlite.Store, cache *redis.Cache, engine *indicator.Engine, m *metrics.Metrics, workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{store: store, cache: cache, engine: engine, metrics: m, workers: workers}
}

// Run computes specs over every symbol/timeframe pair. A nil specs map
// selects the default indicator universe. Pairs run concurrently, bounded
// by the worker count; each pair is isolated, so one failing pair never
// aborts the rest.
func (o *Orchestrator) Run(ctx context.Context, symbols []string, tfs []model.Timeframe, specs map[string]indicator.Config) Summary {
	if specs == nil {
		specs = indicator.DefaultSpecs()
	}

	type pair struct {
		symbol string
		tf     model.Timeframe
	}
	pairs := make([]pair, 0, len(symbols)*len(tfs))
	for _, symbol := range symbols {
		for _, tf := range tfs {
			pairs = append(pairs, pair{symbol, tf})
		}
	}

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
		sem     = make(chan struct{}, o.workers)
	)
	for _, p := range pairs {
		wg.Add(1)
		sem <- struct{}{}
		go func(p pair) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := o.runPair(ctx, p.symbol, p.tf, specs)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				if o.metrics != nil {
					o.metrics.ComputeFailures.WithLabelValues(string(p.tf)).Inc()
				}
				summary.Failed = append(summary.Failed, PairError{
					Symbol: p.symbol, Timeframe: p.tf, Err: err, Message: err.Error(),
				})
			case result == nil:
				summary.Skipped = append(summary.Skipped, PairSkip{Symbol: p.symbol, Timeframe: p.tf})
			default:
				summary.Computed = append(summary.Computed, *result)
			}
		}(p)
	}
	wg.Wait()

	sortSummary(&summary)
	return summary
}

// runPair computes one symbol/timeframe pair. A nil result with nil error
// means the pair had no stored bars.
func (o *Orchestrator) runPair(ctx context.Context, symbol string, tf model.Timeframe, specs map[string]indicator.Config) (*PairResult, error) {
	bars, err := o.store.ReadBars(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		slog.Info("no bars stored, skipping", "symbol", symbol, "timeframe", string(tf))
		return nil, nil
	}

	in := indicator.InputsFromBars(bars)

	computeStart := time.Now()
	results, errs := o.engine.ComputeMany(in, specs)
	if o.metrics != nil {
		o.metrics.IndicatorComputeDur.Observe(time.Since(computeStart).Seconds())
		o.metrics.IndicatorErrors.Add(float64(len(errs)))
	}
	for key, err := range errs {
		slog.Warn("indicator failed", "symbol", symbol, "timeframe", string(tf), "indicator", key, "error", err)
	}

	perBar := indicator.Realign(results, len(bars))
	snaps := make([]model.Snapshot, len(bars))
	for i, bar := range bars {
		snaps[i] = model.Snapshot{
			Symbol:         symbol,
			Timeframe:      tf,
			Timestamp:      bar.Timestamp,
			Indicators:     perBar[i],
			DataPointsUsed: len(bars),
		}
	}

	commitStart := time.Now()
	n, err := o.store.UpsertSnapshots(ctx, snaps)
	if err != nil {
		return nil, err
	}
	if o.metrics != nil {
		o.metrics.SQLiteCommitDur.Observe(time.Since(commitStart).Seconds())
		o.metrics.SnapshotsWritten.WithLabelValues(string(tf)).Add(float64(n))
	}

	o.cacheLatest(ctx, symbol, tf, bars, snaps)

	result := &PairResult{Symbol: symbol, Timeframe: tf, Snapshots: n}
	if len(errs) > 0 {
		result.IndicatorErrors = make(map[string]string, len(errs))
		for key, err := range errs {
			result.IndicatorErrors[key] = err.Error()
		}
	}
	slog.Info("computation complete",
		"symbol", symbol, "timeframe", string(tf), "snapshots", n, "indicator_errors", len(errs))
	return result, nil
}

// cacheLatest publishes the newest bar and snapshot of the pair. Best
// effort: the cache logs its own failures and never fails the run.
func (o *Orchestrator) cacheLatest(ctx context.Context, symbol string, tf model.Timeframe, bars []model.Bar, snaps []model.Snapshot) {
	if o.cache == nil || len(bars) == 0 {
		return
	}
	start := time.Now()
	o.cache.SetLatest(ctx, symbol, tf, redis.Latest{
		Bar:      &bars[len(bars)-1],
		Snapshot: &snaps[len(snaps)-1],
	})
	if o.metrics != nil {
		o.metrics.RedisWriteDur.Observe(time.Since(start).Seconds())
	}
}

func sortSummary(s *Summary) {
	sort.Slice(s.Computed, func(i, j int) bool {
		if s.Computed[i].Symbol != s.Computed[j].Symbol {
			return s.Computed[i].Symbol < s.Computed[j].Symbol
		}
		return s.Computed[i].Timeframe < s.Computed[j].Timeframe
	})
	sort.Slice(s.Skipped, func(i, j int) bool {
		if s.Skipped[i].Symbol != s.Skipped[j].Symbol {
			return s.Skipped[i].Symbol < s.Skipped[j].Symbol
		}
		return s.Skipped[i].Timeframe < s.Skipped[j].Timeframe
	})
	sort.Slice(s.Failed, func(i, j int) bool {
		if s.Failed[i].Symbol != s.Failed[j].Symbol {
			return s.Failed[i].Symbol < s.Failed[j].Symbol
		}
		return s.Failed[i].Timeframe < s.Failed[j].Timeframe
	})
}
