package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the ingestion and compute pipeline.
type Metrics struct {
	// Ingestion
	PagesFetched   prometheus.Counter
	BarsIngested   *prometheus.CounterVec // labels: tf
	IngestFailures *prometheus.CounterVec // labels: tf
	FetchDur       prometheus.Histogram

	// Storage
	SQLiteCommitDur prometheus.Histogram
	RedisWriteDur   prometheus.Histogram

	// Indicator computation
	IndicatorComputeDur prometheus.Histogram
	SnapshotsWritten    *prometheus.CounterVec // labels: tf
	ComputeFailures     *prometheus.CounterVec // labels: tf
	IndicatorErrors     prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zenigh_pages_fetched_total",
			Help: "Total provider pages fetched",
		}),
		BarsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenigh_bars_ingested_total",
			Help: "Total bars written to storage (by timeframe)",
		}, []string{"tf"}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenigh_ingest_failures_total",
			Help: "Ingestion runs that failed (by timeframe)",
		}, []string{"tf"}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zenigh_fetch_duration_seconds",
			Help:    "Provider fetch latency per timeframe, all pages",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zenigh_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zenigh_redis_write_duration_seconds",
			Help:    "Redis latest-snapshot write latency",
			Buckets: prometheus.DefBuckets,
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zenigh_indicator_compute_duration_seconds",
			Help:    "Indicator engine compute latency per symbol/timeframe pair",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		SnapshotsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenigh_snapshots_written_total",
			Help: "Total per-bar indicator snapshots written (by timeframe)",
		}, []string{"tf"}),
		ComputeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenigh_compute_failures_total",
			Help: "Symbol/timeframe computation runs that failed (by timeframe)",
		}, []string{"tf"}),
		IndicatorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zenigh_indicator_errors_total",
			Help: "Individual indicator keys that failed inside a batch",
		}),
	}

	prometheus.MustRegister(
		m.PagesFetched,
		m.BarsIngested,
		m.IngestFailures,
		m.FetchDur,
		m.SQLiteCommitDur,
		m.RedisWriteDur,
		m.IndicatorComputeDur,
		m.SnapshotsWritten,
		m.ComputeFailures,
		m.IndicatorErrors,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	SQLiteOK       bool      `json:"sqlite_ok"`
	RedisConnected bool      `json:"redis_connected"`
	LastIngestTime time.Time `json:"last_ingest_time"`
	EnabledTFs     []string  `json:"enabled_tfs"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastIngestTime(t time.Time) {
	h.mu.Lock()
	h.LastIngestTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetEnabledTFs(tfs []string) {
	h.mu.Lock()
	h.EnabledTFs = tfs
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Redis is an optional cache; only SQLite gates readiness.
	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	lastIngest := ""
	if !h.LastIngestTime.IsZero() {
		lastIngest = h.LastIngestTime.Format(time.RFC3339)
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		SQLiteOK        bool     `json:"sqlite_ok"`
		SQLiteLatencyMs float64  `json:"sqlite_latency_ms"`
		RedisConnected  bool     `json:"redis_connected"`
		RedisLatencyMs  float64  `json:"redis_latency_ms"`
		LastIngestTime  string   `json:"last_ingest_time"`
		EnabledTFs      []string `json:"enabled_tfs"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		LastIngestTime:  lastIngest,
		EnabledTFs:      h.EnabledTFs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
