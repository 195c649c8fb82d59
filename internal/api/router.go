// Package api provides the REST surface over ingestion, stored bars and
// computed indicator snapshots.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"zenigh/internal/compute"
	"zenigh/internal/indicator"
	"zenigh/internal/ingest"
	"zenigh/internal/logger"
	"zenigh/internal/model"
	"zenigh/internal/store/redis"
	"zenigh/internal/store/sqlite"
)

// Server holds the dependencies shared by all handlers.
type Server struct {
	store   *sqlite.Store
	cache   *redis.Cache
	ingest  *ingest.Orchestrator
	compute *compute.Orchestrator
	engine  *indicator.Engine
	symbols []string
}

// NewServer wires the REST server. cache may be nil.
func NewServer(store *sqlite.Store, cache *redis.Cache, ing *ingest.Orchestrator, comp *compute.Orchestrator, engine *indicator.Engine, symbols []string) *Server {
	return &Server{
		store:   store,
		cache:   cache,
		ingest:  ing,
		compute: comp,
		engine:  engine,
		symbols: symbols,
	}
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Router builds the route table.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /symbols", s.handleSymbols)
	mux.HandleFunc("GET /timeframes", s.handleTimeframes)
	mux.HandleFunc("GET /db-size", s.handleDBSize)

	mux.HandleFunc("POST /ingest/{start}/{end}", s.handleIngest)
	mux.HandleFunc("POST /ingest/{start}/{end}/{timeframe}", s.handleIngest)

	mux.HandleFunc("GET /data/{symbol}/{timeframe}", s.handleData)
	mux.HandleFunc("GET /ta/{symbol}/{timeframe}", s.handleSnapshots)
	mux.HandleFunc("POST /ta/calculate", s.handleCalculateAll)
	mux.HandleFunc("POST /calculate", s.handleCalculate)
	mux.HandleFunc("GET /latest/{symbol}/{timeframe}", s.handleLatest)

	return mux
}

// Handler wraps the route table with per-request logging and request IDs.
func (s *Server) Handler() http.Handler {
	mux := s.Router()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithRequestID(r.Context(), logger.GenerateRequestID(r.Method, start))
		r = r.WithContext(ctx)
		mux.ServeHTTP(w, r)
		slog.Info("request",
			append(logger.WithRequest(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds())...)
	})
}

// pathTimeframe extracts and validates the {timeframe} path segment.
// An empty segment (the short /ingest form) selects every timeframe.
func pathTimeframe(r *http.Request) ([]model.Timeframe, bool) {
	raw := r.PathValue("timeframe")
	if raw == "" {
		return model.Timeframes(), true
	}
	tf := model.Timeframe(raw)
	if !tf.Valid() {
		return nil, false
	}
	return []model.Timeframe{tf}, true
}
