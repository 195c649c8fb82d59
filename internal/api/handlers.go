package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"zenigh/internal/indicator"
	"zenigh/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseDate accepts RFC3339 timestamps or bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want RFC3339 or YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "zenigh",
		"endpoints": []string{
			"GET /health",
			"GET /symbols",
			"GET /timeframes",
			"GET /db-size",
			"POST /ingest/{start}/{end}[/{timeframe}]",
			"GET /data/{symbol}/{timeframe}",
			"GET /ta/{symbol}/{timeframe}",
			"POST /ta/calculate",
			"POST /calculate",
			"GET /latest/{symbol}/{timeframe}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DB().PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	size, _ := s.store.Size()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"db_size_bytes": size,
		"symbols":       s.symbols,
		"timeframes":    model.Timeframes(),
	})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"symbols": s.symbols})
}

func (s *Server) handleTimeframes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"timeframes": model.Timeframes()})
}

func (s *Server) handleDBSize(w http.ResponseWriter, r *http.Request) {
	size, err := s.store.Size()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"db_size_bytes": size,
		"db_size_mb":    float64(size) / (1024 * 1024),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	start, err := parseDate(r.PathValue("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDate(r.PathValue("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end before start")
		return
	}
	tfs, ok := pathTimeframe(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown timeframe "+r.PathValue("timeframe"))
		return
	}

	// Partial failure is not a transport error: the summary body carries
	// per-timeframe outcomes.
	writeJSON(w, http.StatusOK, s.ingest.Run(r.Context(), start, end, tfs))
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	tfs, ok := pathTimeframe(r)
	if !ok || len(tfs) != 1 {
		writeError(w, http.StatusBadRequest, "unknown timeframe "+r.PathValue("timeframe"))
		return
	}
	tf := tfs[0]

	bars, err := s.store.ReadBars(r.Context(), symbol, tf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snaps, err := s.store.ReadSnapshots(r.Context(), symbol, tf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Attach computed values to their bar by timestamp. Bars without a
	// snapshot (not yet computed) just carry no indicators.
	byTS := make(map[int64]model.IndicatorValues, len(snaps))
	for _, snap := range snaps {
		byTS[snap.Timestamp.UnixNano()] = snap.Indicators
	}
	out := make([]BarOut, len(bars))
	for i, bar := range bars {
		out[i] = barOut(bar)
		out[i].Indicators = byTS[bar.Timestamp.UnixNano()]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"timeframe": tf,
		"count":     len(out),
		"bars":      out,
	})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	tfs, ok := pathTimeframe(r)
	if !ok || len(tfs) != 1 {
		writeError(w, http.StatusBadRequest, "unknown timeframe "+r.PathValue("timeframe"))
		return
	}

	snaps, err := s.store.ReadSnapshots(r.Context(), symbol, tfs[0])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]SnapshotOut, len(snaps))
	for i, snap := range snaps {
		out[i] = snapshotOut(snap)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"timeframe": tfs[0],
		"count":     len(out),
		"snapshots": out,
	})
}

func (s *Server) handleCalculateAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.compute.Run(r.Context(), s.symbols, model.Timeframes(), nil))
}

// handleCalculate runs an ad hoc indicator batch over caller-provided
// channel data. Nothing is read from or written to storage.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Params) == 0 {
		req.Params = indicator.DefaultSpecs()
	}

	in := indicator.Inputs{
		Close:  req.Data.Close,
		High:   req.Data.High,
		Low:    req.Data.Low,
		Volume: req.Data.Volume,
	}
	results, errs := s.engine.ComputeMany(in, req.Params)
	resp := CalculateResponse{
		Success: len(errs) == 0,
		Results: results,
	}
	if len(errs) > 0 {
		resp.Errors = make(map[string]string, len(errs))
		for key, err := range errs {
			resp.Errors[key] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not configured")
		return
	}
	symbol := r.PathValue("symbol")
	tfs, ok := pathTimeframe(r)
	if !ok || len(tfs) != 1 {
		writeError(w, http.StatusBadRequest, "unknown timeframe "+r.PathValue("timeframe"))
		return
	}

	latest, err := s.cache.GetLatest(r.Context(), symbol, tfs[0])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "no cached snapshot for "+symbol)
		return
	}

	var out LatestOut
	if latest.Bar != nil {
		b := barOut(*latest.Bar)
		out.Bar = &b
	}
	if latest.Snapshot != nil {
		snap := snapshotOut(*latest.Snapshot)
		out.Snapshot = &snap
	}
	writeJSON(w, http.StatusOK, out)
}
