package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"zenigh/config"
	"zenigh/internal/api"
	"zenigh/internal/compute"
	"zenigh/internal/indicator"
	"zenigh/internal/ingest"
	"zenigh/internal/logger"
	"zenigh/internal/metrics"
	"zenigh/internal/model"
	"zenigh/internal/provider/alpaca"
	redisstore "zenigh/internal/store/redis"
	sqlitestore "zenigh/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("server", slog.LevelInfo)
	slog.Info("starting")

	// ---- Load config from env ----
	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatal("[server] no symbols configured")
	}
	slog.Info("universe", "symbols", symbols, "timeframes", model.Timeframes())

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	tfs := model.Timeframes()
	tfLabels := make([]string, len(tfs))
	for i, tf := range tfs {
		tfLabels[i] = string(tf)
	}
	health.SetEnabledTFs(tfLabels)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Open SQLite store ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	store, err := sqlitestore.Open(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[server] sqlite init failed: %v", err)
	}
	defer store.Close()
	health.SetSQLiteOK(true)
	slog.Info("sqlite store ready", "path", cfg.SQLitePath)

	// ---- Open Redis cache (optional) ----
	var cache *redisstore.Cache
	if cfg.RedisAddr != "" {
		cache, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			slog.Warn("redis init failed, continuing without cache", "error", err)
			cache = nil
			health.SetRedisConnected(false)
		} else {
			defer cache.Close()
			health.SetRedisConnected(true)
			slog.Info("redis cache ready", "addr", cfg.RedisAddr)
		}
	}

	// ---- Periodic liveness checks ----
	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), store.DB(), 15*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 15*time.Second)
	}

	// ---- Wire the pipeline ----
	provider := alpaca.New(alpaca.Config{
		BaseURL:   cfg.DataBaseURL,
		APIKey:    cfg.DataAPIKey,
		APISecret: cfg.DataAPISecret,
		Symbols:   symbols,
		Limit:     cfg.FetchLimit,
		Timeout:   cfg.FetchTimeout,
	})
	engine := indicator.NewEngine()
	ing := ingest.New(provider, store, prom)
	comp := compute.New(store, cache, engine, prom, cfg.ComputeWorkers)

	// ---- REST server ----
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewServer(store, cache, ing, comp, engine, symbols).Handler(),
	}
	go func() {
		slog.Info("rest server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[server] rest server error: %v", err)
		}
	}()

	// ---- Wait for shutdown signal ----
	<-sigCh
	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	slog.Info("stopped")
}
