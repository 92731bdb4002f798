package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/bondgen/internal/api"
	"github.com/dgallion1/bondgen/internal/config"
	"github.com/dgallion1/bondgen/internal/draftstore"
	"github.com/dgallion1/bondgen/internal/pipeline"
	"github.com/dgallion1/bondgen/internal/quota"
)

func main() {
	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize draft storage.
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("draft storage unavailable", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, store, log)
	orch.Start(ctx)

	limiter := newLimiter(ctx, cfg)

	// Initialize HTTP server.
	srv := api.NewServer(orch, limiter, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		closeStore()
		cancel()
	}()

	log.Info("starting bondgen", "port", cfg.Port, "store", cfg.StoreBackend,
		"workers", cfg.WorkerCount, "quota_window", cfg.QuotaWindow.String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore builds the configured draft store. A nil store disables
// drafts.
func openStore(ctx context.Context, cfg config.Config) (draftstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return draftstore.NewMemory(), func() {}, nil
	case config.StorePathstore:
		ps := draftstore.NewPathstoreStore(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		return ps, ps.Close, nil
	case config.StoreGCS:
		gs, err := draftstore.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, nil, err
		}
		return gs, func() { gs.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

// newLimiter builds the per-user quota and prunes expired windows in the
// background.
func newLimiter(ctx context.Context, cfg config.Config) quota.Limiter {
	if cfg.QuotaWindow <= 0 {
		return quota.Unlimited{}
	}
	m := quota.NewMemory(map[quota.Kind]int{
		quota.Preview:    cfg.PreviewLimit,
		quota.Generation: cfg.GenerationLimit,
	}, cfg.QuotaWindow)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Prune()
			}
		}
	}()
	return m
}
