// Package control wires the application together and owns its lifecycle:
// storage backend, store manager, performance monitor, proxy client, search
// pipeline, and the HTTP server.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/config"
	"github.com/haneul-dev/addrsearch/internal/infra/kv"
	kvmemory "github.com/haneul-dev/addrsearch/internal/infra/kv/memory"
	kvpostgres "github.com/haneul-dev/addrsearch/internal/infra/kv/postgres"
	kvredis "github.com/haneul-dev/addrsearch/internal/infra/kv/redis"
	kvsqlite "github.com/haneul-dev/addrsearch/internal/infra/kv/sqlite"
	"github.com/haneul-dev/addrsearch/internal/search"
	"github.com/haneul-dev/addrsearch/internal/search/classify"
	"github.com/haneul-dev/addrsearch/internal/search/monitor"
	"github.com/haneul-dev/addrsearch/internal/search/proxy"
	"github.com/haneul-dev/addrsearch/internal/server"
	"github.com/haneul-dev/addrsearch/internal/store"
)

// Service is the assembled application.
type Service struct {
	cfg    *config.AppConfig
	logger *slog.Logger

	backend kv.Store
	store   *store.Manager
	monitor *monitor.Monitor

	httpSrv       *http.Server
	cancelWorkers context.CancelFunc
}

// New constructs the service. Nothing is listening yet; call Start.
func New(cfg *config.AppConfig, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := OpenBackend(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage backend: %w", err)
	}

	st := store.NewManager(backend, logger)
	mon := monitor.New(st, logger)
	client := proxy.NewClient(cfg.Proxy)

	pipeline := search.NewPipeline(client, st, mon, logger, search.PipelineConfig{
		Policy:      retryPolicy(cfg.Search),
		SaveHistory: !cfg.Search.DisableHistory,
	})

	handler := server.New(server.Deps{
		Pipeline: pipeline,
		Store:    st,
		Monitor:  mon,
		Logger:   logger,
	})

	return &Service{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		store:   st,
		monitor: mon,
		httpSrv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Start launches the HTTP listener and the maintenance worker.
func (s *Service) Start(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelWorkers = cancel
	go s.store.RunCleanupLoop(workerCtx)

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the service down.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancelWorkers != nil {
		s.cancelWorkers()
	}

	var firstErr error
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := s.backend.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Store exposes the store manager for CLI subcommands.
func (s *Service) Store() *store.Manager { return s.store }

// OpenBackend opens the configured durable kv backend.
func OpenBackend(cfg config.StorageConfig) (kv.Store, error) {
	switch cfg.Backend {
	case "memory":
		return kvmemory.New(), nil
	case "sqlite", "":
		return kvsqlite.Open(cfg.SQLitePath)
	case "redis":
		return kvredis.New(cfg.Redis)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return kvpostgres.New(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func retryPolicy(cfg config.SearchConfig) classify.Policy {
	p := classify.DefaultPolicy
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RateLimitedAttempts > 0 {
		p.RateLimitedAttempts = cfg.RateLimitedAttempts
	}
	if cfg.RateLimitedDelay > 0 {
		p.RateLimitedDelay = cfg.RateLimitedDelay
	}
	if cfg.RetryBaseDelay > 0 {
		p.BaseDelay = cfg.RetryBaseDelay
	}
	if cfg.RetryMaxDelay > 0 {
		p.MaxDelay = cfg.RetryMaxDelay
	}
	return p
}
