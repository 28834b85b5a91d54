package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jordanhubbard/llmdash/internal/alerts"
	"github.com/jordanhubbard/llmdash/internal/dashboard"
	"github.com/jordanhubbard/llmdash/internal/httpapi"
	"github.com/jordanhubbard/llmdash/internal/idempotency"
	"github.com/jordanhubbard/llmdash/internal/keystore"
	"github.com/jordanhubbard/llmdash/internal/logging"
	"github.com/jordanhubbard/llmdash/internal/metrics"
	"github.com/jordanhubbard/llmdash/internal/ratelimit"
	"github.com/jordanhubbard/llmdash/internal/settings"
	"github.com/jordanhubbard/llmdash/internal/slot"
	"github.com/jordanhubbard/llmdash/internal/tracing"
)

type Server struct {
	mu  sync.Mutex
	cfg Config

	r *chi.Mux

	keys    *keystore.Store
	memo    *dashboard.Memo
	logger  *slog.Logger
	closers []io.Closer
	tracing func(context.Context) error
}

// Version is reported as the service version on traces.
var Version = "dev"

func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	logger, logCloser := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	s := &Server{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Version:     Version,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("tracing: %w", err)
	}
	s.tracing = shutdown

	loc, err := cfg.Location()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	catalog := dashboard.DefaultCatalog()
	if cfg.CatalogFile != "" {
		if catalog, err = dashboard.LoadCatalog(cfg.CatalogFile); err != nil {
			_ = s.Close()
			return nil, err
		}
		logger.Info("model catalog loaded", slog.String("path", cfg.CatalogFile), slog.Int("providers", len(catalog.Providers)))
	}

	sl, slotCloser, err := slot.Open(ctx, cfg.SlotConfig())
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open key slot: %w", err)
	}
	s.closers = append(s.closers, slotCloser)
	logger.Info("key slot opened", slog.String("backend", cfg.SlotBackend), slog.String("name", cfg.SlotName))

	m := metrics.New()
	s.keys = keystore.New(slot.Traced(sl, cfg.SlotBackend),
		keystore.WithLogger(logger.With(slog.String("component", "keystore"))),
		keystore.WithObserver(m),
	)
	s.keys.Init(ctx)

	s.memo = dashboard.NewMemo(dashboard.Options{Location: loc, Catalog: &catalog})

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, time.Second,
		ratelimit.WithCounter(m.RateLimited),
		ratelimit.WithExempt("/healthz", "/metrics"),
	)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", idempotency.HeaderKey},
		ExposedHeaders:   []string{idempotency.HeaderReplay},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(limiter.Middleware)
	s.r = r

	httpapi.MountRoutes(r, httpapi.Dependencies{
		Keys:        s.keys,
		Dashboard:   s.memo,
		Alerts:      alerts.NewManager(alerts.WithLogger(logger.With(slog.String("component", "alerts"))), alerts.WithObserver(m)),
		Settings:    settings.New(cfg.InitialSettings()),
		Metrics:     m,
		Idempotency: idempotency.New(time.Duration(cfg.IdempotencyTTLSec)*time.Second, 10_000),
		Logger:      logger,
	})

	return s, nil
}

func (s *Server) Router() http.Handler { return s.r }

// Reload applies the settings that can change without a restart: the log
// level and the model catalog.
func (s *Server) Reload(cfg Config) {
	logging.SetLevel(cfg.LogLevel)
	if cfg.CatalogFile != "" {
		c, err := dashboard.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			s.logger.Warn("catalog reload failed, keeping current catalog", slog.String("error", err.Error()))
		} else {
			s.memo.SetCatalog(c)
		}
	} else {
		s.memo.SetCatalog(dashboard.DefaultCatalog())
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("configuration reloaded", slog.String("log_level", cfg.LogLevel))
}

// Config returns the active configuration.
func (s *Server) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Server) Close() error {
	var errs []error
	if s.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, s.tracing(ctx))
		cancel()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}
