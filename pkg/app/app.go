// Package app wires adapters and services from configuration. The server,
// the serverless entrypoint and the CLI all build through it.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/adapters/generator"
	"github.com/wadjakorntonsri/tinyread/pkg/adapters/handler"
	"github.com/wadjakorntonsri/tinyread/pkg/adapters/ratelimit"
	"github.com/wadjakorntonsri/tinyread/pkg/adapters/repository/cache"
	"github.com/wadjakorntonsri/tinyread/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/tinyread/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/tinyread/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/tinyread/pkg/config"
	"github.com/wadjakorntonsri/tinyread/pkg/core/services"
	"github.com/wadjakorntonsri/tinyread/pkg/metrics"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

type App struct {
	Config     *config.Config
	Repository ports.Repository
	Limiter    ports.RateLimiter
	Metrics    *metrics.Provider
	Service    *services.SummaryService
	Handler    http.Handler

	closers []func() error
}

// OpenRepository connects the configured store without the cache layer.
func OpenRepository(ctx context.Context, cfg *config.Config) (ports.Repository, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres":
		repo, err := postgres.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "memory":
		return memory.NewRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// NewLimiter returns a redis limiter when REDIS_URL is set, else an
// in-process one.
func NewLimiter(ctx context.Context, cfg *config.Config) (ports.RateLimiter, func() error, error) {
	rl := cfg.RateLimit
	if rl.RedisURL == "" {
		return ratelimit.NewMemoryLimiter(rl.Points, rl.Window), func() error { return nil }, nil
	}
	l, err := ratelimit.NewRedisLimiterFromURL(ctx, rl.RedisURL, rl.Points, rl.Window)
	if err != nil {
		return nil, nil, err
	}
	return l, l.Close, nil
}

func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}

	repo, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	a.closers = append(a.closers, repo.Close)
	a.Repository = cache.New(repo, cfg.Cache.SizeMB, cfg.Cache.TTLSeconds, logger)

	limiter, closeLimiter, err := NewLimiter(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	a.closers = append(a.closers, closeLimiter)
	a.Limiter = limiter

	summarizer, err := generator.NewSummarizer(cfg, a.Metrics, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Service = services.NewSummaryService(a.Repository, a.Repository, summarizer, a.Metrics, logger,
		services.WithIPSalt(cfg.IPHashSalt))
	a.Handler = handler.NewRouter(cfg, a.Service, a.Limiter, a.Metrics, a.Metrics.Handler(), logger)

	logger.Info().
		Str("store", cfg.StoreDriver).
		Str("generator", cfg.Generator.Type).
		Bool("redis_limiter", cfg.RateLimit.RedisURL != "").
		Int("cache_mb", cfg.Cache.SizeMB).
		Msg("application wired")
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
