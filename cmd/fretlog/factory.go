package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"fretlog/internal/cli"
	"fretlog/internal/config"
	"fretlog/internal/logging"
	"fretlog/internal/remote"
	"fretlog/internal/repository/sqlite"
	"fretlog/internal/snapshot"
	"fretlog/internal/stats"
	"fretlog/internal/store"
	"fretlog/internal/timer"
)

// newApp builds the application graph for one invocation.
func newApp(ctx context.Context, cfg *config.Config) (*cli.App, error) {
	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	var closers []func() error
	fail := func(err error) (*cli.App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	backend, closeBackend, err := openRemote(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	if closeBackend != nil {
		closers = append(closers, closeBackend)
	}

	cache, err := openCache(cfg.Cache)
	if err != nil {
		return fail(err)
	}
	snap := snapshot.New(cache, logging.Component(logger, "snapshot"))
	closers = append(closers, snap.Close)

	s := store.New(backend, snap,
		store.WithLogger(logging.Component(logger, "store")),
		store.WithThemeSink(func(theme string) {
			lipgloss.SetHasDarkBackground(theme != "light")
		}),
	)

	relay := cli.NewDisplayRelay()
	tc := timer.New(s, snap,
		timer.WithDisplay(relay),
		timer.WithTickInterval(cfg.Timer.TickInterval),
		timer.WithLogger(logging.Component(logger, "timer")),
	)

	agg, err := stats.New(s, stats.WithMemoSize(cfg.Stats.MemoSize))
	if err != nil {
		return fail(fmt.Errorf("failed to create stats aggregator: %w", err))
	}

	opts := []cli.AppOption{
		cli.WithLogger(logger),
		cli.WithDisplayRelay(relay),
	}
	for _, fn := range closers {
		opts = append(opts, cli.WithCloser(fn))
	}
	return cli.NewApp(s, tc, agg, cfg, opts...), nil
}

// openRemote returns the authoritative store for the configured mode and
// its cleanup, if any.
func openRemote(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (remote.Remote, func() error, error) {
	switch cfg.Remote.Mode {
	case config.RemoteModeHTTP:
		client, err := remote.NewClient(remote.Options{
			BaseURL:   cfg.Remote.BaseURL,
			Timeout:   cfg.Remote.Timeout,
			RateLimit: cfg.Remote.RateLimit,
			RateBurst: cfg.Remote.RateBurst,
			UserAgent: cfg.Remote.UserAgent,
			Logger:    logging.Component(logger, "remote"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create remote client: %w", err)
		}
		return client, nil, nil
	case config.RemoteModeEmbedded:
		repo, err := sqlite.New(ctx, cfg.Remote.DatabasePath,
			sqlite.WithLogger(logging.Component(logger, "sqlite")))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote mode %q", cfg.Remote.Mode)
	}
}

func openCache(cfg config.CacheConfig) (snapshot.Cache, error) {
	switch cfg.Backend {
	case config.CacheBackendBolt:
		cache, err := snapshot.OpenBolt(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
		}
		return cache, nil
	case config.CacheBackendRedis:
		cache, err := snapshot.OpenRedis(snapshot.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
		}
		return cache, nil
	case config.CacheBackendMemory:
		return snapshot.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
