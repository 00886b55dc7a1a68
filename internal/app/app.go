// Package app assembles the boundary resolver and its collaborators from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/suburb-boundaries/internal/cache/keys"
	"github.com/mohammed-shakir/suburb-boundaries/internal/cache/redisstore"
	"github.com/mohammed-shakir/suburb-boundaries/internal/cache/timed"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/config"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/executor"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/health"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/httpclient"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
	"github.com/mohammed-shakir/suburb-boundaries/internal/events"
	"github.com/mohammed-shakir/suburb-boundaries/internal/ratelimit"
	"github.com/mohammed-shakir/suburb-boundaries/internal/resolver"
	"github.com/mohammed-shakir/suburb-boundaries/internal/rotation"
	"github.com/mohammed-shakir/suburb-boundaries/internal/territory"
)

type App struct {
	Resolver *resolver.Resolver
	Rotator  *rotation.Rotator
	Mapper   *territory.Mapper
	Ready    []health.Check

	closers []func() error
}

// Option customizes Build (tests swap the executor).
type Option func(*buildOpts)

type buildOpts struct {
	exec executor.Interface
}

func WithExecutor(e executor.Interface) Option {
	return func(o *buildOpts) { o.exec = e }
}

// Build wires one resolver per process: shared rotation cursor and limiter,
// both caches on the configured backend, and the optional event publisher.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var bo buildOpts
	for _, o := range opts {
		o(&bo)
	}
	a := &App{Mapper: territory.New(territory.WithMaxCells(cfg.H3MaxCells))}

	rot, err := rotation.New(cfg.Overpass.Endpoints)
	if err != nil {
		return nil, err
	}
	a.Rotator = rot

	exec := bo.exec
	if exec == nil {
		exec = executor.New(logger,
			httpclient.NewOutbound(cfg.Overpass.AttemptTimeout),
			executor.WithUserAgent(cfg.Overpass.UserAgent))
	}

	areas, names, err := a.buildCaches(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	ropts := []resolver.Option{
		resolver.WithDefaultRegion(cfg.Overpass.DefaultRegion),
		resolver.WithAttemptTimeout(cfg.Overpass.AttemptTimeout),
	}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(logger, cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Queue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		ropts = append(ropts, resolver.WithEvents(pub))
		logger.Info("resolution events enabled", "topic", cfg.Events.Topic, "brokers", cfg.Events.Brokers)
	}

	a.Resolver = resolver.New(logger, exec, rot, ratelimit.New(cfg.Overpass.MinInterval), areas, names, ropts...)
	return a, nil
}

func (a *App) buildCaches(ctx context.Context, cfg config.Config, logger *slog.Logger) (*resolver.AreaCache, *resolver.NameCache, error) {
	var (
		areaBackend timed.Backend[[]model.SuburbBoundary]
		nameBackend timed.Backend[*model.SuburbBoundary]
	)

	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		rc, err := redisstore.New(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Cache.RedisAddr, err)
		}
		a.closers = append(a.closers, rc.Close)
		a.Ready = append(a.Ready, health.Check{Name: "redis", Ping: rc.Ping})
		areaBackend = timed.NewRedis[[]model.SuburbBoundary](rc, "area", cfg.Cache.StaleRetention, cfg.Cache.OpTimeout)
		nameBackend = timed.NewRedis[*model.SuburbBoundary](rc, "name", cfg.Cache.StaleRetention, cfg.Cache.OpTimeout)
		logger.Info("boundary cache on redis", "addr", cfg.Cache.RedisAddr, "retention", cfg.Cache.StaleRetention.String())

	default:
		am, err := timed.NewMemory[[]model.SuburbBoundary](cfg.Cache.MaxEntries)
		if err != nil {
			return nil, nil, fmt.Errorf("area cache: %w", err)
		}
		nm, err := timed.NewMemory[*model.SuburbBoundary](cfg.Cache.MaxEntries)
		if err != nil {
			return nil, nil, fmt.Errorf("name cache: %w", err)
		}
		areaBackend, nameBackend = am, nm
		logger.Info("boundary cache in memory", "max_entries", cfg.Cache.MaxEntries)
	}

	areas := timed.New("area", keys.Area, cfg.Cache.TTL, areaBackend)
	names := timed.New("name", keys.Name, cfg.Cache.TTL, nameBackend)
	return areas, names, nil
}

// Shutdown waits for in-flight lookups, bounded by ctx, then closes the
// app. Lookups still running when ctx ends are left to drop their events.
func (a *App) Shutdown(ctx context.Context) error {
	var drainErr error
	if a.Resolver != nil {
		if err := a.Resolver.Drain(ctx); err != nil {
			drainErr = fmt.Errorf("drain lookups: %w", err)
		}
	}
	return errors.Join(drainErr, a.Close())
}

// Close releases the event producer and the Redis pool, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
