package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/suburb-boundaries/internal/app"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/config"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/observability"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/server"
	"github.com/mohammed-shakir/suburb-boundaries/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/suburb-boundaries/internal/logger"
	"github.com/mohammed-shakir/suburb-boundaries/internal/metrics"
)

var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	envErr := godotenv.Load(".env")

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		SampleN:   cfg.Log.SampleN,
		Service:   "suburb-boundaries",
		Component: "boundary-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		appLog.Warn("could not load .env", "err", envErr)
	}

	deps := server.Deps{H3Res: cfg.H3Res}
	if cfg.MetricsEnabled {
		p, err := metrics.Init(metrics.Config{
			Path:  "/metrics",
			Build: metrics.BuildInfo{Version: Version, Revision: Revision, BuildDate: BuildDate},
		})
		if err != nil {
			appLog.Error("metrics setup failed", "err", err)
			return 1
		}
		deps.Metrics, deps.MetricsPath = p.Handler(), p.Path()
	} else if err := observability.Init(nil); err != nil {
		appLog.Error("metrics setup failed", "err", err)
		return 1
	}

	appLog.Info("starting boundary server",
		"addr", cfg.Addr,
		"version", Version,
		"endpoints", cfg.Overpass.Endpoints,
		"cache_backend", cfg.Cache.Backend,
		"ttl", cfg.Cache.TTL.String(),
		"min_interval", cfg.Overpass.MinInterval.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, appLog)
	if err != nil {
		appLog.Error("setup failed", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), a.Resolver.MaxLookupDuration())
		defer cancel()
		if err := a.Shutdown(sctx); err != nil {
			appLog.Warn("shutdown", "err", err)
		}
	}()

	if cfg.Invalidation.Enabled {
		consumer := kafkaconsumer.New(kafkaconsumer.Config{
			Brokers:             cfg.Events.Brokers,
			Topic:               cfg.Invalidation.Topic,
			GroupID:             cfg.Invalidation.GroupID,
			InitialOffsetOldest: true,
		}, appLog, a.Resolver)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				appLog.Error("invalidation consumer stopped", "err", err)
			}
		}()
	}

	deps.Resolver = a.Resolver
	deps.Mapper = a.Mapper
	deps.Ready = a.Ready

	if err := server.Run(ctx, cfg, appLog, server.Routes(appLog, deps)); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
