package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/config"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/health"
	middleware "github.com/mohammed-shakir/suburb-boundaries/internal/core/middleware"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/router"
)

// Deps are the collaborators the HTTP surface is wired to.
type Deps struct {
	Resolver router.Resolver
	Mapper   router.CellMapper
	H3Res    int
	// Metrics is served on MetricsPath; nil uses the default Prometheus registry.
	Metrics     http.Handler
	MetricsPath string
	Ready       []health.Check
}

// Routes builds the chi router for the boundary API.
func Routes(logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	path := d.MetricsPath
	if path == "" {
		path = "/metrics"
	}

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(time.Second, d.Ready...))
	r.Method(http.MethodGet, path, metrics)

	r.Get("/boundaries", router.HandleBoundaries(logger, d.Resolver))
	r.Get("/boundaries/cells", router.HandleBoundaryCells(logger, d.Mapper, d.H3Res))
	r.Route("/suburbs/{name}", func(r chi.Router) {
		r.Get("/", router.HandleSuburb(logger, d.Resolver))
		r.Get("/cells", router.HandleSuburbCells(logger, d.Resolver, d.Mapper, d.H3Res))
	})
	return r
}

// Run serves handler on cfg.Addr until ctx is done.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// by-name lookups may walk every endpoint for two strategies
		WriteTimeout: 4 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
