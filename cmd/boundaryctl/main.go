// Command boundaryctl resolves suburb boundaries from the command line.
//
//	boundaryctl -bbox=-33.9,150.85,-33.8,150.95
//	boundaryctl -name="Greenfield Park" -region="New South Wales"
//	boundaryctl -name=Bonnyrigg -cells -res=9
//	boundaryctl -bbox=-33.9,150.85,-33.8,150.95 -cells -res=8 -parent=6
//
// With no lookup flags it resolves the suburbs in the default map viewport.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/suburb-boundaries/internal/app"
	"github.com/mohammed-shakir/suburb-boundaries/internal/composer"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/config"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/router"
	"github.com/mohammed-shakir/suburb-boundaries/internal/logger"
	"github.com/mohammed-shakir/suburb-boundaries/internal/territory"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fl := flag.NewFlagSet("boundaryctl", flag.ContinueOnError)
	fl.SetOutput(stderr)
	bbox := fl.String("bbox", "", "minLat,minLng,maxLat,maxLng")
	name := fl.String("name", "", "suburb name")
	region := fl.String("region", "", "enclosing state or territory (default from DEFAULT_REGION)")
	cells := fl.Bool("cells", false, "print the H3 coverage of -name or -bbox instead of boundaries")
	res := fl.Int("res", -1, "H3 resolution for -cells (default from H3_RES)")
	parent := fl.Int("parent", -1, "roll -cells up to this coarser resolution")
	format := fl.String("format", "json", "json or geojson")
	if err := fl.Parse(args); err != nil {
		return 2
	}

	bb := model.DefaultMapRegion.BBox()
	if *bbox != "" {
		var err error
		if bb, err = router.ParseBBox(*bbox); err != nil {
			_, _ = fmt.Fprintf(stderr, "invalid -bbox: %v\n", err)
			return 2
		}
	}
	if *res > 15 || *parent > 15 || (*res >= 0 && *parent > *res) {
		_, _ = fmt.Fprintln(stderr, "-res and -parent must be H3 resolutions with -parent <= -res")
		return 2
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(stderr, "warning: .env: %v\n", err)
	}
	cfg := config.FromEnv()
	// one-shot lookups have nothing to share a cache with
	cfg.Cache.Backend = config.CacheBackendMemory
	cfg.Events.Enabled = false

	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   true,
		Service:   "suburb-boundaries",
		Component: "boundaryctl",
	}, stderr)
	log := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer func() { _ = a.Close() }()

	f := composer.NegotiateFormat("", *format).Format

	h3res := cfg.H3Res
	if *res >= 0 {
		h3res = *res
	}
	if *parent > h3res {
		_, _ = fmt.Fprintf(stderr, "-parent %d is finer than res %d\n", *parent, h3res)
		return 2
	}

	var out any
	switch {
	case *cells:
		var cov router.CellsResponse
		if *name != "" {
			cov = router.CellsResponse{Name: *name, Res: h3res, Cells: []string{}}
			if b := a.Resolver.ResolveByName(ctx, *name, *region); b != nil {
				cov, err = router.SuburbCoverage(a.Mapper, *b, h3res, *parent)
			}
		} else {
			cov, err = router.AreaCoverage(a.Mapper, bb, h3res, *parent)
		}
		if errors.Is(err, territory.ErrTooManyCells) {
			_, _ = fmt.Fprintf(stderr, "%v; use a coarser -res\n", err)
			return 2
		}
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "cells: %v\n", err)
			return 1
		}
		out = cov

	case *name != "":
		body, err := composer.Boundary(f, a.Resolver.ResolveByName(ctx, *name, *region))
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		out = json.RawMessage(body)

	default:
		body, err := composer.Boundaries(f, a.Resolver.ResolveArea(ctx, bb))
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		out = json.RawMessage(body)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		_, _ = fmt.Fprintf(stderr, "write: %v\n", err)
		return 1
	}
	return 0
}
