// Package logger builds the zerolog JSON logger and bridges it to log/slog.
package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level     string
	Console   bool
	SampleN   int
	Service   string
	Component string
}

// lookupFields are the per-request values every log line inside a lookup carries.
type lookupFields struct {
	requestID string
	component string
	lookup    string
	cacheKey  string
}

type fieldsKey struct{}

func fieldsFrom(ctx context.Context) lookupFields {
	f, _ := ctx.Value(fieldsKey{}).(lookupFields)
	return f
}

func withFields(ctx context.Context, set func(*lookupFields)) context.Context {
	f := fieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequestID tags ctx with reqID, generating one when empty.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		reqID = NewID()
	}
	return withFields(ctx, func(f *lookupFields) { f.requestID = reqID })
}

// WithLookup tags the context with the lookup kind (area, name).
func WithLookup(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return withFields(ctx, func(f *lookupFields) { f.lookup = kind })
}

func WithCacheKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return withFields(ctx, func(f *lookupFields) { f.cacheKey = key })
}

func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return withFields(ctx, func(f *lookupFields) { f.component = component })
}

func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// ParseLevel maps debug|info|warn|error to a zerolog level; anything else is info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Build returns a JSON logger (console output when cfg.Console) filtered at
// cfg.Level. The level is set on the logger, not globally.
func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	base := zerolog.New(out).Level(ParseLevel(cfg.Level))
	if cfg.SampleN > 1 {
		n := uint32(math.MaxUint32)
		if cfg.SampleN < math.MaxUint32 {
			n = uint32(cfg.SampleN)
		}
		base = base.Sample(&zerolog.BasicSampler{N: n})
	}

	zc := base.With().Timestamp()
	if cfg.Service != "" {
		zc = zc.Str("service", cfg.Service)
	}
	if cfg.Component != "" {
		zc = zc.Str("component", cfg.Component)
	}
	return zc.Logger()
}
