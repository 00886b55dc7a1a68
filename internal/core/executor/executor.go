// Package executor issues overpass queries against a single upstream endpoint.
package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/observability"
	"github.com/mohammed-shakir/suburb-boundaries/internal/overpass"
)

const maxErrBody = 8 << 10

type Interface interface {
	Execute(ctx context.Context, endpoint string, q overpass.Query) ([]byte, error)
}

// StatusError is a non-2xx answer from an endpoint.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("overpass %s status %d: %s", e.Endpoint, e.Code, e.Body)
}

type Executor struct {
	logger    *slog.Logger
	client    *http.Client
	userAgent string
	maxBody   int64
	startNow  func() time.Time // for tests
}

type Option func(*Executor)

func WithUserAgent(ua string) Option {
	return func(e *Executor) { e.userAgent = ua }
}

// WithMaxBody caps how much of a successful response is read.
func WithMaxBody(n int64) Option {
	return func(e *Executor) { e.maxBody = n }
}

func New(logger *slog.Logger, client *http.Client, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{
		logger:   logger,
		client:   client,
		maxBody:  64 << 20,
		startNow: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute POSTs q as form data to endpoint and returns the body of a 2xx answer.
// Any other status is returned as *StatusError.
func (e *Executor) Execute(ctx context.Context, endpoint string, q overpass.Query) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(q.FormBody()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	start := e.startNow()
	resp, err := e.client.Do(req)
	if err != nil {
		observability.ObserveUpstream(endpoint, "failed", time.Since(start).Seconds())
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		result := "failed"
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusGatewayTimeout {
			result = "rate_limited"
		}
		observability.ObserveUpstream(endpoint, result, time.Since(start).Seconds())
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody))
	dur := time.Since(start)
	if err != nil {
		observability.ObserveUpstream(endpoint, "failed", dur.Seconds())
		return nil, fmt.Errorf("read body: %w", err)
	}
	observability.ObserveUpstream(endpoint, "ok", dur.Seconds())
	e.logger.Debug("overpass query done",
		"endpoint", endpoint,
		"kind", string(q.Kind),
		"bytes", len(b),
		"duration", dur.String())
	return b, nil
}
