// Package resolver resolves suburb boundaries through the Overpass mirrors.
//
// A lookup is served from cache while fresh. Otherwise one outbound request
// slot is claimed from the shared limiter and the query is tried against each
// endpoint in turn, starting at the shared rotation cursor. Lookups never
// fail: throttling and exhausted endpoints degrade to stale data or an empty
// result.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/suburb-boundaries/internal/cache/timed"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/executor"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/observability"
	"github.com/mohammed-shakir/suburb-boundaries/internal/events"
	"github.com/mohammed-shakir/suburb-boundaries/internal/logger"
	"github.com/mohammed-shakir/suburb-boundaries/internal/overpass"
	"github.com/mohammed-shakir/suburb-boundaries/internal/ratelimit"
	"github.com/mohammed-shakir/suburb-boundaries/internal/rotation"
)

const (
	DefaultRegion         = "New South Wales"
	DefaultAttemptTimeout = 30 * time.Second
)

// lookup outcomes, used for metrics and events
const (
	OutcomeHit     = "hit"
	OutcomeFetched = "fetched"
	OutcomeStale   = "stale"
	OutcomeEmpty   = "empty"
)

// AreaCache holds the boundaries found inside a rounded bounding box.
type AreaCache = timed.Cache[model.BBox, []model.SuburbBoundary]

// NameCache holds one boundary per name lookup; a nil value is a cached miss.
type NameCache = timed.Cache[model.NameLookup, *model.SuburbBoundary]

type Resolver struct {
	logger         *slog.Logger
	exec           executor.Interface
	rot            *rotation.Rotator
	limiter        *ratelimit.Limiter
	areas          *AreaCache
	names          *NameCache
	strategies     []overpass.NameStrategy
	defaultRegion  string
	attemptTimeout time.Duration
	events         events.Sink
	inflight       inflight
}

type Option func(*Resolver)

// WithStrategies replaces the ordered by-name query phrasings.
func WithStrategies(s ...overpass.NameStrategy) Option {
	return func(r *Resolver) {
		if len(s) > 0 {
			r.strategies = s
		}
	}
}

func WithDefaultRegion(region string) Option {
	return func(r *Resolver) {
		if strings.TrimSpace(region) != "" {
			r.defaultRegion = region
		}
	}
}

// WithAttemptTimeout bounds a single endpoint attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.attemptTimeout = d
		}
	}
}

func WithEvents(s events.Sink) Option {
	return func(r *Resolver) {
		if s != nil {
			r.events = s
		}
	}
}

func New(
	logger *slog.Logger,
	exec executor.Interface,
	rot *rotation.Rotator,
	limiter *ratelimit.Limiter,
	areas *AreaCache,
	names *NameCache,
	opts ...Option,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		logger:         logger,
		exec:           exec,
		rot:            rot,
		limiter:        limiter,
		areas:          areas,
		names:          names,
		strategies:     overpass.DefaultNameStrategies(),
		defaultRegion:  DefaultRegion,
		attemptTimeout: DefaultAttemptTimeout,
		events:         events.Nop{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Resolver) DefaultRegion() string { return r.defaultRegion }

// MaxLookupDuration bounds how long one uncached lookup can spend on the
// network: every name strategy tried against every endpoint.
func (r *Resolver) MaxLookupDuration() time.Duration {
	return time.Duration(len(r.strategies)*r.rot.Len()) * r.attemptTimeout
}

// Drain blocks until no lookup is in flight or ctx is done.
func (r *Resolver) Drain(ctx context.Context) error {
	return r.inflight.wait(ctx)
}

// ResolveArea returns the suburb boundaries intersecting bb. The result is
// never nil; an empty slice means nothing could be drawn.
func (r *Resolver) ResolveArea(ctx context.Context, bb model.BBox) []model.SuburbBoundary {
	r.inflight.begin()
	defer r.inflight.end()

	start := time.Now()
	key := r.areas.Key(bb)
	ctx = logger.WithCacheKey(logger.WithLookup(ctx, string(overpass.KindArea)), key)

	cached := loadCached(ctx, r, r.areas, key)
	if cached.Found && cached.Fresh {
		out := nonNil(cached.Value)
		r.finish(ctx, overpass.KindArea, key, OutcomeHit, "", len(out), start)
		return out
	}

	if !r.limiter.Claim() {
		r.logger.DebugContext(ctx, "local rate limit, skipping fetch", "wait", r.limiter.Wait().String())
		return r.degradeArea(ctx, key, cached, start)
	}

	found, endpoint, ok := r.fetch(ctx, overpass.BuildAreaQuery(bb))
	if !ok {
		r.logger.ErrorContext(ctx, "all overpass endpoints failed", "endpoints", r.rot.Len())
		return r.degradeArea(ctx, key, cached, start)
	}

	storeCached(ctx, r, r.areas, key, found)
	r.finish(ctx, overpass.KindArea, key, OutcomeFetched, endpoint, len(found), start)
	return found
}

func (r *Resolver) degradeArea(ctx context.Context, key string, cached timed.Result[[]model.SuburbBoundary], start time.Time) []model.SuburbBoundary {
	if cached.Found {
		out := nonNil(cached.Value)
		r.finish(ctx, overpass.KindArea, key, OutcomeStale, "", len(out), start)
		return out
	}
	r.finish(ctx, overpass.KindArea, key, OutcomeEmpty, "", 0, start)
	return []model.SuburbBoundary{}
}

// ResolveByName returns the boundary of the suburb called name inside region
// (the default region when empty), or nil when none is available. Name
// strategies are tried in order; the first one yielding a boundary wins.
func (r *Resolver) ResolveByName(ctx context.Context, name, region string) *model.SuburbBoundary {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if strings.TrimSpace(region) == "" {
		region = r.defaultRegion
	}
	r.inflight.begin()
	defer r.inflight.end()

	start := time.Now()
	key := r.names.Key(model.NameLookup{Name: name, Region: region})
	ctx = logger.WithCacheKey(logger.WithLookup(ctx, string(overpass.KindName)), key)

	cached := loadCached(ctx, r, r.names, key)
	if cached.Found && cached.Fresh {
		r.finish(ctx, overpass.KindName, key, OutcomeHit, "", count(cached.Value), start)
		return cached.Value
	}

	if !r.limiter.Claim() {
		r.logger.DebugContext(ctx, "local rate limit, skipping fetch", "wait", r.limiter.Wait().String())
		return r.degradeName(ctx, key, cached, start)
	}

	answered, exhausted := false, false
	for _, s := range r.strategies {
		found, endpoint, ok := r.fetch(ctx, s.Build(name, region))
		if !ok {
			exhausted = true
			continue
		}
		answered = true
		if len(found) == 0 {
			r.logger.DebugContext(ctx, "no match", "strategy", s.Name)
			continue
		}
		b := found[0]
		storeCached(ctx, r, r.names, key, &b)
		r.finish(ctx, overpass.KindName, key, OutcomeFetched, endpoint, 1, start)
		return &b
	}

	if answered && !exhausted {
		// every phrasing was answered and none matched
		var miss *model.SuburbBoundary
		storeCached(ctx, r, r.names, key, miss)
		r.finish(ctx, overpass.KindName, key, OutcomeEmpty, "", 0, start)
		return nil
	}
	if !answered {
		r.logger.ErrorContext(ctx, "all overpass endpoints failed", "endpoints", r.rot.Len())
	}
	// a phrasing went unanswered, so the miss is not known; keep what is cached
	return r.degradeName(ctx, key, cached, start)
}

func (r *Resolver) degradeName(ctx context.Context, key string, cached timed.Result[*model.SuburbBoundary], start time.Time) *model.SuburbBoundary {
	if cached.Found && cached.Value != nil {
		r.finish(ctx, overpass.KindName, key, OutcomeStale, "", 1, start)
		return cached.Value
	}
	r.finish(ctx, overpass.KindName, key, OutcomeEmpty, "", 0, start)
	return nil
}

// InvalidateArea drops the cached result for the rounded box bb falls in.
func (r *Resolver) InvalidateArea(ctx context.Context, bb model.BBox) error {
	return r.areas.Invalidate(ctx, r.areas.Key(bb))
}

// InvalidateName drops a cached by-name result, including a cached miss.
func (r *Resolver) InvalidateName(ctx context.Context, name, region string) error {
	if strings.TrimSpace(region) == "" {
		region = r.defaultRegion
	}
	return r.names.Invalidate(ctx, r.names.Key(model.NameLookup{Name: strings.TrimSpace(name), Region: region}))
}

// fetch tries q once per endpoint, starting at the rotation cursor, and
// returns the parsed boundaries of the first usable answer together with the
// endpoint that gave it. Every failed attempt advances the cursor.
func (r *Resolver) fetch(ctx context.Context, q overpass.Query) ([]model.SuburbBoundary, string, bool) {
	start := r.rot.Current()
	n := r.rot.Len()

	for attempt := 0; attempt < n; attempt++ {
		endpoint := r.rot.At(start, attempt)

		// attempts outlive an abandoned caller so the answer still reaches the cache
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.attemptTimeout)
		body, err := r.exec.Execute(actx, endpoint, q)
		cancel()

		var reason string
		if err == nil {
			found, perr := overpass.ParseRelations(body)
			if perr == nil {
				return found, endpoint, true
			}
			err, reason = perr, "parse"
		} else {
			reason = failureReason(q.Kind, err)
		}

		next := r.rot.Advance()
		observability.IncRotation(reason)
		r.logger.WarnContext(ctx, "overpass attempt failed, rotating",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"reason", reason,
			"next", r.rot.At(next, 0),
			"err", err)
	}
	return nil, "", false
}

// failureReason classifies a failed attempt. 429 is always a remote rate
// limit; 504 counts as one for by-name lookups.
func failureReason(kind overpass.Kind, err error) string {
	var se *executor.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests:
			return "rate_limited"
		case se.Code == http.StatusGatewayTimeout && kind == overpass.KindName:
			return "rate_limited"
		}
		return "status"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var de interface{ Timeout() bool }
	if errors.As(err, &de) && de.Timeout() {
		return "timeout"
	}
	return "transport"
}

func (r *Resolver) finish(ctx context.Context, kind overpass.Kind, key, outcome, endpoint string, n int, start time.Time) {
	dur := time.Since(start)
	observability.IncLookup(string(kind), outcome)
	r.logger.InfoContext(ctx, "boundary lookup",
		"outcome", outcome,
		"boundaries", n,
		"duration", dur.String())
	r.events.Publish(events.Event{
		Kind:       string(kind),
		Key:        key,
		Outcome:    outcome,
		Endpoint:   endpoint,
		Boundaries: n,
		DurationMS: dur.Milliseconds(),
		TS:         time.Now().UTC(),
	})
}

// loadCached treats backend errors as a miss.
func loadCached[K any, V any](ctx context.Context, r *Resolver, c *timed.Cache[K, V], key string) timed.Result[V] {
	res, err := c.Get(ctx, key)
	if err != nil {
		r.logger.WarnContext(ctx, "cache read failed, treating as miss", "cache", c.Name(), "err", err)
		return timed.Result[V]{}
	}
	return res
}

// storeCached writes even if the caller has gone away; a failed write is only logged.
func storeCached[K any, V any](ctx context.Context, r *Resolver, c *timed.Cache[K, V], key string, v V) {
	if err := c.Put(context.WithoutCancel(ctx), key, v); err != nil {
		r.logger.WarnContext(ctx, "cache write failed", "cache", c.Name(), "err", err)
	}
}

func nonNil(bs []model.SuburbBoundary) []model.SuburbBoundary {
	if bs == nil {
		return []model.SuburbBoundary{}
	}
	return bs
}

func count(b *model.SuburbBoundary) int {
	if b == nil {
		return 0
	}
	return 1
}

// inflight counts running lookups so shutdown can wait for them.
type inflight struct {
	mu     sync.Mutex
	active int
	idle   chan struct{}
}

func (f *inflight) begin() {
	f.mu.Lock()
	f.active++
	f.mu.Unlock()
}

func (f *inflight) end() {
	f.mu.Lock()
	f.active--
	if f.active == 0 && f.idle != nil {
		close(f.idle)
		f.idle = nil
	}
	f.mu.Unlock()
}

func (f *inflight) wait(ctx context.Context) error {
	f.mu.Lock()
	if f.active == 0 {
		f.mu.Unlock()
		return nil
	}
	if f.idle == nil {
		f.idle = make(chan struct{})
	}
	idle := f.idle
	f.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
