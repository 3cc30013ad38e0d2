package cache

import (
	"context"
	"time"

	"github.com/polar0/roi-tracker/internal/metrics"
)

// DefaultMinAge is how old a timestamp must be before its block is cached.
// Newer timestamps can still gain a block as the chain advances.
const DefaultMinAge = 5 * time.Minute

// Resolver maps a timestamp to a block height.
type Resolver interface {
	BlockAt(ctx context.Context, t time.Time) (uint64, error)
}

// Logger receives cache backend failures, which never fail a lookup.
type Logger interface {
	Debug(format string, args ...any)
}

// CachedResolver decorates a Resolver with a BlockCache.
type CachedResolver struct {
	inner  Resolver
	cache  BlockCache
	minAge time.Duration
	now    func() time.Time
	log    Logger
}

// CachedResolverOption configures a CachedResolver.
type CachedResolverOption func(*CachedResolver)

// WithMinAge overrides DefaultMinAge.
func WithMinAge(d time.Duration) CachedResolverOption {
	return func(r *CachedResolver) { r.minAge = d }
}

// WithClock overrides the wall clock used for the age check.
func WithClock(now func() time.Time) CachedResolverOption {
	return func(r *CachedResolver) { r.now = now }
}

// WithLogger reports cache backend errors.
func WithLogger(l Logger) CachedResolverOption {
	return func(r *CachedResolver) { r.log = l }
}

// NewCachedResolver wraps inner with cache.
func NewCachedResolver(inner Resolver, cache BlockCache, opts ...CachedResolverOption) *CachedResolver {
	r := &CachedResolver{
		inner:  inner,
		cache:  cache,
		minAge: DefaultMinAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BlockAt returns the cached height for t or resolves and caches it.
// Lookups are keyed at one-second granularity.
func (r *CachedResolver) BlockAt(ctx context.Context, t time.Time) (uint64, error) {
	ts := t.Unix()
	cacheable := r.now().Sub(t) >= r.minAge

	if cacheable {
		height, ok, err := r.cache.Get(ctx, ts)
		switch {
		case err != nil:
			r.debug("block cache get %d: %v", ts, err)
		case ok:
			metrics.Global.RecordCacheHit()
			return height, nil
		}
		metrics.Global.RecordCacheMiss()
	}

	height, err := r.inner.BlockAt(ctx, t)
	if err != nil {
		return 0, err
	}

	if cacheable {
		if err := r.cache.Set(ctx, ts, height); err != nil {
			r.debug("block cache set %d: %v", ts, err)
		}
	}
	return height, nil
}

func (r *CachedResolver) debug(format string, args ...any) {
	if r.log != nil {
		r.log.Debug(format, args...)
	}
}
