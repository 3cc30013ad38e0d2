package chain

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per upstream endpoint, so a slow
// Etherscan quota never throttles CoinGecko or the node.
type RateLimiter struct {
	every   rate.Limit
	burst   int
	buckets sync.Map // endpoint -> *rate.Limiter
}

// NewRateLimiter allows ratePerSecond sustained requests per endpoint with
// bursts of up to burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{every: rate.Limit(ratePerSecond), burst: burst}
}

// Unlimited never blocks. Used for local nodes and in tests.
func Unlimited() *RateLimiter {
	return &RateLimiter{every: rate.Inf, burst: 1}
}

// Allow reports whether a request to endpoint may go out now, taking a token if so.
func (r *RateLimiter) Allow(endpoint string) bool {
	return r.bucket(endpoint).Allow()
}

// Wait blocks until endpoint has a token or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	return r.bucket(endpoint).Wait(ctx)
}

func (r *RateLimiter) bucket(endpoint string) *rate.Limiter {
	if b, ok := r.buckets.Load(endpoint); ok {
		return b.(*rate.Limiter)
	}
	b, _ := r.buckets.LoadOrStore(endpoint, rate.NewLimiter(r.every, r.burst))
	return b.(*rate.Limiter)
}
