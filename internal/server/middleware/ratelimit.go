package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 10 * time.Minute
	limiterIdleAfter  = 30 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per key and forgets keys that have
// been idle for limiterIdleAfter.
type limiterSet[K comparable] struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[K]*limiterEntry
}

func newLimiterSet[K comparable](ctx context.Context, rps float64, burst int) *limiterSet[K] {
	s := &limiterSet[K]{
		limit:   rate.Limit(rps),
		burst:   burst,
		entries: make(map[K]*limiterEntry),
	}
	go s.sweepLoop(ctx)
	return s
}

func (s *limiterSet[K]) allow(key K, now time.Time) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	s.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (s *limiterSet[K]) sweep(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

func (s *limiterSet[K]) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.sweep(now.Add(-limiterIdleAfter))
		case <-ctx.Done():
			return
		}
	}
}

// limitBy rejects requests over the per-key rate. Requests key cannot place
// pass through.
func limitBy[K comparable](ctx context.Context, rps float64, burst int, key func(*http.Request) (K, bool)) func(http.Handler) http.Handler {
	set := newLimiterSet[K](ctx, rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, ok := key(r)
			if ok && !set.allow(k, time.Now()) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits requests per client address. It runs in front of
// the WebSocket handshake, before the caller is known; chi's RealIP has
// already rewritten RemoteAddr.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	return limitBy(ctx, requestsPerSecond, burst, func(r *http.Request) (string, bool) {
		return r.RemoteAddr, true
	})
}

// RateLimit limits requests per authenticated user. Requests without an
// identity are left to RateLimitByIP.
func RateLimit(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	return limitBy(ctx, requestsPerSecond, burst, func(r *http.Request) (uuid.UUID, bool) {
		return UserIDFromContext(r.Context())
	})
}
