package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 10 * time.Minute
	limiterIdleAfter  = 30 * time.Minute

	// batchCost is what one /tasks/batch/* request draws from its workspace
	// bucket; each one fans out to up to 100 task transactions.
	batchCost = 10
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet hands out one token bucket per key and forgets keys that have
// been idle for limiterIdleAfter.
type limiterSet[K comparable] struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[K]*limiterEntry
}

func newLimiterSet[K comparable](ctx context.Context, rps float64, burst int) *limiterSet[K] {
	s := &limiterSet[K]{
		limit:   rate.Limit(rps),
		burst:   burst,
		entries: make(map[K]*limiterEntry),
	}
	go s.sweepUntilDone(ctx)
	return s
}

func (s *limiterSet[K]) get(key K, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastAccess = now
	return e.limiter
}

func (s *limiterSet[K]) sweepUntilDone(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			cutoff := now.Add(-limiterIdleAfter)
			s.mu.Lock()
			for k, e := range s.entries {
				if e.lastAccess.Before(cutoff) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// take draws cost tokens from lim. When the bucket is short it returns the
// wait until the request would have been admitted.
func take(lim *rate.Limiter, cost int, now time.Time) (time.Duration, bool) {
	if cost > lim.Burst() {
		cost = lim.Burst()
	}
	res := lim.ReserveN(now, cost)
	if !res.OK() {
		return time.Second, false
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return d, false
	}
	return 0, true
}

func writeRateLimited(w http.ResponseWriter, wait time.Duration) {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"type":"urn:taskflow:error:RATE_LIMITED","title":"Too Many Requests","status":429,"detail":"rate limit exceeded, retry in %ds"}`, secs)
}

func requestCost(r *http.Request) int {
	if strings.Contains(r.URL.Path, "/tasks/batch/") {
		return batchCost
	}
	return 1
}

// RateLimitByIP limits unauthenticated endpoints per client address. The
// port is ignored so one client gets one bucket across connections; chi's
// RealIP may already have replaced RemoteAddr with a bare IP.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	set := newLimiterSet[string](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}

			now := time.Now()
			if wait, ok := take(set.get(ip, now), 1, now); !ok {
				log.Debug().Str("remote_addr", ip).Msg("ratelimit: ip limit exceeded")
				writeRateLimited(w, wait)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit shares one bucket per workspace across its members. Batch
// requests draw batchCost tokens, everything else one. Requests without a
// workspace in context pass through.
func RateLimit(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	set := newLimiterSet[uuid.UUID](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			workspaceID, ok := WorkspaceIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			cost := requestCost(r)
			if wait, ok := take(set.get(workspaceID, now), cost, now); !ok {
				ev := log.Warn().
					Str("workspace_id", workspaceID.String()).
					Int("cost", cost).
					Dur("retry_after", wait)
				if userID, ok := UserIDFromContext(r.Context()); ok {
					ev = ev.Str("user_id", userID.String())
				}
				ev.Msg("ratelimit: workspace limit exceeded")
				writeRateLimited(w, wait)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
