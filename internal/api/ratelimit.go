package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	app_errors "search-chat/backend/internal/errors"
	"search-chat/backend/internal/identity"
)

// limiterIdleTTL is how long an identity's limiter survives without traffic.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key. The key comes from a
// Resolver; it should be one the client cannot choose freely, such as the
// connection address.
type RateLimiter struct {
	resolver identity.Resolver
	limit    rate.Limit
	burst    int

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(resolver identity.Resolver, rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		resolver:  resolver,
		limit:     rate.Limit(rps),
		burst:     burst,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether id may make a request now.
func (l *RateLimiter) Allow(id string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[id]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests over quota with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := l.resolver.Resolve(w, r)
		if err != nil {
			respondWithError(w, err)
			return
		}
		if !l.Allow(id) {
			slog.Debug("Rate limit exceeded", "identity", id, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			respondWithError(w, app_errors.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
