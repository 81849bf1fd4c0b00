package chi

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// maxLimiters bounds the per-client table; it is flushed when full.
const maxLimiters = 10000

// clientLimiter keeps one token bucket per client (API key, else remote IP).
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (c *clientLimiter) allow(client string) bool {
	c.mu.Lock()
	l, ok := c.limiters[client]
	if !ok {
		if len(c.limiters) >= maxLimiters {
			c.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(c.rps, c.burst)
		c.limiters[client] = l
	}
	c.mu.Unlock()
	return l.Allow()
}

// RateLimitMiddleware rejects requests beyond rps per client with 429.
// A non-positive rps disables limiting.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newClientLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientKey(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, codeRateLimited, domain.ErrRateLimited.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey buckets by the key APIKeyAuth would read, so "bearer" and
// "Bearer" share one limiter.
func clientKey(r *http.Request) string {
	if token, _ := credential(r); token != "" {
		return "key:" + token
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
