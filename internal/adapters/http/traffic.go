package httpadapter

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// clientLimiters keeps one token bucket per client address.
type clientLimiters struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(rps)))
	}
	return &clientLimiters{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
	}
}

func (c *clientLimiters) allow(client string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) > limiterIdleTTL {
		for key, entry := range c.limiters {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(c.limiters, key)
			}
		}
		c.lastSweep = now
	}

	entry, ok := c.limiters[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.limiters[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (c *clientLimiters) retryAfterSeconds() int {
	if c.rps <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/float64(c.rps))))
}

func rateLimitMiddleware(next http.Handler, rps float64, burst int, onReject func()) http.Handler {
	if rps <= 0 {
		return next
	}
	limiters := newClientLimiters(rps, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if !limiters.allow(clientAddr(r), time.Now()) {
			if onReject != nil {
				onReject()
			}
			w.Header().Set("Retry-After", strconv.Itoa(limiters.retryAfterSeconds()))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware admits at most maxInFlight requests; others wait up
// to wait for a slot and are then refused with 503.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	slots := make(chan struct{}, maxInFlight)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
		case <-timer.C:
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server is busy, retry later"})
			return
		case <-r.Context().Done():
			return
		}
		defer func() { <-slots }()

		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
