package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands out one token bucket per client and action.
type rateLimiter struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	entries map[string]*limiterEntry
	sweptAt time.Time
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &rateLimiter{
		rate:    rate.Limit(perSecond),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *rateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.sweptAt) > limiterIdleTTL {
		for k, entry := range l.entries {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.entries, k)
			}
		}
		l.sweptAt = now
	}
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (s *Server) limit(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := currentUser(c)
		if client == "" {
			client = c.ClientIP()
		}
		if !s.limiter.allow(action+":"+client, time.Now()) {
			abortWith(c, http.StatusTooManyRequests, "too many requests", "rate_limited")
			return
		}
		c.Next()
	}
}
