package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client and action.
type rateLimiter struct {
	mu      sync.Mutex
	perMin  int
	clock   clockwork.Clock
	entries map[string]*limiterEntry
}

func newRateLimiter(perMinute int, clock clockwork.Clock) *rateLimiter {
	return &rateLimiter{
		perMin:  perMinute,
		clock:   clock,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *rateLimiter) allow(key string) bool {
	if l == nil || l.perMin <= 0 {
		return true
	}
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		burst := l.perMin / 6
		if burst < 1 {
			burst = 1
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(float64(l.perMin)/60), burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	allowed := entry.limiter.AllowN(now, 1)
	l.sweep(now)
	return allowed
}

func (l *rateLimiter) sweep(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.entries, key)
		}
	}
}

func (s *Server) enforceRateLimit(c *gin.Context, action string) bool {
	if s.limiter.allow(action + ":" + c.ClientIP()) {
		return true
	}
	writeError(c, http.StatusTooManyRequests, "too many requests")
	c.Abort()
	return false
}
