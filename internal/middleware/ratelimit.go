package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/pdr-rating-server/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter hands out a token bucket per client IP. Clients idle for longer
// than the TTL age out of an LRU instead of a cleanup goroutine.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter allowing rps requests per second per client
func NewRateLimiter(config domain.RateLimitConfig) *RateLimiter {
	return newRateLimiter(config, clientIdleTTL)
}

func newRateLimiter(config domain.RateLimitConfig, idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(config.RequestsPerSecond),
		burst:   config.Burst,
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, idleTTL),
	}
}

// Allow reports whether clientID may make a request now
func (rl *RateLimiter) Allow(clientID string) bool {
	return rl.limiter(clientID).Allow()
}

// limiter returns the bucket for clientID, creating it on first use. Every
// call re-adds the bucket so its idle TTL restarts.
func (rl *RateLimiter) limiter(clientID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.clients.Get(clientID)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
	}
	rl.clients.Add(clientID, limiter)
	return limiter
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.CodeRateLimit,
			"Too many requests",
			"",
			GetCorrelationID(c),
		))
	}
}
