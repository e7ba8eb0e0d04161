package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"greendrake/freight/internal/config"
	"greendrake/freight/internal/utils"
)

const (
	limiterIdleTTL         = 30 * time.Minute
	limiterCleanupInterval = 10 * time.Minute
)

// clientLimiter stores rate limiters for a specific client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware keeps a soft and a hard token bucket per client.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	now     func() time.Time
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. Idle clients are pruned until ctx is done.
func NewRateLimiterMiddleware(ctx context.Context, cfg *config.Config) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		now:     time.Now,
	}
	go rm.cleanupClients(ctx)
	return rm
}

// getClientIdentifier creates a unique key based on IP, Fingerprint, and SPA Session ID.
func getClientIdentifier(c *gin.Context) string {
	return fmt.Sprintf("%s|%s|%s", c.ClientIP(), c.GetHeader("X-BFP"), c.GetHeader("X-SPA"))
}

func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitSoftRefillRate), rm.cfg.RateLimitSoftBucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitHardRefillRate), rm.cfg.RateLimitHardBucketSize),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = rm.now()
	return limiter
}

func (rm *RateLimiterMiddleware) cleanupClients(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rm.prune(); n > 0 {
				utils.Debug("rate limiter cleanup", map[string]any{"removed": n})
			}
		}
	}
}

// prune drops clients idle for longer than limiterIdleTTL and returns how many went.
func (rm *RateLimiterMiddleware) prune() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if rm.now().Sub(client.lastSeen) > limiterIdleTTL {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// Limit creates the Gin middleware handler. It expects CaptchaMiddleware to run first.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		limiter := rm.getClientLimiter(clientKey)

		if !limiter.hardLimiter.Allow() {
			utils.Warn("hard rate limit exceeded", map[string]any{"client": clientKey, "path": c.FullPath()})
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		isHuman := c.GetBool(ContextKeyIsHumanVerified)
		if !isHuman && !limiter.softLimiter.Allow() {
			utils.Info("soft rate limit exceeded, captcha required", map[string]any{"client": clientKey, "path": c.FullPath()})
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"error": "Captcha validation required"})
			return
		}

		c.Next()
	}
}
