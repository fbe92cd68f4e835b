package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RPS   float64
	Burst int
	// TTL bounds how long an idle client keeps its limiter.
	TTL time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RPS:   20,
		Burst: 40,
		TTL:   10 * time.Minute,
	}
}

// RateLimiter keeps one token bucket per client IP in an expiring cache,
// so idle clients do not accumulate forever.
type RateLimiter struct {
	limiters *cache.Cache
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	return &RateLimiter{
		limiters: cache.New(config.TTL, 2*config.TTL),
		rps:      rate.Limit(config.RPS),
		burst:    config.Burst,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	if v, ok := rl.limiters.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.limiters.SetDefault(ip, limiter)
	return limiter
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				},
			})
			return
		}
		c.Next()
	}
}
