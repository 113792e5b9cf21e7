package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/quizhive/quizhive/companion/go-client/pkg/metrics"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware enforces a token-bucket limit per client IP. Applied
// to the credential endpoints so repeated failed logins are slowed down.
// rps = allowed events per second, burst = maximum tokens in bucket.
// Each middleware instance keeps its own per-key limiter store.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var limiters sync.Map // map[string]*rate.Limiter
	getLimiter := func(key string) *rate.Limiter {
		if v, ok := limiters.Load(key); ok {
			return v.(*rate.Limiter)
		}
		lim := rate.NewLimiter(rate.Limit(rps), burst)
		actual, _ := limiters.LoadOrStore(key, lim)
		return actual.(*rate.Limiter)
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		lim := getLimiter("ip:" + ip)
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
