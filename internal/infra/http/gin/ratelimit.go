package ginserver

import (
	"math"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"
)

const headerRateLimitReset = "X-RateLimit-Reset"

// Limiter is satisfied by ratelimit.Limiter.
type Limiter interface {
	Take(key string) (bool, time.Time)
}

// RateLimit throttles callers by API key, falling back to the client IP.
func RateLimit(l Limiter, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if p, ok := currentPrincipal(c); ok && p.ID != "" {
			key = "key:" + p.ID
		}
		allowed, reset := l.Take(key)
		if !reset.IsZero() {
			c.Header(headerRateLimitReset, strconv.FormatInt(reset.Unix(), 10))
		}
		if !allowed {
			wait := int(math.Ceil(reset.Sub(now()).Seconds()))
			if wait < 1 {
				wait = 1
			}
			c.Header("Retry-After", strconv.Itoa(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
