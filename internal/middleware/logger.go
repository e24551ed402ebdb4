package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rimasko/orkpulse/internal/logger"
)

// RequestLogger logs method, path, status, latency and the request id (when
// RequestID() ran earlier in the chain) for every request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		rid, _ := c.Get(RequestIDKey)
		logger.L().Info().
			Str("request_id", toString(rid)).
			Str("method", method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

type rateClient struct {
	lastSeen time.Time
	count    int
}

var (
	rateClients = make(map[string]*rateClient)
	rateWindow  = time.Minute
	rateLimit   = 60
	rateMu      sync.Mutex
)

// RateLimiter caps requests per client IP at rateLimit per rateWindow.
// In-memory only; a multi-instance deployment needs a shared store instead.
func RateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		rateMu.Lock()
		cl, ok := rateClients[ip]
		if !ok || now.Sub(cl.lastSeen) > rateWindow {
			cl = &rateClient{lastSeen: now, count: 1}
			rateClients[ip] = cl
		} else {
			cl.count++
			cl.lastSeen = now
		}
		exceeded := cl.count > rateLimit
		rateMu.Unlock()

		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
