package handler

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"velaris/internal/provider"
	"velaris/pkg/metrics"
)

// APIKeyAuth returns a Gin middleware that enforces X-API-Key header validation.
// If key is empty, the middleware is a no-op (auth disabled).
func APIKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-API-Key header"})
			return
		}
		if provided != key {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request through zerolog.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := log.Info()
		switch {
		case status >= 500:
			evt = log.Error()
		case status >= 400:
			evt = log.Warn()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Metrics records request counts and latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route, c.Request.Method, metrics.StatusClass(status)).Observe(time.Since(start).Seconds())
	}
}

// SessionLimiter gives every chat session its own token bucket. Buckets that
// sit full for a while are forgotten.
type SessionLimiter struct {
	mu        sync.Mutex
	perMinute int
	buckets   map[string]*provider.RateLimiter
	lastSweep time.Time
	idleAfter time.Duration
}

// NewSessionLimiter returns nil when perMinute is not positive, which allows
// everything.
func NewSessionLimiter(perMinute int) *SessionLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &SessionLimiter{
		perMinute: perMinute,
		buckets:   make(map[string]*provider.RateLimiter),
		lastSweep: time.Now(),
		idleAfter: 10 * time.Minute,
	}
}

func (l *SessionLimiter) Allow(sessionID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastSweep) > l.idleAfter {
		for id, b := range l.buckets {
			if b.Idle(l.idleAfter) {
				delete(l.buckets, id)
			}
		}
		l.lastSweep = time.Now()
	}

	b, ok := l.buckets[sessionID]
	if !ok {
		b = provider.NewRateLimiter(l.perMinute, time.Minute/time.Duration(l.perMinute))
		l.buckets[sessionID] = b
	}
	return b.Allow()
}
