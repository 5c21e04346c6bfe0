package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RequestLoggingMiddleware emits one structured log line per HTTP request.
func RequestLoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Log(c.Request.Context(), level, "request completed",
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status_code", status,
			"latency_ms", float64(latency)/float64(time.Millisecond),
		)
	}
}

// AuthMiddleware enforces bearer API key authentication using a constant time comparison.
func AuthMiddleware(expectedKey string, logger *slog.Logger) gin.HandlerFunc {
	expected := []byte(expectedKey)
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			unauthorized(c)
			logger.Warn("missing or unsupported authorization header", "client_ip", c.ClientIP())
			return
		}

		provided := []byte(strings.TrimSpace(token))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			unauthorized(c)
			logger.Warn("invalid api key", "client_ip", c.ClientIP())
			return
		}

		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
}

// RedisRateLimitMiddleware allows limit requests per client IP per fixed window, counted in Redis.
func RedisRateLimitMiddleware(client *redis.Client, limit int64, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		key := fmt.Sprintf("netprobe:ratelimit:%s", c.ClientIP())
		pipe := client.TxPipeline()
		counter := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Error("rate limiter redis error", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}

		if counter.Val() > limit {
			logger.Warn("rate limit exceeded", "client_ip", c.ClientIP(), "count", counter.Val())
			tooManyRequests(c)
			return
		}

		c.Next()
	}
}

// MemoryRateLimitMiddleware applies a per-client token bucket refilled at
// limit tokens per window, for deployments without Redis.
func MemoryRateLimitMiddleware(limit int64, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	limiters := newClientLimiters(limit, window, time.Now)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiters.allow(ip) {
			logger.Warn("rate limit exceeded", "client_ip", ip)
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one token bucket per client. A bucket idle for a full
// window has refilled completely, so it is dropped on the next sweep.
type clientLimiters struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(limit int64, window time.Duration, now func() time.Time) *clientLimiters {
	burst := max(limit, 1)
	return &clientLimiters{
		visitors:  make(map[string]*visitor),
		every:     rate.Every(window / time.Duration(burst)),
		burst:     int(burst),
		idle:      window,
		lastSweep: now(),
		now:       now,
	}
}

func (l *clientLimiters) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.idle {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[client]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[client] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// SecurityHeadersMiddleware adds standard security headers to each response.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		headers := c.Writer.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'")
		c.Next()
	}
}
