package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harvesta/companion/internal/infra/config"
	"github.com/harvesta/companion/pkg/util"
)

const visitorTTL = 5 * time.Minute

// errorHandlingMiddleware renders the last error recorded on the context.
// Errors that are not HTTPErrors are mapped by their application code.
func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		message := httpErr.Message
		if message == "" {
			message = http.StatusText(httpErr.Status)
		}

		attrs := []any{"code", httpErr.Code, "status", httpErr.Status, "method", c.Request.Method, "path", c.Request.URL.Path, "error", httpErr.Err}
		if sess, ok := getSession(c); ok {
			attrs = append(attrs, "session", sess.ID)
		}
		if httpErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request failed", attrs...)
		}

		c.JSON(httpErr.Status, gin.H{
			"error": gin.H{
				"code":    httpErr.Code,
				"message": message,
			},
		})
	}
}

func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// rateLimitMiddleware keeps one token bucket per bearer token, falling back
// to the client IP for unauthenticated calls.
func rateLimitMiddleware(cfg config.RateLimitConfig, clock util.Clock, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newClientRateLimiter(cfg, clock)
	return func(c *gin.Context) {
		key := clientKey(c)
		wait, ok := limiter.allow(key)
		if ok {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "ip", c.ClientIP(), "path", c.Request.URL.Path)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

func clientKey(c *gin.Context) string {
	if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
		return "token:" + token
	}
	return "ip:" + c.ClientIP()
}

type clientRateLimiter struct {
	mu            sync.Mutex
	clients       map[string]*bucket
	ratePerMinute float64
	burst         float64
	now           util.Clock
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

func newClientRateLimiter(cfg config.RateLimitConfig, clock util.Clock) *clientRateLimiter {
	return &clientRateLimiter{
		clients:       make(map[string]*bucket),
		ratePerMinute: float64(cfg.RequestsPerMinute),
		burst:         math.Max(1, float64(cfg.Burst)),
		now:           clock.OrDefault(),
	}
}

// allow takes one token for key. When none is left it reports how long
// until the next one.
func (l *clientRateLimiter) allow(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.clients[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastSeen: now}
		l.clients[key] = b
	} else {
		if elapsed := now.Sub(b.lastSeen).Minutes(); elapsed > 0 {
			b.tokens = math.Min(l.burst, b.tokens+elapsed*l.ratePerMinute)
		}
		b.lastSeen = now
	}
	l.evictLocked(now)
	if b.tokens < 1 {
		missing := 1 - b.tokens
		return time.Duration(missing / l.ratePerMinute * float64(time.Minute)), false
	}
	b.tokens--
	return 0, true
}

func (l *clientRateLimiter) evictLocked(now time.Time) {
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) > visitorTTL {
			delete(l.clients, key)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
