package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"eventide/internal/apperr"
	"eventide/internal/dto"
	"eventide/internal/metrics"
)

const callerKey = "caller_id"

// TokenParser turns a bearer token into the caller's user id.
type TokenParser interface {
	Parse(token string) (string, error)
}

func LoggingMiddleware(log *zerolog.Logger) gin.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("caller_id", CallerID(c)).
			Msg("request")
	}
}

// MetricsMiddleware records request counts and latency per route
// template, so path parameters do not explode label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *ginext.Context) {
		token := bearer(c)
		if token == "" {
			dto.ErrorResponse(c, apperr.New(apperr.KindUnauthenticated, "authentication required"))
			return
		}
		id, err := tokens.Parse(token)
		if err != nil {
			dto.ErrorResponse(c, err)
			return
		}
		c.Set(callerKey, id)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent. A bad token is
// still rejected.
func OptionalAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *ginext.Context) {
		token := bearer(c)
		if token == "" {
			c.Next()
			return
		}
		id, err := tokens.Parse(token)
		if err != nil {
			dto.ErrorResponse(c, err)
			return
		}
		c.Set(callerKey, id)
		c.Next()
	}
}

// StoredFileHeaders is applied to the stored-files route. Certificates are
// organizer-authored HTML served from the API origin, so they render in a
// sandbox with no script access to the site.
func StoredFileHeaders(baseURL string) gin.HandlerFunc {
	certificates := strings.TrimRight(baseURL, "/") + "/certificates/"
	return func(c *ginext.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		if strings.HasPrefix(c.Request.URL.Path, certificates) {
			c.Header("Content-Security-Policy", "sandbox; default-src 'none'; img-src * data:; style-src 'unsafe-inline' *; font-src *")
		}
		c.Next()
	}
}

// CallerID returns the authenticated user id, or "" for anonymous requests.
func CallerID(c *ginext.Context) string {
	return c.GetString(callerKey)
}

// bearer reads the Authorization header. Browsers cannot set headers on
// WebSocket handshakes, so the token query parameter is accepted too.
func bearer(c *ginext.Context) string {
	h := c.GetHeader("Authorization")
	if h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}
