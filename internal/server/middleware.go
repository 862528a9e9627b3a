package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eli5/handler"
)

const correlationKey = "correlation_id"

// RequestLogger tags each request with a correlation id and logs its outcome.
func RequestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		corrID := handler.CorrelationID(c.GetHeader(handler.CorrelationHeader))
		c.Header(handler.CorrelationHeader, corrID)
		c.Set(correlationKey, corrID)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"correlation_id", corrID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			l.ErrorContext(ctx, "request", attrs...)
		case status >= 400:
			l.WarnContext(ctx, "request", attrs...)
		default:
			l.InfoContext(ctx, "request", attrs...)
		}
	}
}

// CORS allows the listed browser origins and answers preflight requests.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed[origin] || allowed["*"] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+handler.CorrelationHeader)
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
