package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// Middleware tags each request with a request id (taken from X-Request-Id or
// generated) and installs a logger carrying it on the request context.
// Handlers and the services they call log through From(ctx).
//
// The access line is logged at a level chosen by status: 5xx error, 4xx warn,
// health probes debug, everything else info.
func Middleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(headerRequestID, rid)
		c.Request = c.Request.WithContext(With(c.Request.Context(), l.With("request_id", rid)))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		// Later middleware (auth) may have enriched the request logger.
		log := From(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("http request", attrs...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", attrs...)
		case route == "/healthz":
			log.Debug("http request", attrs...)
		default:
			log.Info("http request", attrs...)
		}
	}
}

// FromGin returns the request logger, including attributes added after the
// request id (such as user_id).
func FromGin(c *gin.Context) *slog.Logger {
	return From(c.Request.Context())
}
