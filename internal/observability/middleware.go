package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// routePath is the registered route, or the raw path for unmatched requests.
func routePath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}

// channelKey is the decoder channel a status request addresses, if any.
func channelKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// RequestLogger logs one line per status request. Channel lookups carry the
// channel key; misses and server errors are raised to warn and error.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		default:
			event = logger.Debug()
		}
		if key := channelKey(c); key != "" {
			event = event.Str("channel", key)
		}
		event.
			Str("method", c.Request.Method).
			Str("route", routePath(c)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("status request")
	}
}

// RequestMetrics records request counts and latency by route, and channel
// lookups by key and outcome.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		RecordHTTPRequest(c.Request.Method, routePath(c), status, time.Since(start))
		if key := channelKey(c); key != "" {
			RecordChannelLookup(key, status == http.StatusOK)
		}
	}
}
