package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"huntbooking/internal/pkg/response"
)

// ErrorLogger logs failed requests and recovers from panics.
func ErrorLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%v", recovered)
				requestEvent(log.Error(), c, start).
					Str("type", "panic").
					Bytes("stack", debug.Stack()).
					Err(err).
					Msg("request panicked")
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error")
				return
			}

			if len(c.Errors) == 0 {
				if c.Writer.Status() >= http.StatusInternalServerError {
					requestEvent(log.Error(), c, start).Str("type", "http_error").Msg("request failed")
				}
				return
			}

			for _, err := range c.Errors {
				ev := requestEvent(log.Error(), c, start).Str("type", fmt.Sprintf("%v", err.Type)).Err(err.Err)
				if err.Meta != nil {
					ev = ev.Interface("meta", err.Meta)
				}
				ev.Msg("request error")
			}
		}()

		c.Next()
	}
}

func requestEvent(ev *zerolog.Event, c *gin.Context, start time.Time) *zerolog.Event {
	return ev.
		Int("status", c.Writer.Status()).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("query", c.Request.URL.RawQuery).
		Str("client_ip", c.ClientIP()).
		Str("email", c.GetString("email")).
		Str("role", c.GetString("role")).
		Str("request_id", requestID(c)).
		Dur("latency", time.Since(start))
}

func requestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = c.GetHeader("X-Request-Id")
	}
	return id
}
