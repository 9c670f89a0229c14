package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger attaches a request-scoped logger carrying a request_id to the request
// context and logs one line per request once the handler returns. Server
// errors are logged at error level, client errors at warn.
func Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		requestID := req.Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

		// Render the error here so the logged status is the one the client gets.
		if err := next(c); err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		level := zerolog.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		logger.WithLevel(level).
			Str("method", req.Method).
			Str("endpoint", req.URL.Path).
			Str("route", c.Path()).
			Str("remote_ip", c.RealIP()).
			Int("status", status).
			Int64("bytes_out", c.Response().Size).
			Int64("latency", time.Since(start).Milliseconds()).
			Msg("Request processed")

		return nil
	}
}
