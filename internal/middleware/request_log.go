package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ActorHeader carries the caller-supplied actor recorded on transfers.
const ActorHeader = "X-Actor"

// RequestLogger logs every request through zerolog. Mutations log at info,
// reads at debug, and failures at warn or error by status class.
type RequestLogger struct {
	logger zerolog.Logger
}

func NewRequestLogger(logger zerolog.Logger) *RequestLogger {
	return &RequestLogger{logger: logger.With().Str("component", "http").Logger()}
}

func (m *RequestLogger) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			if m.shouldSkipLogging(req.Method, req.URL.Path) && err == nil {
				return nil
			}

			status := c.Response().Status
			event := m.level(req.Method, status, err)
			event.
				Str("method", req.Method).
				Str("path", c.Path()).
				Str("uri", req.RequestURI).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())
			if actor := req.Header.Get(ActorHeader); actor != "" {
				event.Str("actor", actor)
			}
			if err != nil {
				event.Err(err)
			}
			event.Msg("request")
			return nil
		}
	}
}

func (m *RequestLogger) level(method string, status int, err error) *zerolog.Event {
	switch {
	case status >= 500:
		return m.logger.Error()
	case status >= 400 || err != nil:
		return m.logger.Warn()
	case method == "POST" || method == "PUT" || method == "PATCH" || method == "DELETE":
		return m.logger.Info()
	}
	return m.logger.Debug()
}

// shouldSkipLogging drops probe traffic.
func (m *RequestLogger) shouldSkipLogging(method, path string) bool {
	return method == "GET" && (strings.HasPrefix(path, "/health") || path == "/favicon.ico")
}
