package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/elimu/core"
)

// requestLogger logs one line per request through the app logger.
func requestLogger(logger core.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if logger == nil {
				return nil
			}
			kvs := []interface{}{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String()}
			if v.Error != nil {
				logger.Warn("request failed", append(kvs, "error", v.Error.Error())...)
				return nil
			}
			logger.Info("request", kvs...)
			return nil
		},
	})
}

// authorize resolves the caller's roles and rejects those that do not satisfy req.
// It must run after the JWT middleware.
func authorize(ua *userAPI, req Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := ua.resolveIdentity(ctx)
			if err != nil {
				return err
			}
			if !req.allows(id.Roles) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// guard returns the JWT check followed by the role check for req.
func guard(jwt echo.MiddlewareFunc, ua *userAPI, req Requirement) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{jwt, authorize(ua, req)}
}
