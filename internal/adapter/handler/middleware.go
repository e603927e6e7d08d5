package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
	"github.com/rl1809/lost-found/internal/core/service"
)

const userContextKey = "user"

// BasicAuth authenticates every request against the user store. Unknown,
// disabled or wrongly authenticated users get a 401.
func BasicAuth(users *service.UserService, logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "lost-found",
		Validator: func(username, password string, c echo.Context) (bool, error) {
			u, err := users.Authenticate(c.Request().Context(), username, password)
			if errors.Is(err, service.ErrInvalidCredentials) {
				logger.Debug("authentication failed", zap.String("username", username))
				return false, nil
			}
			if err != nil {
				return false, err
			}
			c.Set(userContextKey, u)
			return true, nil
		},
	})
}

// RequireRole rejects authenticated users lacking role with a 403.
func RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := currentUser(c)
			if !ok {
				return echo.ErrUnauthorized
			}
			if u.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "Access denied")
			}
			return next(c)
		}
	}
}

func currentUser(c echo.Context) (domain.User, bool) {
	u, ok := c.Get(userContextKey).(domain.User)
	return u, ok
}

// RequestLogger logs one line per request with its id and latency.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler pick the status before we log it
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			logger.Info("http request",
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}
	}
}

func requestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}
