package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ward/ward/internal/platform/auth"
)

// Audit logs every state-changing /api request with the acting user, the
// matched route and the outcome. Reads are not audited.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodGet || req.Method == http.MethodHead || req.Method == http.MethodOptions ||
				!strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}

			rid, _ := c.Get(RequestIDKey).(string)
			logger.Info().
				Str("audit", "write").
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(req.Context())).
				Strs("roles", auth.RolesFromContext(req.Context())).
				Str("method", req.Method).
				Str("route", c.Path()).
				Str("resource_id", c.Param("id")).
				Int("status", status).
				Msg("audit")

			return err
		}
	}
}
