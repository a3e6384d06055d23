package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/labstack/echo/v4"
)

const userContextKey = "auth_user"

// Metrics records per-route request counts and latencies. The route
// template is used as the label, not the raw URL, so cardinality stays
// bounded.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, okCast := err.(*echo.HTTPError); okCast {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			code := strconv.Itoa(status)

			util.HTTPRequestDuration.WithLabelValues(method, path, code).
				Observe(time.Since(start).Seconds())
			util.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()

			return err
		}
	}
}

// RequireAuth validates the bearer token and stores the account on the
// request context.
func RequireAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return fail(c, util.UnauthorizedError("missing_token",
					"authorization header with bearer token is required"))
			}

			user, err := auth.VerifyToken(token)
			if err != nil {
				return fail(c, err)
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
