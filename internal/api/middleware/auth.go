package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/subtrackr/subscription-tracker/internal/core/token"
)

// SubjectKey is the echo context key under which Auth stores the verified
// subject id.
const SubjectKey = "subject"

// Auth verifies the bearer access token and injects the subject id into
// the request context. An expired token yields a distinct message so the
// client knows to refresh rather than re-authenticate from scratch.
func Auth(codec *token.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			subject, err := codec.Verify(parts[1], token.KindAccess)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(SubjectKey, subject)
			return next(c)
		}
	}
}
