package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/subtrackr/subscription-tracker/internal/api/middleware"
)

// ctxSubject extracts the subject id injected by the Auth middleware. Its
// presence proves the middleware ran; an empty value means the route was
// wired without it — reject with 401 rather than serve an anonymous call.
func ctxSubject(c echo.Context) (string, error) {
	subject, _ := c.Get(middleware.SubjectKey).(string)
	if subject == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return subject, nil
}
