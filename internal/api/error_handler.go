package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
// Rules is set only for password-policy violations; RetryAfter (seconds)
// only for throttled requests.
type errorResponse struct {
	Error      string                `json:"error"`
	Rules      []domain.PasswordRule `json:"rules,omitempty"`
	RetryAfter int64                 `json:"retryAfter,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if code == http.StatusTooManyRequests && body.RetryAfter > 0 {
			c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", body.RetryAfter))
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	// Policy violations carry the ordered rule list.
	var pe *domain.PolicyError
	if errors.As(err, &pe) {
		return http.StatusBadRequest, errorResponse{
			Error: "password does not meet the strength policy",
			Rules: pe.Violations,
		}
	}

	// Throttled requests carry a retry-after hint, deliberately worded
	// apart from credential failures.
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		retryAfter := int64(rl.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return http.StatusTooManyRequests, errorResponse{
			Error:      "too many attempts, please retry later",
			RetryAfter: retryAfter,
		}
	}

	// Known domain errors → deterministic HTTP codes. Messages stay
	// generic: they never confirm or deny account existence.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusBadRequest, errorResponse{Error: "account already exists"}
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, errorResponse{Error: "session expired"}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Error: "invalid token"}
	case errors.Is(err, domain.ErrPasswordUnchanged):
		return http.StatusBadRequest, errorResponse{Error: "new password must differ from current password"}
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "too many attempts, please retry later"}
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
