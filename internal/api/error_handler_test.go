package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
)

func renderError(t *testing.T, err error) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	return rec, body
}

func TestHTTPErrorHandler_ServiceUnavailable(t *testing.T) {
	rec, body := renderError(t, domain.ErrServiceUnavailable)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body.Error != "service temporarily unavailable" {
		t.Fatalf("unexpected message: %q", body.Error)
	}
}

func TestHTTPErrorHandler_UnknownErrorIsGeneric(t *testing.T) {
	rec, body := renderError(t, errors.New("pipeline exploded"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body.Error != "internal server error" {
		t.Fatalf("internal detail leaked: %q", body.Error)
	}
}
