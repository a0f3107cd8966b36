package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tranvd/cinebook/api"
	"github.com/tranvd/cinebook/internal/mailer"
	"github.com/tranvd/cinebook/internal/pricing"
	"github.com/tranvd/cinebook/internal/validator"
)

func newTestApplication(opts ...func(*application)) *application {
	app := &application{
		validator: validator.NewValidator(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		pricing:   pricing.New(pricing.DefaultConfig()),
		mailer:    mailer.NewMockMailer(),
	}

	app.config.jwt.secret = "test-secret"
	app.config.booking.holdTTL = 10 * time.Minute
	app.config.booking.sweepInterval = time.Minute
	app.config.showtime.cleaningGap = 15 * time.Minute

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// setupAuthContext injects the claims that requireAuthentication would have
// extracted from a valid token.
func setupAuthContext(r *http.Request, userId int, email string) *http.Request {
	ctx := context.WithValue(r.Context(), contextKeyUserId, userId)
	ctx = context.WithValue(ctx, contextKeyUserEmail, email)

	return r.WithContext(ctx)
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(method, url, bytes.NewReader(jsonData))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
