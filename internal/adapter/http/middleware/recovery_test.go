package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/adapter/http/dto"
	"github.com/iho/dealsync/internal/infrastructure/logger"
)

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	var logs bytes.Buffer
	rr := httptest.NewRecorder()

	NewRecovery(zerolog.New(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/companies/1/sync", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}

	var body dto.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "internal server error" {
		t.Fatalf("unexpected error body: %+v", body)
	}
	if !strings.Contains(logs.String(), `"panic":"boom"`) {
		t.Fatalf("panic not logged: %s", logs.String())
	}
}

func TestRecovery_PrefersRequestLogger(t *testing.T) {
	var fallbackLogs, requestLogs bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/1/sync-runs", nil)
	reqLogger := zerolog.New(&requestLogs).With().Str("request_id", "req-7").Logger()
	req = req.WithContext(logger.WithContext(req.Context(), reqLogger))

	NewRecovery(zerolog.New(&fallbackLogs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	})).ServeHTTP(httptest.NewRecorder(), req)

	if fallbackLogs.Len() != 0 {
		t.Fatalf("fallback logger should stay silent, got %s", fallbackLogs.String())
	}
	if !strings.Contains(requestLogs.String(), `"request_id":"req-7"`) {
		t.Fatalf("request logger not used: %s", requestLogs.String())
	}
}

func TestRecovery_PassesThroughWithoutPanic(t *testing.T) {
	rr := httptest.NewRecorder()

	NewRecovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
}
