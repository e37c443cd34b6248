package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/infrastructure/logger"
)

func TestLoggingMiddleware_LogsRequestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggingMiddleware(zerolog.New(&buf))

	var scoped bool
	handler := chimw.RequestID(mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context(), zerolog.Nop())
		log.Info().Msg("inside handler")
		scoped = true
		w.WriteHeader(http.StatusAccepted)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/companies/1/sync-runs", nil))

	if !scoped {
		t.Fatalf("handler was not called")
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var inner, completed map[string]any
	if err := json.Unmarshal(lines[0], &inner); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(lines[1], &completed); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if inner["request_id"] == nil || inner["request_id"] != completed["request_id"] {
		t.Fatalf("expected shared request_id, got %v and %v", inner["request_id"], completed["request_id"])
	}
	if completed["status"] != float64(http.StatusAccepted) {
		t.Fatalf("unexpected status field: %v", completed["status"])
	}
	if completed["level"] != "info" {
		t.Fatalf("unexpected level: %v", completed["level"])
	}
}

func TestLoggingMiddleware_ServerErrorsLogAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggingMiddleware(zerolog.New(&buf))

	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/companies/1/sync", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["level"] != "error" {
		t.Fatalf("expected error level, got %v", entry["level"])
	}
}

func TestLoggingMiddleware_LevelByOutcome(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{"client error", "/api/v1/companies/1/sync", http.StatusConflict, "warn"},
		{"readiness probe", "/ready", http.StatusOK, "debug"},
		{"failing probe", "/ready", http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := NewLoggingMiddleware(zerolog.New(&buf))

			mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			var entry map[string]any
			if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if entry["level"] != tt.want {
				t.Fatalf("expected %s level, got %v", tt.want, entry["level"])
			}
		})
	}
}

func TestLoggingMiddleware_LogsCompanyFromRoute(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(zerolog.New(&buf)).Wrap)
	r.Get("/api/v1/companies/{companyID}/sync-runs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/companies/42/sync-runs", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["company_id"] != "42" {
		t.Fatalf("expected company_id 42, got %v", entry["company_id"])
	}
	if entry["bytes"] != float64(2) {
		t.Fatalf("expected 2 bytes, got %v", entry["bytes"])
	}
}
