package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/infrastructure/logger"
)

// LoggingMiddleware logs HTTP requests and attaches a request-scoped logger
// to the request context.
type LoggingMiddleware struct {
	logger zerolog.Logger
}

func NewLoggingMiddleware(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// probes are polled by the orchestrator and logged at debug level.
var probes = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

func (m *LoggingMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLogger := m.logger
		if id := chimw.GetReqID(r.Context()); id != "" {
			reqLogger = reqLogger.With().Str("request_id", id).Logger()
		}
		r = r.WithContext(logger.WithContext(r.Context(), reqLogger))

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = reqLogger.Error()
		case status >= http.StatusBadRequest:
			event = reqLogger.Warn()
		case probes[r.URL.Path]:
			event = reqLogger.Debug()
		default:
			event = reqLogger.Info()
		}

		// URL params are filled in by the router once next has run.
		if companyID := chi.URLParam(r, "companyID"); companyID != "" {
			event = event.Str("company_id", companyID)
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request completed")
	})
}
