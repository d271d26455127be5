package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// instrumentHandler records the request metric and a debug log line per
// request. Paths are collapsed with PathLabel.
func instrumentHandler(next http.Handler, logger *slog.Logger, metrics *instrumentation.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := instrumentation.PathLabel(r.URL.Path)
		metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, duration)
		logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", path),
			logging.HTTPStatus(rec.status),
			slog.Duration("duration", duration))
	})
}
