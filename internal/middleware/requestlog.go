package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter captures status and size for the access log.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

type logUserKeyType struct{}

// logUserKey holds a *int that JWTMiddleware fills so the outer access log sees the caller.
var logUserKey logUserKeyType

func setLogUser(ctx context.Context, id int) {
	if p, ok := ctx.Value(logUserKey).(*int); ok {
		*p = id
	}
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// RequestLog writes one structured line per request. Health probes are not logged.
// Place it after RequestID.
func RequestLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			var userID int
			next.ServeHTTP(wrap, r.WithContext(context.WithValue(r.Context(), logUserKey, &userID)))

			level := slog.LevelInfo
			if wrap.status >= 500 {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request",
				"request_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrap.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"size", wrap.size,
				"user_id", userID)
		})
	}
}
