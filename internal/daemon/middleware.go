package daemon

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lumehealth/carebot/internal/logfields"
)

// chain wraps a handler with the admin endpoint's standard middleware:
// request logging outermost, panic recovery innermost.
func chain(logger *slog.Logger, h http.Handler) http.Handler {
	return loggingMiddleware(logger, panicRecoveryMiddleware(logger, h))
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.Debug("admin request",
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(rw.statusCode),
			logfields.RemoteAddr(r.RemoteAddr),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000.0))
	})
}

func panicRecoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("admin handler panic",
					logfields.Method(r.Method),
					logfields.Path(r.URL.Path),
					slog.Any("panic", rec))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
