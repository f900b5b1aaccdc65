package askvidex

import (
	"net/http"
	"time"

	"github.com/kasuganosora/videx/pkg/logging"
	"github.com/kasuganosora/videx/pkg/remote"
)

// RecoveryMiddleware recovers from panics and returns a 500 error
func RecoveryMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("[ASKVIDEX] panic recovered: %v", err)
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{
						Error: "internal server error",
						Code:  http.StatusInternalServerError,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			requestID := r.Header.Get(remote.RequestIDHeader)
			if requestID == "" {
				requestID = "-"
			}
			logger.Debug("[ASKVIDEX] %s %s %s %d %s", requestID, r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
