package server

import (
	"net/http"
	"time"
)

// Recorder receives the outcome of every completed request.
type Recorder interface {
	RecordRequest(success bool, elapsedMillis float64)
}

// RecordingMiddleware reports every request's outcome and duration exactly
// once, after the request path fully resolves: real handler responses,
// synthetic simulation failures, and panics all count. A request that wrote
// nothing (the hung-timeout simulation) counts as a failure.
func RecordingMiddleware(rec Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				elapsed := float64(time.Since(start).Microseconds()) / 1000
				success := wrapped.wrote && wrapped.statusCode < 400
				rec.RecordRequest(success, elapsed)
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}
