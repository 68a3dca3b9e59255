package server

import (
	"log/slog"
	"net/http"

	"github.com/hoststack/otamock/internal/domain"
)

// RecoverMiddleware catches panics at the outermost handler boundary, logs
// them with full context, and downgrades them to a generic internal-error
// envelope so internals never leak to the wire. http.ErrAbortHandler is
// re-raised so aborted connections stay aborted.
func RecoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				domain.WriteError(w, r, domain.ErrInternal("An unexpected error occurred."))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
