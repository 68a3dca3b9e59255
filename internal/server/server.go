package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server owns the router and the HTTP listener.
type Server struct {
	Router  *chi.Mux
	Port    int
	timeout time.Duration
	logger  *slog.Logger
	httpSrv *http.Server
}

// New builds the router with the ambient middleware chain. Every request is
// reported to rec exactly once, and the request timeout is the transport
// bound that eventually aborts hung timeout simulations.
func New(port int, timeout time.Duration, logger *slog.Logger, rec Recorder) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(RecordingMiddleware(rec))
	r.Use(TimeoutMiddleware(timeout))
	r.Use(RecoverMiddleware(logger))

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "otamock-gateway")
	})

	return &Server{
		Router:  r,
		Port:    port,
		timeout: timeout,
		logger:  logger,
	}
}

// Start listens until the context is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		// Write timeout exceeds the request timeout so envelopes written at
		// the deadline still flush; it is the hard transport bound.
		WriteTimeout: s.timeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.Int("port", s.Port))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
