// Package runtime runs the HTTP API alongside the application's
// background jobs.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	app "github.com/hugs-network/trivia_layer/internal/app"
	"github.com/hugs-network/trivia_layer/internal/app/httpapi"
	"github.com/hugs-network/trivia_layer/pkg/logger"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server owns the HTTP listener and the application lifecycle.
type Server struct {
	app    *app.Application
	log    *logger.Logger
	server *http.Server
}

// NewServer builds a server for application. The handler gets the
// configured request timeout.
func NewServer(application *app.Application) *Server {
	cfg := application.Config
	handler := httpapi.NewHandler(application)
	if cfg.HTTP.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, cfg.HTTP.RequestTimeout, `{"ok":false,"error":"timeout"}`)
	}
	return &Server{
		app: application,
		log: application.Logger().Named("runtime"),
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run starts the background jobs and serves HTTP until ctx is cancelled,
// then shuts both down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.app.Start(ctx); err != nil {
		ln.Close()
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, s.Shutdown(shutdownCtx))
}

// Shutdown stops the HTTP server, then the background jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.server.Shutdown(ctx)
	if httpErr != nil {
		s.log.WithError(httpErr).Warn("http shutdown")
	}
	return errors.Join(httpErr, s.app.Stop(ctx))
}
