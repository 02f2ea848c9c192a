package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/smartmeeting/gateway/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

var log = logger.New("http-server")

// Server wraps http.Server with background startup and graceful shutdown.
type Server struct {
	server *http.Server
}

// New creates a Server listening on addr and serving handler.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start runs the server on a separate goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Msgf("Gateway listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start gateway server")
		}
	}()
}

// Stop drains in-flight requests and halts the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Unable to shut down gateway server gracefully")
		return err
	}
	return nil
}
