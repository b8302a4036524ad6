package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server exposes /metrics and /healthz over plain HTTP
type Server struct {
	httpSrv  *http.Server
	listener net.Listener
}

// NewHandler serves the registry's metrics and a liveness probe
func NewHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start listens on addr and serves handler in the background
func Start(addr string, handler http.Handler) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		httpSrv:  &http.Server{Handler: handler},
		listener: listener,
	}

	go func() {
		log.Info().Str("addr", listener.Addr().String()).Msg("Metrics server listening")
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	return s, nil
}

// Addr returns the bound address, useful when addr had port 0
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close shuts the server down gracefully
func (s *Server) Close(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
