// Package http serves the operational surface of the bridge: liveness,
// readiness and Prometheus metrics.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

// ReadyChecker reports whether a component is ready to serve.
type ReadyChecker interface {
	// Name identifies the component in the readiness response.
	Name() string
	// Ready reports readiness.
	Ready() bool
}

// Server is the health and metrics HTTP server.
type Server struct {
	server   *http.Server
	checkers []ReadyChecker
	log      log.Logger
}

// NewServer creates the server. The checkers gate /readyz: the probe
// fails until every one of them reports ready.
func NewServer(opts *options.HttpOptions, logger log.Logger, checkers ...ReadyChecker) *Server {
	s := &Server{
		checkers: checkers,
		log:      logger.WithName("http"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	}
	return s
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	for _, c := range s.checkers {
		if !c.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(c.Name() + ": not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Start serves until the context is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting HTTP server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
