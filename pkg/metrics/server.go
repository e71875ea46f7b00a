package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a registry on a side port for workers that have no API router.
type Server struct {
	srv *http.Server
}

// NewServer returns nil when addr is empty; a nil Server is a no-op.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	if addr == "" || gatherer == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves in the background and reports listener failures to onErr.
func (s *Server) Start(onErr func(error)) {
	if s == nil {
		return
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && onErr != nil {
			onErr(err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Handler is exposed for tests.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.srv.Handler
}
