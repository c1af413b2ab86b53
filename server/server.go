// Package server exposes the engine over HTTP. Runs stream their events as
// newline delimited JSON while they execute.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/hyperbuild/types"
)

const (
	maxRequestBody  = 10 << 20
	shutdownTimeout = 30 * time.Second
)

type Server struct {
	engine     types.Engine
	corsOrigin string
	mux        *http.ServeMux
}

type Option func(s *Server)

// WithCORSOrigin sets the Access-Control-Allow-Origin of every response.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		s.corsOrigin = origin
	}
}

func New(engine types.Engine, opts ...Option) *Server {
	s := &Server{engine: engine, corsOrigin: "*", mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/run", s.handleRun)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleRunStatus)
	s.mux.HandleFunc("GET /api/runs/{id}/artifacts", s.handleListArtifacts)
	s.mux.HandleFunc("GET /api/runs/{id}/artifacts/{name}", s.handleArtifact)
	s.mux.HandleFunc("GET /api/runs/{id}/render", s.handleRenderRun)
	s.mux.HandleFunc("POST /api/render", s.handleRenderGraph)
	return s
}

func (s *Server) Handler() http.Handler {
	return logRequests(cors(s.corsOrigin, s.mux))
}

// ListenAndServe serves on addr until ctx is done, then waits for the open
// requests, streaming runs included, to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Trace(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Annotatef(err, "shutdown server")
	}
	return nil
}
