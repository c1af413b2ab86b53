package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/hyperbuild/runtime"
	"github.com/warriorguo/hyperbuild/types"
)

var startTime = time.Now()

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ArtifactsResponse struct {
	RunID     string   `json:"runId"`
	Artifacts []string `json:"artifacts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.BadRequestf("invalid request body: %v", err)
	}
	return nil
}

// handleRun streams the events of the run. Once the stream has started,
// failures are reported as events, never as a status code.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req := &types.RunRequest{}
	if err := decodeBody(w, r, req); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	result, err := s.engine.Run(r.Context(), req, runtime.NewStreamEmitter(w))
	if err != nil {
		log.Warnf("run failed: %v", err)
		return
	}
	log.WithField("run_id", result.RunID).Infof("run finished with %d node states", len(result.State))
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.GetRunStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	names, err := s.engine.ListArtifacts(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ArtifactsResponse{RunID: runID, Artifacts: names})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.GetArtifact(r.Context(), r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if json.Valid(b) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleRenderRun(w http.ResponseWriter, r *http.Request) {
	dot, err := s.engine.RenderRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeDOT(w, dot)
}

func (s *Server) handleRenderGraph(w http.ResponseWriter, r *http.Request) {
	graph := &types.Graph{}
	if err := decodeBody(w, r, graph); err != nil {
		writeError(w, err)
		return
	}
	dot, err := s.engine.RenderGraph(graph)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDOT(w, dot)
}

func writeDOT(w http.ResponseWriter, dot string) {
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dot))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.BadRequest), errors.Is(err, errors.NotValid):
		return http.StatusBadRequest
	case errors.Is(err, errors.MethodNotAllowed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Errorf("request failed: %s", errors.ErrorStack(err))
	}
	writeJSON(w, status, &ErrorResponse{Error: err.Error()})
}
