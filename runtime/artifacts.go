package runtime

import (
	"context"
	"strings"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/hyperbuild/types"
	"github.com/warriorguo/hyperbuild/utils"
)

const (
	RunPath = "/run/"
)

const (
	OutputArtifact = "output.json"
	StateArtifact  = "state.json"
	GraphArtifact  = "graph.json"
	TraceArtifact  = "trace.json"
)

// runTrace is what trace.json holds: the final per-node statuses and the
// timing of every node that started.
type runTrace struct {
	RunID     string                   `json:"runId"`
	Status    types.StatusType         `json:"status"`
	Nodes     map[string]string        `json:"nodes"`
	Records   []*types.NodeTraceRecord `json:"records"`
	LastError string                   `json:"lastError,omitempty"`
}

func (t *runTrace) recordMap() map[string]*types.NodeTraceRecord {
	records := make(map[string]*types.NodeTraceRecord, len(t.Records))
	for _, r := range t.Records {
		records[r.Node] = r
	}
	return records
}

func runSavePath(runID string) string {
	return RunPath + runID
}

func validRunID(runID string) error {
	if runID == "" || strings.ContainsAny(runID, "/\\") || strings.Contains(runID, "..") {
		return errors.NotValidf("run id %q", runID)
	}
	return nil
}

// saveArtifact writes value as pretty JSON, or verbatim when it is a string.
func (e *engine) saveArtifact(ctx context.Context, runID, name string, value any) error {
	b, err := utils.SerializePretty(value)
	if err != nil {
		return errors.Annotatef(err, "serialize %s", name)
	}
	return errors.Trace(e.store.Set(ctx, runSavePath(runID), name, b))
}

func (e *engine) saveFinalArtifacts(rc *runContext) error {
	if err := e.saveArtifact(rc, rc.runID, StateArtifact, rc.exportState()); err != nil {
		return errors.Trace(err)
	}
	if err := e.saveArtifact(rc, rc.runID, GraphArtifact, rc.req.Graph()); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.saveArtifact(rc, rc.runID, TraceArtifact, rc.exportTrace()))
}

// saveAbortedArtifacts keeps what is needed to inspect an aborted run. An
// output already written by an Output node is removed along with the state.
func (e *engine) saveAbortedArtifacts(rc *runContext) {
	// the run context may be the reason for the abort
	ctx := context.WithoutCancel(rc)
	for _, name := range []string{OutputArtifact, StateArtifact} {
		if err := e.store.Remove(ctx, runSavePath(rc.runID), name); err != nil {
			rc.log.Errorf("failed to remove %s: %v", name, err)
		}
	}
	if err := e.saveArtifact(ctx, rc.runID, GraphArtifact, rc.req.Graph()); err != nil {
		rc.log.Errorf("failed to save graph: %v", err)
	}
	if err := e.saveArtifact(ctx, rc.runID, TraceArtifact, rc.exportTrace()); err != nil {
		rc.log.Errorf("failed to save trace: %v", err)
	}
}

func (e *engine) GetArtifact(ctx context.Context, runID, name string) ([]byte, error) {
	if err := validRunID(runID); err != nil {
		return nil, errors.Trace(err)
	}
	b, err := e.store.Get(ctx, runSavePath(runID), name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if b == nil {
		return nil, errors.NotFoundf("artifact %s of run %s", name, runID)
	}
	return b, nil
}

func (e *engine) ListArtifacts(ctx context.Context, runID string) ([]string, error) {
	if err := validRunID(runID); err != nil {
		return nil, errors.Trace(err)
	}
	var names []string
	err := e.store.List(ctx, runSavePath(runID), func(name string) bool {
		names = append(names, name)
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(names) == 0 {
		return nil, errors.NotFoundf("run %s", runID)
	}
	return names, nil
}

func (e *engine) loadTrace(ctx context.Context, runID string) (*runTrace, error) {
	b, err := e.GetArtifact(ctx, runID, TraceArtifact)
	if err != nil {
		return nil, errors.Trace(err)
	}
	trace := &runTrace{}
	if err := utils.Unserialize(b, trace); err != nil {
		log.Errorf("unserialize trace of %s: %s failed: %v", runID, string(b), err)
		return nil, errors.Trace(err)
	}
	return trace, nil
}

func (e *engine) loadGraph(ctx context.Context, runID string) (*types.Graph, error) {
	b, err := e.GetArtifact(ctx, runID, GraphArtifact)
	if err != nil {
		return nil, errors.Trace(err)
	}
	graph := &types.Graph{}
	if err := utils.Unserialize(b, graph); err != nil {
		return nil, errors.Trace(err)
	}
	return graph, nil
}
