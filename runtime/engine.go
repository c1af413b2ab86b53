package runtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/hyperbuild/store"
	"github.com/warriorguo/hyperbuild/types"
)

var (
	_ types.Engine = &engine{}
)

func NewEngine(store store.Store, opts *types.EngineOptions) types.Engine {
	return newEngine(store, opts)
}

type engine struct {
	store store.Store
	opts  *types.EngineOptions
	pool  *runPool
}

func newEngine(store store.Store, opts *types.EngineOptions) *engine {
	if opts == nil {
		opts = types.NewEngineOptions()
	}
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	return &engine{
		store: store,
		opts:  opts,
		pool:  newRunPool(opts.MaxConcurrentRuns),
	}
}

func (e *engine) Run(ctx context.Context, req *types.RunRequest, emitter types.Emitter) (*types.RunResult, error) {
	if req == nil {
		return nil, errors.BadRequestf("empty run request")
	}

	runID := uuid.NewString()
	// a run goes on when the caller goes away, so its artifacts are complete.
	// Only the engine context stops it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stopAfter := context.AfterFunc(e.opts.Ctx, cancel)
	defer stopAfter()
	if e.opts.Ctx.Err() != nil {
		cancel()
	}

	rc := newRunContext(runCtx, e, runID, req, emitter)
	if err := e.pool.add(runID, rc); err != nil {
		return nil, errors.Trace(err)
	}
	defer e.pool.remove(runID)
	rc.log.Infof("run started with %d nodes", len(req.Nodes))

	var runErr error
	err := e.pool.submitWait(func() {
		rc.setStatus(types.Running, nil)
		runErr = e.execute(rc)
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	if runErr != nil {
		rc.setStatus(types.Fatal, runErr)
		rc.log.Errorf("run aborted: %v", runErr)
		e.saveAbortedArtifacts(rc)
		rc.emit(&types.Event{Kind: types.EventError, Message: runErr.Error()})
		return &types.RunResult{RunID: runID, Status: types.Fatal}, errors.Trace(runErr)
	}

	rc.emit(&types.Event{Kind: types.EventComplete, RunID: runID})
	rc.log.Infof("run finished")
	return &types.RunResult{RunID: runID, Status: types.Finished, State: rc.exportState()}, nil
}

// execute walks the ordered nodes, or only the ancestors of the target node
// when the request names one, and saves the final artifacts.
func (e *engine) execute(rc *runContext) error {
	graph := rc.req.Graph()
	ordered := TopologicalSort(graph.Nodes, graph.Edges)
	if e.opts.DetectCycles {
		if err := CheckAcyclic(graph.Nodes, ordered); err != nil {
			return errors.Trace(err)
		}
	}

	target := rc.req.TargetNodeID
	var allowed map[string]struct{}
	if target != "" {
		if _, exists := graph.NodeIDs()[target]; !exists {
			rc.emit(&types.Event{Kind: types.EventWarn, Node: target, Message: "target node not found"})
		}
		allowed = Ancestors(graph.ValidEdges(), target)
		allowed[target] = struct{}{}
	}

	for _, node := range ordered {
		if allowed != nil {
			if _, exists := allowed[node.ID]; !exists {
				continue
			}
		}

		if err := rc.Err(); err != nil {
			return errors.Annotatef(err, "engine stopped before %s", node.ID)
		}
		if err := e.executeNode(rc, node); err != nil {
			return errors.Trace(err)
		}
		if node.ID == target {
			break
		}
	}

	rc.setStatus(types.Finished, nil)
	return errors.Trace(e.saveFinalArtifacts(rc))
}

// executeNode returns an error only when the run has to be aborted.
func (e *engine) executeNode(rc *runContext, node *types.Node) error {
	rc.enterNode(node)

	handled, err := rc.runHandler(node)
	switch {
	case !handled:
		warning := "Unknown node type: " + string(node.Type)
		rc.emitWarn(node, warning)
		rc.exitNode(node, nil, warning)

	case err == nil:
		rc.markSuccess(node.ID)
		rc.exitNode(node, nil, "")

	case types.IsRecoverable(err):
		rc.log.WithField("node", node.ID).Warnf("node failed: %v", err)
		rc.setStatus(types.Running, err)
		rc.emit(&types.Event{Kind: types.EventError, Node: node.ID, Message: err.Error()})
		rc.exitNode(node, err, "")

	default:
		rc.endRecord(node, err, "")
		return errors.Trace(err)
	}
	return nil
}

func (e *engine) GetRunStatus(ctx context.Context, runID string) (*types.RunStatus, error) {
	if rc := e.pool.get(runID); rc != nil {
		return rc.getStatus(), nil
	}
	trace, err := e.loadTrace(ctx, runID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &types.RunStatus{
		RunID:     runID,
		Status:    trace.Status,
		Nodes:     trace.Nodes,
		LastError: trace.LastError,
	}, nil
}

func (e *engine) Close(ctx context.Context) error {
	e.pool.stopWait()
	log.Debugf("engine closed")
	return nil
}
