package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/hyperbuild/types"
	"github.com/warriorguo/hyperbuild/utils"
)

// runContext carries the state of one run. The run itself is executed by a
// single goroutine; mu only guards what status readers look at.
type runContext struct {
	context.Context

	e       *engine
	runID   string
	req     *types.RunRequest
	emitter types.Emitter
	log     *log.Entry

	incoming map[string][]*types.Edge

	mu          sync.Mutex
	status      types.StatusType
	state       types.Data
	nodeStatus  map[string]string
	records     map[string]*types.NodeTraceRecord
	recordOrder []string
	currentNode string
	lastErr     error

	provider    types.Provider
	emitFailure bool
}

func newRunContext(ctx context.Context, e *engine, runID string, req *types.RunRequest, emitter types.Emitter) *runContext {
	rc := &runContext{
		Context:    ctx,
		e:          e,
		runID:      runID,
		req:        req,
		emitter:    emitter,
		log:        log.WithField("run_id", runID),
		incoming:   make(map[string][]*types.Edge),
		status:     types.Pending,
		state:      types.Data{},
		nodeStatus: make(map[string]string),
		records:    make(map[string]*types.NodeTraceRecord),
	}
	for _, edge := range req.Graph().ValidEdges() {
		rc.incoming[edge.Target] = append(rc.incoming[edge.Target], edge)
	}
	return rc
}

func (rc *runContext) GetRunID() string {
	return rc.runID
}

func (rc *runContext) GetCurrentNode() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.currentNode
}

func (rc *runContext) emit(ev *types.Event) {
	if rc.emitter == nil {
		return
	}
	if err := rc.emitter.Emit(ev); err != nil && !rc.emitFailure {
		// the client went away, keep running so the artifacts get written
		rc.emitFailure = true
		rc.log.Warnf("failed to emit %s event: %v", ev.Kind, err)
	}
}

func (rc *runContext) emitData(node *types.Node, key string, value any) {
	rc.emit(&types.Event{Kind: types.EventData, Node: node.ID, Payload: types.Data{key: value}})
}

func (rc *runContext) emitWarn(node *types.Node, message string) {
	rc.emit(&types.Event{Kind: types.EventWarn, Node: node.ID, Message: message})
}

func (rc *runContext) setStatus(status types.StatusType, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.status = status
	if err != nil {
		rc.lastErr = err
	}
}

func (rc *runContext) setState(nodeID string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.state.Set(nodeID, value)
}

func (rc *runContext) getState(nodeID string) (any, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	v, exists := rc.state[nodeID]
	return v, exists
}

func (rc *runContext) exportState() types.Data {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return utils.CloneMap(rc.state)
}

func (rc *runContext) markSuccess(nodeID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.nodeStatus[nodeID] = types.NodeSuccess
}

// resolveInput returns the value a node consumes: the state of the source of
// its first incoming edge, or with MergeInputs the states of all its sources
// in edge order.
func (rc *runContext) resolveInput(node *types.Node) any {
	edges := rc.incoming[node.ID]
	if len(edges) == 0 {
		return nil
	}
	if !rc.e.opts.MergeInputs || len(edges) == 1 {
		v, _ := rc.getState(edges[0].Source)
		return v
	}

	values := make([]any, 0, len(edges))
	for _, edge := range edges {
		if v, exists := rc.getState(edge.Source); exists {
			values = append(values, v)
		}
	}
	return values
}

// activeProvider resolves the provider of the run the first time a node needs it.
func (rc *runContext) activeProvider() (types.Provider, error) {
	if rc.provider != nil {
		return rc.provider, nil
	}
	if rc.e.opts.Registry == nil {
		return nil, types.NewConfigurationErrorf("no provider registry configured")
	}

	key := rc.req.Provider
	if key == "" {
		key = rc.e.opts.ProviderKey
	}
	p, err := rc.e.opts.Registry.Active(key)
	if err != nil {
		return nil, errors.Trace(err)
	}
	rc.provider = p
	return p, nil
}

func (rc *runContext) llm() (types.LLM, error) {
	if rc.e.opts.LLM == nil {
		return nil, types.NewConfigurationErrorf("no LLM configured")
	}
	return rc.e.opts.LLM, nil
}

func (rc *runContext) enterNode(node *types.Node) {
	rc.log.Debugf("running %s (%s)", node.ID, node.Type)

	rc.mu.Lock()
	rc.currentNode = node.ID
	if _, exists := rc.records[node.ID]; !exists {
		rc.recordOrder = append(rc.recordOrder, node.ID)
	}
	rc.records[node.ID] = &types.NodeTraceRecord{
		Node:      node.ID,
		Type:      node.Type,
		StartTime: time.Now(),
	}
	rc.mu.Unlock()

	rc.emit(&types.Event{Kind: types.EventStart, Node: node.ID, NodeType: node.Type})
}

func (rc *runContext) endRecord(node *types.Node, err error, warning string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	record := rc.records[node.ID]
	if record == nil {
		return
	}
	record.EndTime = time.Now()
	if err != nil {
		record.Error = err.Error()
	}
	record.Warning = warning
	rc.currentNode = ""
}

func (rc *runContext) exitNode(node *types.Node, err error, warning string) {
	rc.endRecord(node, err, warning)
	rc.emit(&types.Event{Kind: types.EventEnd, Node: node.ID})
}

func (rc *runContext) exportTrace() *runTrace {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	trace := &runTrace{
		RunID:   rc.runID,
		Status:  rc.status,
		Nodes:   utils.CloneMap(rc.nodeStatus),
		Records: make([]*types.NodeTraceRecord, 0, len(rc.recordOrder)),
	}
	for _, id := range rc.recordOrder {
		record := *rc.records[id]
		trace.Records = append(trace.Records, &record)
	}
	if rc.lastErr != nil {
		trace.LastError = rc.lastErr.Error()
	}
	return trace
}

func (rc *runContext) getStatus() *types.RunStatus {
	trace := rc.exportTrace()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	return &types.RunStatus{
		RunID:       rc.runID,
		Status:      trace.Status,
		CurrentNode: rc.currentNode,
		Nodes:       trace.Nodes,
		LastError:   trace.LastError,
	}
}
