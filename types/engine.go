package types

import (
	"context"
	"time"
)

type Engine interface {
	/**
	 * Run executes the graph of req and streams its events to emitter.
	 * The returned error is non-nil only when the run was aborted; per-node
	 * errors are reported through emitter and do not fail the run.
	 */
	Run(ctx context.Context, req *RunRequest, emitter Emitter) (*RunResult, error)

	GetRunStatus(ctx context.Context, runID string) (*RunStatus, error)

	GetArtifact(ctx context.Context, runID, name string) ([]byte, error)
	ListArtifacts(ctx context.Context, runID string) ([]string, error)

	/**
	 * RenderGraph returns the DOT string of the given graph.
	 * RenderRun does the same for the graph of a finished run, coloring the
	 * nodes by what happened to them.
	 */
	RenderGraph(graph *Graph) (string, error)
	RenderRun(ctx context.Context, runID string) (string, error)

	/**
	 * Close waits for the running runs to finish.
	 */
	Close(ctx context.Context) error
}

type RunRequest struct {
	Nodes        []*Node `json:"nodes"`
	Edges        []*Edge `json:"edges"`
	TargetNodeID string  `json:"targetNodeId,omitempty"`
	// Provider overrides the engine provider key for this run.
	Provider string `json:"provider,omitempty"`
}

func (r *RunRequest) Graph() *Graph {
	return &Graph{Nodes: r.Nodes, Edges: r.Edges}
}

type RunResult struct {
	RunID  string
	Status StatusType
	State  Data
}

type RunStatus struct {
	RunID       string            `json:"runId"`
	Status      StatusType        `json:"status"`
	CurrentNode string            `json:"currentNode,omitempty"`
	Nodes       map[string]string `json:"nodes,omitempty"`
	LastError   string            `json:"lastError,omitempty"`
}

type NodeTraceRecord struct {
	Node      string    `json:"node"`
	Type      NodeType  `json:"type"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Error     string    `json:"error,omitempty"`
	Warning   string    `json:"warning,omitempty"`
}
