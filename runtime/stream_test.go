package runtime

import (
	"bufio"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warriorguo/hyperbuild/types"
)

func TestStreamEmitter(t *testing.T) {
	w := httptest.NewRecorder()
	emitter := NewStreamEmitter(w)

	require.NoError(t, emitter.Emit(&types.Event{Kind: types.EventStart, Node: "s", NodeType: types.StartNode}))
	assert.True(t, w.Flushed)
	require.NoError(t, emitter.Emit(&types.Event{Kind: types.EventData, Node: "s", Payload: types.Data{"text": "<b>&</b>"}}))

	lines := strings.Split(strings.TrimSuffix(w.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"event": "start", "node": "s", "type": "Start"}`, lines[0])
	assert.JSONEq(t, `{"event": "data", "node": "s", "text": "<b>&</b>"}`, lines[1])
}

func TestStreamEmitter_Run(t *testing.T) {
	te := newTestEngine()
	defer te.Close(context.Background())

	var sb strings.Builder
	result, err := te.Run(context.Background(), &types.RunRequest{
		Nodes: []*types.Node{
			node("s", types.StartNode, types.Data{"input": "seed"}),
			node("o", types.OutputNode, nil),
		},
		Edges: chain("s", "o"),
	}, NewStreamEmitter(&sb))
	require.NoError(t, err)

	var events []*types.Event
	scanner := bufio.NewScanner(strings.NewReader(sb.String()))
	for scanner.Scan() {
		ev := &types.Event{}
		require.NoError(t, ev.UnmarshalJSON(scanner.Bytes()))
		events = append(events, ev)
	}
	require.Len(t, events, 8)
	assert.Equal(t, types.EventComplete, events[7].Kind)
	assert.Equal(t, result.RunID, events[7].RunID)
	assert.Equal(t, "seed", events[4].Payload["output"])
}
