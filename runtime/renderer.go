package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/juju/errors"

	"github.com/warriorguo/hyperbuild/types"
)

const graphPrefix = "graph."

func (e *engine) RenderGraph(graph *types.Graph) (string, error) {
	if graph == nil {
		return "", errors.BadRequestf("empty graph")
	}
	return newGraphRenderer().generateDOT(graph, nil)
}

func (e *engine) RenderRun(ctx context.Context, runID string) (string, error) {
	graph, err := e.loadGraph(ctx, runID)
	if err != nil {
		return "", errors.Trace(err)
	}
	trace, err := e.loadTrace(ctx, runID)
	if err != nil {
		return "", errors.Trace(err)
	}
	return newGraphRenderer().generateDOT(graph, trace.recordMap())
}

func newGraphRenderer() *graphRenderer {
	return &graphRenderer{nil, &strings.Builder{}}
}

type graphRenderer struct {
	records map[string]*types.NodeTraceRecord
	sb      *strings.Builder
}

func (d *graphRenderer) setRecords(records map[string]*types.NodeTraceRecord) {
	if records == nil {
		records = make(map[string]*types.NodeTraceRecord)
	}
	d.records = records
}

func (d *graphRenderer) generateDOT(graph *types.Graph, records map[string]*types.NodeTraceRecord) (string, error) {
	d.setRecords(records)

	d.write("digraph D {")
	for _, node := range graph.Nodes {
		if node != nil {
			d.drawNode(graphPrefix, node)
		}
	}
	d.drawLinks(graphPrefix, graph)
	d.write("}")
	return d.sb.String(), nil
}

func packToComment(r *types.NodeTraceRecord) string {
	s, _ := json.Marshal(r)
	return formatNL(addSlashes(string(s)))
}

func (d *graphRenderer) calcAttr(id string) string {
	record, exists := d.records[id]
	if !exists {
		return ""
	}

	color := ""
	switch {
	case record.StartTime.IsZero():
		color = "white"
	case record.EndTime.IsZero():
		color = "yellow"
	case record.Error != "":
		color = "red"
	case record.Warning != "":
		color = "orange"
	default:
		color = "green"
	}
	return fmt.Sprintf(" style=\"filled\" color=\"%s\" comment=\"%s\"", color, packToComment(record))
}

func nodeShape(t types.NodeType) string {
	switch t {
	case types.ConditionNode, types.WhileNode:
		return "diamond"
	case types.StartNode, types.OutputNode, types.EndNode:
		return "oval"
	default:
		return "record"
	}
}

func (d *graphRenderer) drawNode(prefix string, node *types.Node) {
	attr := d.calcAttr(node.ID)
	label := fmt.Sprintf("%s (%s)", node.ID, node.Type)
	d.write("%s [label=%s shape=\"%s\"%s]", idString(prefix+node.ID), quoteString(label), nodeShape(node.Type), attr)
}

func (d *graphRenderer) drawLinks(prefix string, graph *types.Graph) {
	for _, edge := range graph.ValidEdges() {
		d.write("%s -> %s", idString(prefix+edge.Source), idString(prefix+edge.Target))
	}
}

func (d *graphRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

var (
	slashesToken = []string{"\\", "\"", "'", " "}
)

func addSlashes(s string) string {
	for _, token := range slashesToken {
		s = strings.ReplaceAll(s, token, "\\"+token)
	}
	return s
}

func formatNL(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

var idleChars = []string{" ", "'", "\"", "(", ")", "*", "&", "^", "%", "$", "#", "@", "!", "?", "<", ">", "[", "]", "{", "}", ".", "-", "/", ":"}

func idString(s string) string {
	for _, ch := range idleChars {
		s = strings.ReplaceAll(s, ch, "_")
	}
	return s
}
