package types

type NodeType string

const (
	StartNode     NodeType = "Start"
	ScrapeNode    NodeType = "Scrape"
	ExtractNode   NodeType = "Extract"
	CrawlNode     NodeType = "Crawl"
	TransformNode NodeType = "Transform"
	LLMNode       NodeType = "LLM"
	QnANode       NodeType = "QnAGenerator"
	OutputNode    NodeType = "Output"
	EndNode       NodeType = "End"
	ConditionNode NodeType = "Condition"
	WhileNode     NodeType = "While"
	ApprovalNode  NodeType = "Approval"
)

// Node is a typed unit of work. Which keys of Data are meaningful depends on Type.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Data Data     `json:"data,omitempty"`
}

// Edge is a directed dependency. Edges whose source or target is not a node of
// the graph are ignored everywhere.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NodeIDs returns the set of node ids of the graph.
func (g *Graph) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		ids[n.ID] = struct{}{}
	}
	return ids
}

// ValidEdges returns the edges whose endpoints both exist, in input order.
func (g *Graph) ValidEdges() []*Edge {
	ids := g.NodeIDs()
	valid := make([]*Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e == nil {
			continue
		}
		_, srcExists := ids[e.Source]
		_, dstExists := ids[e.Target]
		if srcExists && dstExists {
			valid = append(valid, e)
		}
	}
	return valid
}
