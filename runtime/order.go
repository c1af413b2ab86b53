package runtime

import (
	"github.com/warriorguo/hyperbuild/types"
)

// TopologicalSort orders nodes with Kahn's algorithm. Nodes that become ready
// at the same time keep their input order. Edges naming an unknown node are
// ignored, and nodes on a cycle (or downstream of one) never become ready and
// are left out of the result.
func TopologicalSort(nodes []*types.Node, edges []*types.Edge) []*types.Node {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n == nil {
			continue
		}
		if _, exists := index[n.ID]; !exists {
			index[n.ID] = i
		}
	}

	inDegree := make([]int, len(nodes))
	successors := make(map[int][]int, len(nodes))
	for _, e := range edges {
		if e == nil {
			continue
		}
		from, fromExists := index[e.Source]
		to, toExists := index[e.Target]
		if !fromExists || !toExists {
			continue
		}
		inDegree[to]++
		successors[from] = append(successors[from], to)
	}

	queue := make([]int, 0, len(nodes))
	for i, n := range nodes {
		// duplicated ids only count once, at their first position
		if n != nil && index[n.ID] == i && inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]*types.Node, 0, len(index))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		ordered = append(ordered, nodes[i])

		for _, next := range successors[i] {
			if inDegree[next]--; inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return ordered
}

// Ancestors returns the ids of every node that reaches nodeID by following
// edges forward. nodeID itself is not included.
func Ancestors(edges []*types.Edge, nodeID string) map[string]struct{} {
	predecessors := make(map[string][]string)
	for _, e := range edges {
		if e == nil {
			continue
		}
		predecessors[e.Target] = append(predecessors[e.Target], e.Source)
	}

	ancestors := make(map[string]struct{})
	queue := []string{nodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, p := range predecessors[id] {
			if _, visited := ancestors[p]; visited || p == nodeID {
				continue
			}
			ancestors[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	return ancestors
}

// CheckAcyclic compares the input of TopologicalSort with its result and
// returns a *types.CyclicGraphError naming the nodes that were left out.
func CheckAcyclic(nodes []*types.Node, ordered []*types.Node) error {
	seen := make(map[string]struct{}, len(ordered))
	for _, n := range ordered {
		seen[n.ID] = struct{}{}
	}

	var missing []string
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, exists := seen[n.ID]; exists {
			continue
		}
		seen[n.ID] = struct{}{}
		missing = append(missing, n.ID)
	}
	if len(missing) == 0 {
		return nil
	}
	return &types.CyclicGraphError{Nodes: missing}
}
