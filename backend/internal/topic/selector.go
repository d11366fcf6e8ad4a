// Package topic picks the next research topic from the knowledge graph.
//
// Selection is a pure function of the graph and the previous topic:
//  1. the first unexplored neighbor of the last topic, in edge order
//  2. otherwise the least connected concept, ties by node order
//  3. otherwise the default topic
package topic

import (
	"sort"

	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/knowledge"
)

// SelectNext returns the next topic to research after lastTopic
func SelectNext(graph *knowledge.Graph, lastTopic string) string {
	return SelectExcluding(graph, lastTopic, nil)
}

// SelectExcluding is SelectNext ignoring every candidate in exclude.
// If the default topic itself is excluded it is still returned.
func SelectExcluding(graph *knowledge.Graph, lastTopic string, exclude map[string]struct{}) string {
	if graph == nil {
		return constants.DefaultTopic
	}

	excluded := func(id string) bool {
		_, ok := exclude[id]
		return ok
	}

	last := knowledge.NormalizeID(lastTopic)
	for _, neighbor := range graph.Neighbors(last) {
		if excluded(neighbor) {
			continue
		}
		if node, ok := graph.Node(neighbor); ok && node.Unexplored() {
			return neighbor
		}
	}

	if id, ok := leastConnected(graph, excluded); ok {
		return id
	}
	return constants.DefaultTopic
}

// leastConnected returns the lowest-degree concept that is not excluded
func leastConnected(graph *knowledge.Graph, excluded func(string) bool) (string, bool) {
	type candidate struct {
		id     string
		degree int
	}

	degrees := make(map[string]int, len(graph.Nodes))
	for _, e := range graph.Edges {
		degrees[e.Source]++
		if e.Target != e.Source {
			degrees[e.Target]++
		}
	}

	candidates := make([]candidate, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		if excluded(n.ID) {
			continue
		}
		candidates = append(candidates, candidate{id: n.ID, degree: degrees[n.ID]})
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].degree < candidates[j].degree
	})
	return candidates[0].id, true
}
