package report

import (
	"fmt"
	"strings"

	"research-graph/backend/internal/knowledge"
)

// Subgraph is the part of the graph within one edge of a topic
type Subgraph struct {
	// Nodes starts with the topic, followed by its neighbors in edge order
	Nodes []string
	Edges []knowledge.Relationship
}

// LocalSubgraph returns the topic node, its neighbors and exactly the edges touching the topic
func LocalSubgraph(graph *knowledge.Graph, topic string) Subgraph {
	id := knowledge.NormalizeID(topic)
	sub := Subgraph{Nodes: []string{id}, Edges: graph.IncidentEdges(id)}
	sub.Nodes = append(sub.Nodes, graph.Neighbors(id)...)
	return sub
}

// RenderMermaid renders the local subgraph of topic as a Mermaid flowchart.
// Validated edges are solid, unvalidated ones dotted.
func RenderMermaid(graph *knowledge.Graph, topic string) string {
	sub := LocalSubgraph(graph, topic)

	ids := make(map[string]string, len(sub.Nodes))
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for i, node := range sub.Nodes {
		ids[node] = fmt.Sprintf("n%d", i)
		label := node
		if i == 0 {
			label = topic
		}
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", ids[node], escapeLabel(label))
	}

	for _, e := range sub.Edges {
		arrow := "-.->"
		if e.Validated {
			arrow = "-->"
		}
		fmt.Fprintf(&sb, "    %s %s|%s| %s\n", ids[e.Source], arrow, escapeLabel(e.Label), ids[e.Target])
	}
	return sb.String()
}

func escapeLabel(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "|", "#124;", "\n", " ")
	return r.Replace(s)
}
