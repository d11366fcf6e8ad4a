// Package knowledge holds the knowledge graph model and its durable stores.
//
// The graph only ever grows: concepts and relationships are appended, never
// deleted. Insertion order is preserved because topic selection depends on it.
package knowledge

import (
	"sort"
	"strings"

	"research-graph/backend/internal/constants"
)

// Concept is a node of the knowledge graph
type Concept struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Validated   bool   `json:"validated"`
}

// Unexplored reports whether the concept still carries the placeholder description
func (c Concept) Unexplored() bool {
	return strings.Contains(c.Description, constants.SentinelDescription)
}

// Relationship is an undirected edge between two concepts
type Relationship struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Label     string `json:"label"`
	Context   string `json:"context"`
	Validated bool   `json:"validated"`
}

// Key identifies the unordered pair the relationship connects
func (r Relationship) Key() string {
	return RelationshipKey(r.Source, r.Target)
}

// Touches reports whether id is one of the relationship's endpoints
func (r Relationship) Touches(id string) bool {
	return r.Source == id || r.Target == id
}

// Other returns the endpoint opposite to id
func (r Relationship) Other(id string) string {
	if r.Source == id {
		return r.Target
	}
	return r.Source
}

// RelationshipKey builds the sorted "a-b" key of an unordered pair
func RelationshipKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "-" + pair[1]
}

// NormalizeID turns a topic or token into a concept ID
func NormalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Graph is the whole knowledge graph as it is loaded and saved
type Graph struct {
	Nodes []Concept      `json:"nodes"`
	Edges []Relationship `json:"edges"`
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{
		Nodes: []Concept{},
		Edges: []Relationship{},
	}
}

// Clone returns a deep copy of the graph
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Nodes: make([]Concept, len(g.Nodes)),
		Edges: make([]Relationship, len(g.Edges)),
	}
	copy(c.Nodes, g.Nodes)
	copy(c.Edges, g.Edges)
	return c
}

// normalize replaces nil slices left behind by decoding "null"
func (g *Graph) normalize() *Graph {
	if g.Nodes == nil {
		g.Nodes = []Concept{}
	}
	if g.Edges == nil {
		g.Edges = []Relationship{}
	}
	return g
}

// NodeIDs returns the set of concept IDs
func (g *Graph) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

// Node looks up a concept by ID
func (g *Graph) Node(id string) (Concept, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Concept{}, false
}

// HasNode reports whether a concept with the ID exists
func (g *Graph) HasNode(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// AddConcepts appends concepts whose ID is not present yet and returns how many were added
func (g *Graph) AddConcepts(concepts []Concept) int {
	ids := g.NodeIDs()
	added := 0
	for _, c := range concepts {
		if _, exists := ids[c.ID]; exists {
			continue
		}
		ids[c.ID] = struct{}{}
		g.Nodes = append(g.Nodes, c)
		added++
	}
	return added
}

// AddRelationships appends relationships whose pair is not connected yet
// and returns how many were added
func (g *Graph) AddRelationships(rels []Relationship) int {
	keys := make(map[string]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		keys[e.Key()] = struct{}{}
	}
	added := 0
	for _, r := range rels {
		k := r.Key()
		if _, exists := keys[k]; exists {
			continue
		}
		keys[k] = struct{}{}
		g.Edges = append(g.Edges, r)
		added++
	}
	return added
}

// SetDescription overwrites a concept's description
func (g *Graph) SetDescription(id, description string) bool {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			g.Nodes[i].Description = description
			g.Nodes[i].Validated = true
			return true
		}
	}
	return false
}

// IncidentEdges returns the edges touching id, in storage order
func (g *Graph) IncidentEdges(id string) []Relationship {
	var edges []Relationship
	for _, e := range g.Edges {
		if e.Touches(id) {
			edges = append(edges, e)
		}
	}
	return edges
}

// Neighbors returns the IDs connected to id, in edge storage order
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]struct{})
	var neighbors []string
	for _, e := range g.Edges {
		if !e.Touches(id) {
			continue
		}
		other := e.Other(id)
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		neighbors = append(neighbors, other)
	}
	return neighbors
}

// Degree counts the edges touching id
func (g *Graph) Degree(id string) int {
	degree := 0
	for _, e := range g.Edges {
		if e.Touches(id) {
			degree++
		}
	}
	return degree
}
