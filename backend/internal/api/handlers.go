package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/topic"
)

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

// NodeView is a concept with everything one edge away from it
type NodeView struct {
	Node      knowledge.Concept        `json:"node"`
	Neighbors []knowledge.Concept      `json:"neighbors"`
	Edges     []knowledge.Relationship `json:"edges"`
	Degree    int                      `json:"degree"`
}

// load reads the graph. An unreadable store is served as the empty graph the loop would see.
func (h *handlers) load(c *gin.Context) *knowledge.Graph {
	graph, err := h.deps.Guard.View(c.Request.Context())
	if err != nil {
		h.logger.Warn("Serving empty graph", zap.Error(err))
	}
	return graph
}

func (h *handlers) graph(c *gin.Context) {
	c.JSON(http.StatusOK, h.load(c))
}

func (h *handlers) node(c *gin.Context) {
	id := knowledge.NormalizeID(c.Param("id"))
	graph := h.load(c)

	node, ok := graph.Node(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Concept not found"})
		return
	}

	view := NodeView{
		Node:      node,
		Neighbors: []knowledge.Concept{},
		Edges:     graph.IncidentEdges(id),
		Degree:    graph.Degree(id),
	}
	for _, neighbor := range graph.Neighbors(id) {
		if n, ok := graph.Node(neighbor); ok {
			view.Neighbors = append(view.Neighbors, n)
		}
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) status(c *gin.Context) {
	if h.deps.Status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Research loop is not running in this process"})
		return
	}
	c.JSON(http.StatusOK, h.deps.Status.Status())
}

func (h *handlers) nextTopic(c *gin.Context) {
	last := c.Query("last")
	graph := h.load(c)
	c.JSON(http.StatusOK, gin.H{
		"last": last,
		"next": topic.SelectNext(graph, last),
	})
}
