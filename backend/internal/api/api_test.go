package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-graph/backend/internal/agent"
	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/metrics"
)

type fixedStatus agent.Status

func (s fixedStatus) Status() agent.Status { return agent.Status(s) }

func seededGuard(t *testing.T) *knowledge.Guard {
	t.Helper()
	store := knowledge.NewFileStore(filepath.Join(t.TempDir(), "graph.json"))
	g := knowledge.NewGraph()
	g.AddConcepts([]knowledge.Concept{
		{ID: "machine", Description: "Explored."},
		{ID: "learning", Description: constants.SentinelDescription + " ml..."},
		{ID: "pattern", Description: constants.SentinelDescription + " ml..."},
	})
	g.AddRelationships([]knowledge.Relationship{
		{Source: "machine", Target: "learning", Label: constants.RelatedToLabel, Validated: true},
	})
	require.NoError(t, store.Save(context.Background(), g))
	return knowledge.NewGuard(store)
}

func serve(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Guard: seededGuard(t)})

	w := serve(router, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestGraphEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Guard: seededGuard(t)})

	w := serve(router, "/api/graph")
	require.Equal(t, http.StatusOK, w.Code)

	var g knowledge.Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 1)
}

func TestGraphEndpoint_UnreadableStoreServesEmptyGraph(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	router := NewRouter(Deps{Guard: knowledge.NewGuard(knowledge.NewFileStore(path))})

	w := serve(router, "/api/graph")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, w.Body.String())
}

func TestNodeEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Guard: seededGuard(t)})

	w := serve(router, "/api/graph/nodes/Machine")
	require.Equal(t, http.StatusOK, w.Code)

	var view NodeView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "machine", view.Node.ID)
	require.Len(t, view.Neighbors, 1)
	assert.Equal(t, "learning", view.Neighbors[0].ID)
	assert.Len(t, view.Edges, 1)
	assert.Equal(t, 1, view.Degree)

	w = serve(router, "/api/graph/nodes/quantum")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := NewRouter(Deps{Guard: seededGuard(t)})
	assert.Equal(t, http.StatusServiceUnavailable, serve(router, "/api/status").Code)

	router = NewRouter(Deps{
		Guard:  seededGuard(t),
		Status: fixedStatus{State: agent.StateResearching, Topic: "machine", Cycles: 4},
	})
	w := serve(router, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var status agent.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, agent.StateResearching, status.State)
	assert.Equal(t, "machine", status.Topic)
	assert.Equal(t, 4, status.Cycles)
}

func TestNextTopicEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Guard: seededGuard(t)})

	tests := []struct {
		last string
		want string
	}{
		{last: "machine", want: "learning"},
		{last: "", want: "pattern"},
	}
	for _, tt := range tests {
		w := serve(router, "/api/topic/next?last="+tt.last)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.want, body["next"], "last=%q", tt.last)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.NewCollector("test")
	router := NewRouter(Deps{Guard: seededGuard(t), Metrics: m})

	serve(router, "/api/graph/nodes/machine")
	serve(router, "/api/graph/nodes/nothing")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/graph/nodes/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/graph/nodes/:id", "404")))

	w := serve(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Guard: seededGuard(t)})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/api/graph", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
