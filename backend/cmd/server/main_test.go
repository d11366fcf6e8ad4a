package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/services"
	"research-graph/backend/pkg/config"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "graph.json")
	g := knowledge.NewGraph()
	g.AddConcepts([]knowledge.Concept{{ID: "graphs", Description: "Explored."}})
	require.NoError(t, knowledge.NewFileStore(path).Save(context.Background(), g))

	cfg := &config.Config{StoreBackend: config.StoreFile, GraphFile: path}
	sm := services.NewServiceManager(cfg, zap.NewNop())
	t.Cleanup(sm.Shutdown)

	router, err := newRouter(context.Background(), cfg, sm)
	require.NoError(t, err)
	return router
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestGraphEndpoint_ServesStore(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/graph/nodes/graphs", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"graphs"`)
}

func TestStatusEndpoint_NoLoopInProcess(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRun_InitFailureReturnsError(t *testing.T) {
	cfg := &config.Config{StoreBackend: "etcd", Port: "0"}

	err := run(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize")
}
