package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"research-graph/backend/internal/agent"
	"research-graph/backend/internal/discord"
	"research-graph/backend/internal/knowledge"
	"research-graph/backend/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		StoreBackend: config.StoreFile,
		GraphFile:    filepath.Join(dir, "graph.json"),
		SQLitePath:   filepath.Join(dir, "data", "knowledge.db"),
		Describer:    config.DescriberSummary,
		NatsSubject:  "research.cycle.completed",
	}
}

func TestOpenStore(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{backend: config.StoreFile, want: "file"},
		{backend: config.StoreSQLite, want: "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.StoreBackend = tt.backend
			sm := NewServiceManager(cfg, zap.NewNop())
			defer sm.Shutdown()

			store, err := sm.OpenStore(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, store.Name())

			g := knowledge.NewGraph()
			g.AddConcepts([]knowledge.Concept{{ID: "graphs", Description: "Explored."}})
			require.NoError(t, store.Save(context.Background(), g))

			loaded, err := store.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, g.Nodes, loaded.Nodes)
		})
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = "etcd"
	_, err := NewServiceManager(cfg, zap.NewNop()).OpenStore(context.Background())
	require.Error(t, err)
}

func TestShutdown_ClosesTrackedServices(t *testing.T) {
	sm := NewServiceManager(testConfig(t), zap.NewNop())

	var order []string
	sm.track("first", func() error { order = append(order, "first"); return nil })
	sm.track("second", func() error { order = append(order, "second"); return nil })

	sm.Shutdown()
	sm.Shutdown()
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestDescriber(t *testing.T) {
	cfg := testConfig(t)
	assert.IsType(t, agent.SummaryDescriber{}, NewServiceManager(cfg, zap.NewNop()).Describer())

	cfg.Describer = config.DescriberLLM
	cfg.LiteLLMURL = "http://localhost:4000"
	cfg.ModelID = "test-model"
	assert.IsType(t, &agent.LLMDescriber{}, NewServiceManager(cfg, zap.NewNop()).Describer())
}

func TestNotifiers(t *testing.T) {
	cfg := testConfig(t)
	assert.Empty(t, NewServiceManager(cfg, zap.NewNop()).Notifiers())

	cfg.DiscordBotToken = "token"
	cfg.DiscordChannelID = "123"
	notifiers := NewServiceManager(cfg, zap.NewNop()).Notifiers()
	require.Len(t, notifiers, 1)
	assert.IsType(t, &discord.Notifier{}, notifiers[0])
}

func TestWatchCycles_DisabledWithoutNats(t *testing.T) {
	assert.NoError(t, NewServiceManager(testConfig(t), zap.NewNop()).WatchCycles())
}
