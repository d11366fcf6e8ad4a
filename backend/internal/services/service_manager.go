// Package services opens the external dependencies a process runs against
// and closes them again on shutdown.
package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"research-graph/backend/internal/adapter"
	"research-graph/backend/internal/agent"
	"research-graph/backend/internal/discord"
	"research-graph/backend/internal/events"
	"research-graph/backend/internal/graph"
	"research-graph/backend/internal/knowledge"
	"research-graph/backend/pkg/config"
)

type closer struct {
	name  string
	close func() error
}

// ServiceManager tracks every connection it opened so Shutdown can release them
type ServiceManager struct {
	cfg     *config.Config
	logger  *zap.Logger
	mu      sync.Mutex
	closers []closer
}

// NewServiceManager creates a service manager for cfg
func NewServiceManager(cfg *config.Config, logger *zap.Logger) *ServiceManager {
	return &ServiceManager{cfg: cfg, logger: logger}
}

func (sm *ServiceManager) track(name string, fn func() error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closers = append(sm.closers, closer{name: name, close: fn})
}

// OpenStore opens the configured knowledge store
func (sm *ServiceManager) OpenStore(ctx context.Context) (knowledge.Store, error) {
	switch sm.cfg.StoreBackend {
	case config.StoreFile:
		sm.logger.Info("Using file store", zap.String("path", sm.cfg.GraphFile))
		return knowledge.NewFileStore(sm.cfg.GraphFile), nil

	case config.StoreSQLite:
		store, err := knowledge.NewSQLiteStore(sm.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sm.track("sqlite", store.Close)
		sm.logger.Info("Using SQLite store", zap.String("path", sm.cfg.SQLitePath))
		return store, nil

	case config.StoreNeo4j:
		repo, err := graph.Connect(ctx, sm.cfg.Neo4jURI, sm.cfg.Neo4jUser, sm.cfg.Neo4jPassword)
		if err != nil {
			return nil, err
		}
		sm.track("neo4j", repo.Close)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare Neo4j schema: %w", err)
		}
		sm.logger.Info("Using Neo4j store", zap.String("uri", sm.cfg.Neo4jURI))
		return repo, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", sm.cfg.StoreBackend)
}

// Describer returns the configured concept describer
func (sm *ServiceManager) Describer() agent.Describer {
	if sm.cfg.Describer == config.DescriberLLM {
		llm := adapter.NewLLMAdapter(sm.cfg.LiteLLMURL, sm.cfg.OpenRouterAPIKey, sm.cfg.ModelID)
		sm.logger.Info("Describing concepts with LLM", zap.String("model", llm.Model()))
		return agent.NewLLMDescriber(llm)
	}
	return agent.SummaryDescriber{}
}

// Notifiers opens the configured notification channels.
// A channel that cannot be opened is logged and left out.
func (sm *ServiceManager) Notifiers() []agent.Notifier {
	var notifiers []agent.Notifier

	if sm.cfg.DiscordEnabled() {
		session, err := discord.NewSession(sm.cfg.DiscordBotToken)
		if err != nil {
			sm.logger.Error("Discord notifications disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, discord.NewNotifier(session, sm.cfg.DiscordChannelID))
			sm.logger.Info("Discord notifications enabled", zap.String("channel_id", sm.cfg.DiscordChannelID))
		}
	}

	if sm.cfg.NatsEnabled() {
		nc, err := events.Connect(sm.cfg.NatsURL, "research-graph")
		if err != nil {
			sm.logger.Error("NATS events disabled", zap.Error(err))
		} else {
			sm.track("nats", func() error { return nc.Drain() })
			publisher := events.NewPublisher(nc, sm.cfg.NatsSubject)
			notifiers = append(notifiers, publisher)
			sm.logger.Info("NATS events enabled", zap.String("subject", publisher.Subject()))
		}
	}
	return notifiers
}

// WatchCycles logs every cycle another process announces on NATS
func (sm *ServiceManager) WatchCycles() error {
	if !sm.cfg.NatsEnabled() {
		return nil
	}
	nc, err := events.Connect(sm.cfg.NatsURL, "research-graph-server")
	if err != nil {
		return err
	}
	sm.track("nats", func() error { return nc.Drain() })

	_, err = events.Subscribe(nc, sm.cfg.NatsSubject, func(_ context.Context, o agent.CycleOutcome) {
		sm.logger.Info("Research cycle completed",
			zap.String("cycle_id", o.CycleID),
			zap.String("topic", o.Topic),
			zap.String("next_topic", o.NextTopic),
			zap.Int("graph_nodes", o.GraphNodes),
		)
	})
	return err
}

// Shutdown closes everything in reverse order of opening
func (sm *ServiceManager) Shutdown() {
	sm.mu.Lock()
	closers := sm.closers
	sm.closers = nil
	sm.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.close(); err != nil {
			sm.logger.Error("Failed to close service", zap.String("service", c.name), zap.Error(err))
			continue
		}
		sm.logger.Info("Service closed", zap.String("service", c.name))
	}
}
