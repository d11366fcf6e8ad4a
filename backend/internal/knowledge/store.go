package knowledge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	apperrors "research-graph/backend/pkg/errors"
	"research-graph/backend/pkg/logger"
)

// Store persists the knowledge graph as a whole.
// There is no partial update API: callers load, mutate in memory and save.
type Store interface {
	Load(ctx context.Context) (*Graph, error)
	Save(ctx context.Context, g *Graph) error
	Name() string
}

// Resetter is implemented by stores that can drop everything they hold
type Resetter interface {
	Reset(ctx context.Context) error
}

// Guard serializes access to a Store.
// Readers share a lock; a writer holds it across load, mutate and save.
type Guard struct {
	mu     sync.RWMutex
	store  Store
	logger *zap.Logger
}

// NewGuard wraps a store
func NewGuard(store Store) *Guard {
	return &Guard{
		store:  store,
		logger: logger.Named("knowledge"),
	}
}

// Backend names the wrapped store
func (g *Guard) Backend() string {
	return g.store.Name()
}

// View loads the current graph.
// An unreadable graph is replaced by an empty one; the load error is still returned.
func (g *Guard) View(ctx context.Context) (*Graph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.load(ctx)
}

// Update loads the graph, applies fn and saves the result under the writer lock.
// The mutated graph is returned even when saving fails so the caller can keep working with it.
func (g *Guard) Update(ctx context.Context, fn func(*Graph) error) (*Graph, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	graph, _ := g.load(ctx)
	if err := fn(graph); err != nil {
		return graph, err
	}

	if err := g.store.Save(ctx, graph); err != nil {
		g.logger.Error("Could not save knowledge graph",
			zap.String("backend", g.store.Name()),
			zap.Error(err),
		)
		return graph, apperrors.NewStoreSaveFailed(g.store.Name(), err)
	}

	g.logger.Debug("Knowledge graph saved",
		zap.String("backend", g.store.Name()),
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
	)
	return graph, nil
}

func (g *Guard) load(ctx context.Context) (*Graph, error) {
	graph, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Warn("Could not read knowledge graph, starting from an empty graph",
			zap.String("backend", g.store.Name()),
			zap.Error(err),
		)
		return NewGraph(), apperrors.NewStoreLoadFailed(g.store.Name(), err)
	}
	if graph == nil {
		return NewGraph(), nil
	}
	return graph.normalize(), nil
}
