package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"research-graph/backend/internal/knowledge"
	"research-graph/backend/pkg/logger"
)

// Repository keeps the knowledge graph in Neo4j.
//
// Concepts are (:Concept) nodes and relationships are [:RELATED_TO] edges.
// Both carry a seq property holding their position in the graph so that
// Load returns them in insertion order. Save merges; nothing is deleted.
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("neo4j"),
	}
}

// Connect opens a driver to uri and verifies it can reach the server
func Connect(ctx context.Context, uri, user, password string) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	return NewRepository(driver), nil
}

// Name implements knowledge.Store
func (r *Repository) Name() string {
	return "neo4j"
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// EnsureSchema creates the constraints the repository relies on
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT concept_id IF NOT EXISTS FOR (c:Concept) REQUIRE c.id IS UNIQUE",
		"CREATE INDEX concept_seq IF NOT EXISTS FOR (c:Concept) ON (c.seq)",
	}
	for _, cypher := range constraints {
		if _, err := session.Run(ctx, cypher, nil); err != nil {
			return fmt.Errorf("failed to apply %q: %w", cypher, err)
		}
	}
	return nil
}

// Load implements knowledge.Store
func (r *Repository) Load(ctx context.Context) (*knowledge.Graph, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	g := knowledge.NewGraph()

	query := `
		MATCH (c:Concept)
		RETURN c.id AS id, c.description AS description, c.validated AS validated
		ORDER BY c.seq
	`
	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query concepts: %w", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		g.Nodes = append(g.Nodes, knowledge.Concept{
			ID:          recordValue[string](record, "id"),
			Description: recordValue[string](record, "description"),
			Validated:   recordValue[bool](record, "validated"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read concepts: %w", err)
	}

	query = `
		MATCH (:Concept)-[rel:RELATED_TO]->(:Concept)
		RETURN rel.source AS source, rel.target AS target, rel.label AS label,
		       rel.context AS context, rel.validated AS validated
		ORDER BY rel.seq
	`
	result, err = session.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		g.Edges = append(g.Edges, knowledge.Relationship{
			Source:    recordValue[string](record, "source"),
			Target:    recordValue[string](record, "target"),
			Label:     recordValue[string](record, "label"),
			Context:   recordValue[string](record, "context"),
			Validated: recordValue[bool](record, "validated"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read relationships: %w", err)
	}

	return g, nil
}

// Save implements knowledge.Store. Concepts and relationships are merged in a
// single write transaction. A relationship whose endpoints are not concepts
// of the graph is not stored.
func (r *Repository) Save(ctx context.Context, g *knowledge.Graph) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			UNWIND $nodes AS n
			MERGE (c:Concept {id: n.id})
			SET c.description = n.description,
			    c.validated = n.validated,
			    c.seq = n.seq
		`, map[string]any{"nodes": conceptParams(g.Nodes)}); err != nil {
			return nil, fmt.Errorf("failed to merge concepts: %w", err)
		}

		if _, err := tx.Run(ctx, `
			UNWIND $edges AS e
			MATCH (a:Concept {id: e.source}), (b:Concept {id: e.target})
			MERGE (a)-[rel:RELATED_TO {key: e.key}]-(b)
			SET rel.source = e.source,
			    rel.target = e.target,
			    rel.label = e.label,
			    rel.context = e.context,
			    rel.validated = e.validated,
			    rel.seq = e.seq
		`, map[string]any{"edges": relationshipParams(g.Edges)}); err != nil {
			return nil, fmt.Errorf("failed to merge relationships: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Graph merged into Neo4j",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
	)
	return nil
}

// Reset removes every concept and relationship
func (r *Repository) Reset(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, "MATCH (c:Concept) DETACH DELETE c", nil); err != nil {
		return fmt.Errorf("failed to reset graph: %w", err)
	}
	return nil
}

func conceptParams(nodes []knowledge.Concept) []map[string]any {
	params := make([]map[string]any, 0, len(nodes))
	for i, n := range nodes {
		params = append(params, map[string]any{
			"id":          n.ID,
			"description": n.Description,
			"validated":   n.Validated,
			"seq":         int64(i),
		})
	}
	return params
}

func relationshipParams(edges []knowledge.Relationship) []map[string]any {
	params := make([]map[string]any, 0, len(edges))
	for i, e := range edges {
		params = append(params, map[string]any{
			"key":       e.Key(),
			"source":    e.Source,
			"target":    e.Target,
			"label":     e.Label,
			"context":   e.Context,
			"validated": e.Validated,
			"seq":       int64(i),
		})
	}
	return params
}
