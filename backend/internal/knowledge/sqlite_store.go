package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore keeps the graph in two tables, ordered by insertion position.
//
// Save upserts every concept and relationship. Since the graph never loses
// elements, upserting the whole graph leaves the tables equal to it.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("knowledge: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("knowledge: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("knowledge: migration: %w", err)
	}
	return s, nil
}

// Name implements Store
func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS concepts (
			id          TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			validated   INTEGER NOT NULL DEFAULT 0,
			position    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS relationships (
			pair_key  TEXT PRIMARY KEY,
			source    TEXT NOT NULL,
			target    TEXT NOT NULL,
			label     TEXT NOT NULL,
			context   TEXT NOT NULL,
			validated INTEGER NOT NULL DEFAULT 0,
			position  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_concepts_position ON concepts(position);
		CREATE INDEX IF NOT EXISTS idx_relationships_position ON relationships(position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load implements Store
func (s *SQLiteStore) Load(ctx context.Context) (*Graph, error) {
	g := NewGraph()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, validated FROM concepts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying concepts: %w", err)
	}
	for rows.Next() {
		var c Concept
		if err := rows.Scan(&c.ID, &c.Description, &c.Validated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning concept: %w", err)
		}
		g.Nodes = append(g.Nodes, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating concepts: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT source, target, label, context, validated FROM relationships ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.Source, &r.Target, &r.Label, &r.Context, &r.Validated); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		g.Edges = append(g.Edges, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relationships: %w", err)
	}

	return g, nil
}

// Save implements Store
func (s *SQLiteStore) Save(ctx context.Context, g *Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, c := range g.Nodes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO concepts (id, description, validated, position)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				description = excluded.description,
				validated   = excluded.validated,
				position    = excluded.position`,
			c.ID, c.Description, c.Validated, i)
		if err != nil {
			return fmt.Errorf("saving concept %q: %w", c.ID, err)
		}
	}

	for i, r := range g.Edges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO relationships (pair_key, source, target, label, context, validated, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(pair_key) DO UPDATE SET
				label     = excluded.label,
				context   = excluded.context,
				validated = excluded.validated,
				position  = excluded.position`,
			r.Key(), r.Source, r.Target, r.Label, r.Context, r.Validated, i)
		if err != nil {
			return fmt.Errorf("saving relationship %q: %w", r.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Reset implements Resetter
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"relationships", "concepts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}
