// Package graph stores the knowledge graph in Neo4j.
package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// recordValue reads key from record, returning the zero value when it is
// missing, null or of another type
func recordValue[T any](record *neo4j.Record, key string) T {
	var zero T
	val, ok := record.Get(key)
	if !ok || val == nil {
		return zero
	}
	if v, ok := val.(T); ok {
		return v
	}
	return zero
}
