package agent

import (
	"context"
	"time"
)

// CycleOutcome summarizes a completed research cycle
type CycleOutcome struct {
	CycleID     string        `json:"cycle_id"`
	Topic       string        `json:"topic"`
	NextTopic   string        `json:"next_topic"`
	Summary     string        `json:"summary"`
	Concepts    []string      `json:"concepts"`
	NewConcepts int           `json:"new_concepts"`
	Candidates  int           `json:"candidates"`
	Validated   int           `json:"validated"`
	AddedEdges  int           `json:"added_edges"`
	GraphNodes  int           `json:"graph_nodes"`
	GraphEdges  int           `json:"graph_edges"`
	BuildName   string        `json:"build_name,omitempty"`
	BuildDir    string        `json:"build_dir,omitempty"`
	Persisted   bool          `json:"persisted"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Notifier is told about every completed cycle.
// Errors are logged by the driver and never fail a cycle.
type Notifier interface {
	Notify(ctx context.Context, outcome *CycleOutcome) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, outcome *CycleOutcome) error

// Notify implements Notifier
func (f NotifierFunc) Notify(ctx context.Context, outcome *CycleOutcome) error {
	return f(ctx, outcome)
}
