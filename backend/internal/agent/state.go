package agent

import (
	"sync"
	"time"
)

// State is the stage the cycle driver is in
type State string

// Cycle states, in the order a successful cycle visits them
const (
	StateIdle            State = "idle"
	StateResearching     State = "researching"
	StateSynthesizing    State = "synthesizing"
	StateValidating      State = "validating"
	StatePersistingGraph State = "persisting_graph"
	StateBuildingReport  State = "building_report"
	StateSelectingTopic  State = "selecting_next_topic"
	StateWaiting         State = "waiting"
	StateStopped         State = "stopped"
)

// Status is a snapshot of the driver for observers
type Status struct {
	State           State     `json:"state"`
	Topic           string    `json:"topic"`
	Cycles          int       `json:"cycles"`
	Retries         int       `json:"retries"`
	LastCycleID     string    `json:"last_cycle_id,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	LastCompletedAt time.Time `json:"last_completed_at,omitempty"`
	LastBuild       string    `json:"last_build,omitempty"`
}

// statusTracker guards the status shared with the HTTP API
type statusTracker struct {
	mu     sync.RWMutex
	status Status
}

func (t *statusTracker) get() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *statusTracker) update(fn func(*Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
}
