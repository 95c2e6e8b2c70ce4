package store

import (
	"time"

	"cadence/internal/cycle"
	"cadence/internal/engagement"
	"cadence/internal/observation"
	"cadence/internal/types"
)

// Snapshot schema versions:
// v1: metrics and maturity only, no version field
// v2: full engine state (observations, patterns, autonomy signals, cycle)
const CurrentVersion = 2

// Snapshot is the persisted engine state. Derived in-memory state (gate
// cache, analysis window) is never part of it.
type Snapshot struct {
	Version          int                                       `json:"version"`
	SavedAt          time.Time                                 `json:"saved_at"`
	Metrics          engagement.Metrics                        `json:"metrics"`
	Maturity         engagement.MaturityState                  `json:"maturity"`
	Observations     []cycle.Observation                       `json:"observations"`
	PhasePatterns    map[types.Phase]*observation.PhasePattern `json:"phase_patterns,omitempty"`
	ObservationTotal int                                       `json:"observation_total"`
	AutonomySignals  types.AutonomySignals                     `json:"autonomy_signals"`
	Cycle            *cycle.Snapshot                           `json:"cycle"`
}

// NewSnapshot returns an empty current-version snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:      CurrentVersion,
		Observations: []cycle.Observation{},
	}
}
