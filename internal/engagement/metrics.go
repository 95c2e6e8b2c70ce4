package engagement

import (
	"time"

	"cadence/internal/types"
)

// DateLayout is the calendar-day granularity used for lastActiveDate.
const DateLayout = "2006-01-02"

// Metrics tracks interaction statistics for maturity transitions.
type Metrics struct {
	DaysUsed               int      `json:"days_used"`
	SessionsCount          int      `json:"sessions_count"`
	TotalTimeSpent         int64    `json:"total_time_spent"` // seconds
	ConversationsStarted   int      `json:"conversations_started"`
	ConversationsCompleted int      `json:"conversations_completed"`
	NotebookEntriesCreated int      `json:"notebook_entries_created"`
	CycleTrackedDays       int      `json:"cycle_tracked_days"`
	InsightsSaved          int      `json:"insights_saved"`
	VignettesEngaged       int      `json:"vignettes_engaged"`
	CyclesCompleted        int      `json:"cycles_completed"`
	AutonomySignals        int      `json:"autonomy_signals"`
	PhasesExplored         []string `json:"phases_explored,omitempty"`
	LastActiveDate         string   `json:"last_active_date,omitempty"`
}

// Clone returns a deep copy.
func (m Metrics) Clone() Metrics {
	c := m
	if m.PhasesExplored != nil {
		c.PhasesExplored = append([]string(nil), m.PhasesExplored...)
	}
	return c
}

// HasExplored reports whether phase is already in PhasesExplored.
func (m *Metrics) HasExplored(phase string) bool {
	for _, p := range m.PhasesExplored {
		if p == phase {
			return true
		}
	}
	return false
}

// MaturityState is the derived maturity classification.
type MaturityState struct {
	Level          types.MaturityLevel `json:"level"`
	Confidence     int                 `json:"confidence"`
	LastCalculated time.Time           `json:"last_calculated"`
}

// Milestone lists the remaining deltas to the next maturity tier.
type Milestone struct {
	Target        types.MaturityLevel `json:"target"`
	Days          int                 `json:"days"`
	Conversations int                 `json:"conversations"`
	Entries       int                 `json:"entries"`
	Cycles        int                 `json:"cycles"`
}

// Complete reports whether every delta is zero.
func (m Milestone) Complete() bool {
	return m.Days == 0 && m.Conversations == 0 && m.Entries == 0 && m.Cycles == 0
}

// Transition describes the maturity change caused by a tracked action.
type Transition struct {
	Action   types.ActionType
	NewDay   bool
	Previous MaturityState
	Current  MaturityState
}

// Changed reports whether the maturity level moved.
func (t Transition) Changed() bool {
	return t.Previous.Level != t.Current.Level
}
