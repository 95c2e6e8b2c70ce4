package engagement

import (
	"math"

	"cadence/internal/types"
)

// tier holds the all-or-nothing thresholds for a maturity level.
type tier struct {
	level         types.MaturityLevel
	days          int
	conversations int
	entries       int
	cycles        int
}

var (
	autonomousTier = tier{level: types.MaturityAutonomous, days: 21, conversations: 10, entries: 8, cycles: 1}
	learningTier   = tier{level: types.MaturityLearning, days: 7, conversations: 3, entries: 2, cycles: 0}
)

func (t tier) met(m *Metrics) bool {
	return m.DaysUsed >= t.days &&
		m.ConversationsStarted >= t.conversations &&
		m.NotebookEntriesCreated >= t.entries &&
		m.CyclesCompleted >= t.cycles
}

// rawMaturity evaluates the waterfall without clamping the confidence.
func rawMaturity(m *Metrics) (types.MaturityLevel, int) {
	switch {
	case autonomousTier.met(m):
		return types.MaturityAutonomous, 70 + m.AutonomySignals*10
	case learningTier.met(m):
		return types.MaturityLearning, 40 + len(m.PhasesExplored)*15
	default:
		return types.MaturityDiscovery, m.DaysUsed * 10
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// CalculateMaturity evaluates the maturity waterfall, stores the result and
// returns it. The returned confidence is the clamped value callers also see
// through Maturity().
func (t *Tracker) CalculateMaturity() MaturityState {
	level, confidence := rawMaturity(&t.metrics)
	t.maturity = MaturityState{
		Level:          level,
		Confidence:     clampPercent(confidence),
		LastCalculated: t.now(),
	}
	return t.maturity
}

// EngagementScore returns a 0-100 score. Negative counters cannot push the
// score out of range.
func (t *Tracker) EngagementScore() int {
	m := &t.metrics
	raw := float64(m.DaysUsed)*5 +
		float64(m.ConversationsCompleted)*10 +
		float64(len(m.PhasesExplored))*25 +
		float64(m.AutonomySignals)*20

	score := math.Round(raw / 4)
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// NextMilestone returns the remaining deltas to the next tier, or nil when
// the user is autonomous.
func (t *Tracker) NextMilestone() *Milestone {
	var next tier
	switch t.maturity.Level {
	case types.MaturityAutonomous:
		return nil
	case types.MaturityLearning:
		next = autonomousTier
	default:
		next = learningTier
	}

	m := &t.metrics
	return &Milestone{
		Target:        next.level,
		Days:          positive(next.days - m.DaysUsed),
		Conversations: positive(next.conversations - m.ConversationsStarted),
		Entries:       positive(next.entries - m.NotebookEntriesCreated),
		Cycles:        positive(next.cycles - m.CyclesCompleted),
	}
}

func positive(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
