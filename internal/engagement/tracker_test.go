package engagement

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/types"
)

// fakeClock is a manually advanced time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestTrackAction_DailyBookkeepingOncePerDay(t *testing.T) {
	clock := newClock()
	tracker := NewTracker(WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		tracker.TrackAction(types.ActionConversationStarted, nil)
		clock.Advance(time.Hour)
	}

	m := tracker.Metrics()
	assert.Equal(t, 1, m.DaysUsed)
	assert.Equal(t, 1, m.SessionsCount)
	assert.Equal(t, 5, m.ConversationsStarted)
	assert.Equal(t, "2026-03-01", m.LastActiveDate)

	clock.Advance(24 * time.Hour)
	tr := tracker.TrackAction(types.ActionNotebookEntry, nil)
	assert.True(t, tr.NewDay)
	assert.Equal(t, 2, tracker.Metrics().DaysUsed)
}

func TestTrackAction_UnknownActionStillCountsDay(t *testing.T) {
	tracker := NewTracker(WithClock(newClock().Now))

	tr := tracker.TrackAction(types.ActionType("opened_settings"), nil)

	m := tracker.Metrics()
	assert.True(t, tr.NewDay)
	assert.Equal(t, 1, m.DaysUsed)
	assert.Equal(t, 0, m.ConversationsStarted)
	assert.Equal(t, 0, m.NotebookEntriesCreated)
}

func TestTrackAction_Counters(t *testing.T) {
	tests := []struct {
		action types.ActionType
		read   func(Metrics) int
	}{
		{types.ActionConversationStarted, func(m Metrics) int { return m.ConversationsStarted }},
		{types.ActionConversationCompleted, func(m Metrics) int { return m.ConversationsCompleted }},
		{types.ActionNotebookEntry, func(m Metrics) int { return m.NotebookEntriesCreated }},
		{types.ActionCycleDayTracked, func(m Metrics) int { return m.CycleTrackedDays }},
		{types.ActionInsightSaved, func(m Metrics) int { return m.InsightsSaved }},
		{types.ActionVignetteEngaged, func(m Metrics) int { return m.VignettesEngaged }},
		{types.ActionAutonomySignal, func(m Metrics) int { return m.AutonomySignals }},
		{types.ActionCycleCompleted, func(m Metrics) int { return m.CyclesCompleted }},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			tracker := NewTracker(WithClock(newClock().Now))
			tracker.TrackAction(tt.action, nil)
			tracker.TrackAction(tt.action, nil)
			assert.Equal(t, 2, tt.read(tracker.Metrics()))
		})
	}
}

func TestTrackAction_PhaseExploredDeduplicates(t *testing.T) {
	tracker := NewTracker(WithClock(newClock().Now))

	tracker.TrackAction(types.ActionPhaseExplored, types.Metadata{"phase": "luteal"})
	tracker.TrackAction(types.ActionPhaseExplored, types.Metadata{"phase": "luteal"})
	tracker.TrackAction(types.ActionPhaseExplored, types.Metadata{"phase": "follicular"})
	tracker.TrackAction(types.ActionPhaseExplored, nil)
	tracker.TrackAction(types.ActionPhaseExplored, types.Metadata{"phase": "Luteal"})
	tracker.TrackAction(types.ActionPhaseExplored, types.Metadata{"phase": " LUTEAL "})
	tracker.TrackAction(types.ActionPhaseExplored, types.Metadata{"phase": "banana"})
	tracker.TrackAction(types.ActionPhaseExplored, types.Metadata{"phase": types.PhaseOvulatory})

	assert.Equal(t, []string{"luteal", "follicular", "ovulatory"}, tracker.Metrics().PhasesExplored)
}

func TestTrackAction_SessionTime(t *testing.T) {
	tracker := NewTracker(WithClock(newClock().Now))

	tracker.TrackAction(types.ActionSessionTime, types.Metadata{"seconds": 120})
	tracker.TrackAction(types.ActionSessionTime, types.Metadata{"seconds": "30"})
	tracker.TrackAction(types.ActionSessionTime, types.Metadata{"seconds": -50})
	tracker.TrackAction(types.ActionSessionTime, types.Metadata{"seconds": "a while"})

	assert.Equal(t, int64(150), tracker.Metrics().TotalTimeSpent)
}

func TestTrackAction_SessionTimeIsBounded(t *testing.T) {
	tracker := NewTracker(WithClock(newClock().Now))

	tracker.TrackAction(types.ActionSessionTime, types.Metadata{"seconds": 1e300})
	assert.Equal(t, int64(MaxSessionSeconds), tracker.Metrics().TotalTimeSpent)

	tracker.Restore(Metrics{TotalTimeSpent: math.MaxInt64 - 10})
	tracker.TrackAction(types.ActionSessionTime, types.Metadata{"seconds": 3600})
	assert.Equal(t, int64(math.MaxInt64), tracker.Metrics().TotalTimeSpent)
}

func TestMetricsCopyIsIndependent(t *testing.T) {
	tracker := NewTracker(WithClock(newClock().Now))
	tracker.TrackAction(types.ActionPhaseExplored, types.Metadata{"phase": "luteal"})

	m := tracker.Metrics()
	m.PhasesExplored[0] = "mutated"
	m.DaysUsed = 99

	assert.Equal(t, "luteal", tracker.Metrics().PhasesExplored[0])
	assert.Equal(t, 1, tracker.Metrics().DaysUsed)
}

func TestReset(t *testing.T) {
	tracker := NewTracker(WithClock(newClock().Now))
	tracker.TrackAction(types.ActionConversationStarted, nil)

	tracker.Reset()

	assert.Equal(t, Metrics{}, tracker.Metrics())
	assert.Equal(t, types.MaturityDiscovery, tracker.Maturity().Level)
	assert.Equal(t, 0, tracker.Maturity().Confidence)
}

func TestRestoreRecomputesMaturity(t *testing.T) {
	tracker := NewTracker(WithClock(newClock().Now))
	tracker.Restore(Metrics{
		DaysUsed:               10,
		ConversationsStarted:   4,
		NotebookEntriesCreated: 3,
		PhasesExplored:         []string{"menstrual"},
	})

	require.Equal(t, types.MaturityLearning, tracker.Maturity().Level)
	assert.Equal(t, 55, tracker.Maturity().Confidence)
}
