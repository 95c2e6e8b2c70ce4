package engagement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/types"
)

func TestCalculateMaturity_Waterfall(t *testing.T) {
	tests := []struct {
		name       string
		metrics    Metrics
		level      types.MaturityLevel
		confidence int
	}{
		{
			name:       "fresh user",
			metrics:    Metrics{},
			level:      types.MaturityDiscovery,
			confidence: 0,
		},
		{
			name:       "discovery confidence grows with days",
			metrics:    Metrics{DaysUsed: 6, ConversationsStarted: 10, NotebookEntriesCreated: 10},
			level:      types.MaturityDiscovery,
			confidence: 60,
		},
		{
			name:       "discovery confidence clamps",
			metrics:    Metrics{DaysUsed: 30},
			level:      types.MaturityDiscovery,
			confidence: 100,
		},
		{
			name:       "learning",
			metrics:    Metrics{DaysUsed: 7, ConversationsStarted: 3, NotebookEntriesCreated: 2, PhasesExplored: []string{"luteal", "ovulatory"}},
			level:      types.MaturityLearning,
			confidence: 70,
		},
		{
			name: "learning confidence clamps",
			metrics: Metrics{DaysUsed: 7, ConversationsStarted: 3, NotebookEntriesCreated: 2,
				PhasesExplored: []string{"menstrual", "follicular", "ovulatory", "luteal"}},
			level:      types.MaturityLearning,
			confidence: 100,
		},
		{
			name:       "autonomous requires a completed cycle",
			metrics:    Metrics{DaysUsed: 21, ConversationsStarted: 10, NotebookEntriesCreated: 8},
			level:      types.MaturityLearning,
			confidence: 40,
		},
		{
			name:       "autonomous",
			metrics:    Metrics{DaysUsed: 21, ConversationsStarted: 10, NotebookEntriesCreated: 8, CyclesCompleted: 1, AutonomySignals: 2},
			level:      types.MaturityAutonomous,
			confidence: 90,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker()
			tracker.metrics = tt.metrics
			got := tracker.CalculateMaturity()
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, got, tracker.Maturity())
		})
	}
}

func TestCalculateMaturity_ClampsStoredAndReturnedConfidence(t *testing.T) {
	m := Metrics{DaysUsed: 21, ConversationsStarted: 10, NotebookEntriesCreated: 8, CyclesCompleted: 1, AutonomySignals: 5}

	level, raw := rawMaturity(&m)
	require.Equal(t, types.MaturityAutonomous, level)
	require.Equal(t, 120, raw)

	tracker := NewTracker()
	tracker.metrics = m
	returned := tracker.CalculateMaturity()

	assert.Equal(t, 100, returned.Confidence)
	assert.Equal(t, 100, tracker.Maturity().Confidence)
}

func TestMaturity_DiscoveryToLearningScenario(t *testing.T) {
	clock := newClock()
	tracker := NewTracker(WithClock(clock.Now))

	var transitions []Transition
	track := func(action types.ActionType, n int) {
		for i := 0; i < n; i++ {
			if tr := tracker.TrackAction(action, nil); tr.Changed() {
				transitions = append(transitions, tr)
			}
			clock.Advance(24 * time.Hour)
		}
	}
	track(types.ActionConversationStarted, 7)
	track(types.ActionConversationCompleted, 3)
	track(types.ActionNotebookEntry, 2)

	got := tracker.Maturity()
	assert.Equal(t, types.MaturityLearning, got.Level)
	assert.Equal(t, 40+len(tracker.Metrics().PhasesExplored)*15, got.Confidence)

	require.Len(t, transitions, 1)
	assert.Equal(t, types.MaturityDiscovery, transitions[0].Previous.Level)
	assert.Equal(t, types.MaturityLearning, transitions[0].Current.Level)
}

func TestEngagementScore(t *testing.T) {
	tests := []struct {
		name    string
		metrics Metrics
		want    int
	}{
		{"zero", Metrics{}, 0},
		{"formula", Metrics{DaysUsed: 4, ConversationsCompleted: 2, PhasesExplored: []string{"luteal"}}, 16},
		{"rounds half up", Metrics{DaysUsed: 1, ConversationsCompleted: 1}, 4},
		{"caps at 100", Metrics{DaysUsed: 100, AutonomySignals: 40}, 100},
		{"negative counters", Metrics{DaysUsed: -50, ConversationsCompleted: -3, AutonomySignals: -9}, 0},
		{"mixed sign", Metrics{DaysUsed: -4, AutonomySignals: 2}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker()
			tracker.metrics = tt.metrics
			got := tracker.EngagementScore()
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestNextMilestone(t *testing.T) {
	tracker := NewTracker()
	tracker.Restore(Metrics{DaysUsed: 2, ConversationsStarted: 5})

	ms := tracker.NextMilestone()
	require.NotNil(t, ms)
	assert.Equal(t, Milestone{Target: types.MaturityLearning, Days: 5, Conversations: 0, Entries: 2, Cycles: 0}, *ms)

	tracker.Restore(Metrics{DaysUsed: 8, ConversationsStarted: 3, NotebookEntriesCreated: 2})
	ms = tracker.NextMilestone()
	require.NotNil(t, ms)
	assert.Equal(t, Milestone{Target: types.MaturityAutonomous, Days: 13, Conversations: 7, Entries: 6, Cycles: 1}, *ms)

	tracker.Restore(Metrics{DaysUsed: 21, ConversationsStarted: 10, NotebookEntriesCreated: 8, CyclesCompleted: 1})
	assert.Nil(t, tracker.NextMilestone())
}
