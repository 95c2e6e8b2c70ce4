package gating

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/engagement"
	"cadence/internal/types"
)

func discoveryInputs() Inputs {
	return Inputs{
		Metrics:  engagement.Metrics{DaysUsed: 5},
		Maturity: engagement.MaturityState{Level: types.MaturityDiscovery, Confidence: 50},
	}
}

// =============================================================================
// EvaluateFeature
// =============================================================================

func TestEvaluateFeature_CalendarViewHalfway(t *testing.T) {
	g := NewGate()

	res := g.EvaluateFeature("calendar_view", discoveryInputs())

	require.True(t, res.Found)
	assert.False(t, res.Available)
	assert.Equal(t, 50, res.Progress)
	require.NotNil(t, res.NextUnmet)
	assert.Equal(t, MetricConversationsStarted, res.NextUnmet.Metric)

	want := []Check{
		{Metric: MetricDaysUsed, Current: 5, Required: 3, Passed: true},
		{Metric: MetricConversationsStarted, Current: 0, Required: 1, Passed: false},
	}
	if diff := cmp.Diff(want, res.Checks); diff != "" {
		t.Errorf("checks mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateFeature_UnknownKey(t *testing.T) {
	g := NewGate()

	res := g.EvaluateFeature("time_travel", discoveryInputs())

	assert.False(t, res.Found)
	assert.False(t, res.Available)
	assert.Equal(t, "time_travel", res.Key)
	assert.Nil(t, res.NextUnmet)
}

func TestEvaluateFeature_MaturityMembership(t *testing.T) {
	g := NewGate()
	in := Inputs{
		Metrics:  engagement.Metrics{CycleTrackedDays: 7},
		Maturity: engagement.MaturityState{Level: types.MaturityDiscovery},
	}

	res := g.EvaluateFeature("observation_mode", in)
	assert.False(t, res.Available)
	assert.Equal(t, 50, res.Progress)
	require.NotNil(t, res.NextUnmet)
	assert.Equal(t, MetricMaturityLevel, res.NextUnmet.Metric)

	in.Maturity.Level = types.MaturityLearning
	res = g.EvaluateFeature("observation_mode", in)
	assert.True(t, res.Available)
	assert.Equal(t, 100, res.Progress)
	assert.Nil(t, res.NextUnmet)
}

func TestEvaluateFeature_IntelligenceSignalsAndCollections(t *testing.T) {
	g := NewGate()
	in := Inputs{
		Metrics: engagement.Metrics{
			DaysUsed:       5,
			PhasesExplored: []string{"menstrual", "luteal"},
		},
		Signals: types.IntelligenceSignals{
			AutonomySignals: types.AutonomySignals{CorrectsPredictions: 1},
		},
		Maturity: engagement.MaturityState{Level: types.MaturityLearning},
	}

	assert.True(t, g.EvaluateFeature("phase_insights", in).Available)
	assert.True(t, g.EvaluateFeature("prediction_override", in).Available)
}

func TestEvaluateFeature_NextUnmetPicksClosestRatio(t *testing.T) {
	g := NewGate(WithRegistry([]FeatureDefinition{{
		Key:      "combo",
		Category: CategoryInsights,
		Requirements: []Requirement{
			atLeast(MetricDaysUsed, 10),
			atLeast(MetricInsightsSaved, 4),
		},
	}}))
	in := Inputs{Metrics: engagement.Metrics{DaysUsed: 2, InsightsSaved: 3}}

	res := g.EvaluateFeature("combo", in)

	require.NotNil(t, res.NextUnmet)
	assert.Equal(t, MetricInsightsSaved, res.NextUnmet.Metric)
	// round((20 + 75) / 2)
	assert.Equal(t, 48, res.Progress)
}

func TestEvaluateFeature_UnknownMetricFails(t *testing.T) {
	g := NewGate(WithRegistry([]FeatureDefinition{{
		Key:          "broken",
		Requirements: []Requirement{atLeast("intelligence.unheardOf", 0)},
	}}))

	res := g.EvaluateFeature("broken", Inputs{})

	assert.False(t, res.Available)
}

// =============================================================================
// EvaluateAll and the cache
// =============================================================================

func TestEvaluateAll_CacheHitReturnsSamePointer(t *testing.T) {
	g := NewGate()
	in := discoveryInputs()

	first := g.EvaluateAll(in)
	second := g.EvaluateAll(in)

	assert.Same(t, first, second)
	stats := g.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Evaluations)
}

func TestEvaluateAll_RelevantChangeMisses(t *testing.T) {
	g := NewGate()
	in := discoveryInputs()

	first := g.EvaluateAll(in)
	in.Metrics.ConversationsStarted = 1
	second := g.EvaluateAll(in)

	assert.NotSame(t, first, second)
	assert.True(t, second.Available("calendar_view"))
	assert.False(t, first.Available("calendar_view"))
	assert.Equal(t, 2, g.Stats().Evaluations)
}

func TestEvaluateAll_IrrelevantChangeHits(t *testing.T) {
	g := NewGate()
	in := discoveryInputs()

	first := g.EvaluateAll(in)
	in.Metrics.LastActiveDate = "2026-03-04"
	in.Maturity.Confidence = 54 // same bucket as 50
	second := g.EvaluateAll(in)

	assert.Same(t, first, second)
}

func TestEvaluateAll_ConfidenceBucketChangeMisses(t *testing.T) {
	g := NewGate()
	in := discoveryInputs()

	g.EvaluateAll(in)
	in.Maturity.Confidence = 60
	g.EvaluateAll(in)

	assert.Equal(t, 2, g.Stats().Misses)
}

func TestEvaluateAll_MalformedEntryRecomputes(t *testing.T) {
	g := NewGate()
	in := discoveryInputs()
	fp := g.Fingerprint(in)
	g.injectCached(fp, &Evaluation{Fingerprint: fp})

	ev := g.EvaluateAll(in)

	require.NotNil(t, ev)
	assert.Len(t, ev.Features, len(DefaultRegistry))
	stats := g.Stats()
	assert.Equal(t, 1, stats.Anomalies)
	assert.Equal(t, 1, stats.Evaluations)
}

func TestEvaluateAll_Summary(t *testing.T) {
	g := NewGate()
	in := Inputs{
		Metrics: engagement.Metrics{
			DaysUsed:               3,
			ConversationsStarted:   1,
			NotebookEntriesCreated: 1,
		},
		Maturity: engagement.MaturityState{Level: types.MaturityDiscovery},
	}

	ev := g.EvaluateAll(in)

	assert.Equal(t, len(DefaultRegistry), ev.Summary.Total)
	assert.Equal(t, 2, ev.Summary.Available)
	assert.Equal(t, CategorySummary{Available: 1, Total: 3}, ev.Summary.ByCategory[CategoryTracking])
	assert.Equal(t, CategorySummary{Available: 1, Total: 1}, ev.Summary.ByCategory[CategoryJournaling])
	assert.Equal(t, "calendar_view", ev.Order[0])
}

func TestEvaluateAll_LRUEvicts(t *testing.T) {
	g := NewGate(WithCacheCapacity(2))
	in := discoveryInputs()

	for i := 0; i < 4; i++ {
		in.Metrics.DaysUsed = i
		g.EvaluateAll(in)
	}

	assert.Equal(t, 2, g.Stats().Cached)
}

func TestFingerprint_OnlyConsultedMetrics(t *testing.T) {
	g := NewGate()
	fp := g.Fingerprint(discoveryInputs())

	assert.Contains(t, fp, "daysUsed=5|")
	assert.Contains(t, fp, "intelligence.observationCount=0|")
	assert.NotContains(t, fp, "lastActiveDate")
	assert.NotContains(t, fp, "sessionsCount")
	assert.Contains(t, fp, "maturity=discovery|conf=5")
}

// =============================================================================
// ProgressionSuggestions
// =============================================================================

func TestProgressionSuggestions(t *testing.T) {
	g := NewGate()
	in := Inputs{
		Metrics: engagement.Metrics{
			DaysUsed:               5,
			NotebookEntriesCreated: 4,
			VignettesEngaged:       3,
			ConversationsCompleted: 1,
			PhasesExplored:         []string{"luteal"},
		},
		Signals: types.IntelligenceSignals{
			AutonomySignals: types.AutonomySignals{DetailedObservations: 3},
		},
		Maturity: engagement.MaturityState{Level: types.MaturityDiscovery},
	}

	got := ProgressionSuggestions(g.EvaluateAll(in))

	require.Len(t, got, MaxSuggestions)
	// pattern_summary: (80 + 100) / 2 = 90
	assert.Equal(t, "pattern_summary", got[0].FeatureKey)
	assert.Equal(t, 90, got[0].Progress)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, "Write 1 more notebook entr(ies)", got[0].Action)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Progress, got[i].Progress)
		assert.GreaterOrEqual(t, got[i].Progress, 50)
	}
}

func TestProgressionSuggestions_Empty(t *testing.T) {
	assert.Nil(t, ProgressionSuggestions(nil))

	g := NewGate()
	got := ProgressionSuggestions(g.EvaluateAll(Inputs{Maturity: engagement.MaturityState{Level: types.MaturityDiscovery}}))
	assert.Empty(t, got)
}

func TestRenderAction(t *testing.T) {
	assert.Equal(t, "Check in on 2 more day(s)", RenderAction(Check{Metric: MetricDaysUsed, Current: 1, Required: 3}))
	assert.Equal(t, "Increase mystery by 1", RenderAction(Check{Metric: "mystery", Current: 0.5, Required: 1}))
	assert.Contains(t, RenderAction(Check{Metric: MetricMaturityLevel, Required: 1}), "next stage")
}
