package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/config"
	"cadence/internal/cycle"
	"cadence/internal/events"
	"cadence/internal/store"
	"cadence/internal/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// lutealCycle puts 2026-03-01 on day 20 of a 28-day cycle.
func lutealCycle() cycle.Cycle {
	return cycle.Cycle{LastPeriodStart: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)}
}

func newSession(t *testing.T, clock *fakeClock, st store.DurableStore) *Session {
	t.Helper()
	s, err := New(context.Background(), Options{Store: st, Clock: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Kind)
	}
	return out
}

func TestTrackAction_UpdatesMetricsAndNotifies(t *testing.T) {
	s := newSession(t, newClock(), nil)
	sub := s.Subscribe(10)

	tr, err := s.TrackAction(types.ActionNotebookEntry, nil)
	require.NoError(t, err)
	assert.True(t, tr.NewDay)

	m, err := s.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.NotebookEntriesCreated)
	assert.Equal(t, 1, m.DaysUsed)

	evs := drain(sub)
	assert.Equal(t, []events.Kind{events.KindActionTracked, events.KindFeaturesChanged}, kinds(evs))
	assert.Equal(t, []string{"notebook_prompts"}, evs[1].Data["unlocked"])
}

func TestTrackAction_MaturityTransitionEmitsEvent(t *testing.T) {
	clock := newClock()
	s := newSession(t, clock, nil)
	sub := s.Subscribe(200)

	for day := 0; day < 7; day++ {
		_, err := s.TrackAction(types.ActionConversationStarted, nil)
		require.NoError(t, err)
		if day < 2 {
			_, err = s.TrackAction(types.ActionNotebookEntry, nil)
			require.NoError(t, err)
		}
		clock.Advance(24 * time.Hour)
	}

	mat, err := s.Maturity()
	require.NoError(t, err)
	assert.Equal(t, types.MaturityLearning, mat.Level)

	var changed []events.Event
	for _, ev := range drain(sub) {
		if ev.Kind == events.KindMaturityChanged {
			changed = append(changed, ev)
		}
	}
	require.Len(t, changed, 1)
	assert.Equal(t, "learning", changed[0].Data["current"])

	ms, err := s.NextMilestone()
	require.NoError(t, err)
	require.NotNil(t, ms)
	assert.Equal(t, types.MaturityAutonomous, ms.Target)
}

func TestRecordObservation_WithoutCycle(t *testing.T) {
	st := store.NewMemoryStore()
	s, err := New(context.Background(), Options{Store: st, Clock: newClock().Now})
	require.NoError(t, err)

	res, err := s.RecordObservation(cycle.ObservationInput{Notes: "tired"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.Observation)

	history, err := s.History()
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, st.Saves(), "failed observation must not persist")
}

func TestRecordObservation_ExtractsTermsAndInfersPhase(t *testing.T) {
	s := newSession(t, newClock(), nil)
	require.NoError(t, s.StartCycle(lutealCycle()))

	res, err := s.RecordObservation(cycle.ObservationInput{Notes: "Feeling anxious, lots of bloating"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Observation)
	assert.Equal(t, []string{"bloating"}, res.Observation.Symptoms)
	assert.Equal(t, "anxious", res.Observation.Mood)
	assert.Equal(t, types.PhaseLuteal, res.Observation.Phase)
	assert.Equal(t, 20, res.Observation.CycleDay)
	assert.Equal(t, types.PhaseLuteal, res.Phase)
	assert.Equal(t, types.MethodObservation, res.Mode)

	_, err = s.RecordObservation(cycle.ObservationInput{Mood: "irritable"})
	require.NoError(t, err)

	m, err := s.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.CycleTrackedDays, "only the first observation of a day counts")

	sig, err := s.IntelligenceSignals()
	require.NoError(t, err)
	assert.Equal(t, 2, sig.ObservationCount)
	assert.Equal(t, 1, sig.PatternPhases)
}

func TestRecordObservation_DetailedCountsAsAutonomy(t *testing.T) {
	s := newSession(t, newClock(), nil)
	require.NoError(t, s.StartCycle(lutealCycle()))
	sub := s.Subscribe(20)

	res, err := s.RecordObservation(cycle.ObservationInput{Symptoms: []string{"bloating", "acne"}})
	require.NoError(t, err)
	require.True(t, res.Success)

	sig, err := s.IntelligenceSignals()
	require.NoError(t, err)
	assert.Equal(t, 1, sig.DetailedObservations)

	m, err := s.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.AutonomySignals)

	assert.Contains(t, kinds(drain(sub)), events.KindAutonomySignal)
}

func TestCorrectPhase(t *testing.T) {
	s := newSession(t, newClock(), nil)

	_, err := s.CorrectPhase("spring")
	require.Error(t, err)

	res, err := s.CorrectPhase(types.PhaseFollicular)
	require.NoError(t, err)
	assert.False(t, res.Corrected)
	assert.NotEmpty(t, res.Message)

	require.NoError(t, s.StartCycle(lutealCycle()))

	res, err = s.CorrectPhase(types.PhaseLuteal)
	require.NoError(t, err)
	assert.False(t, res.Corrected, "agreeing with the prediction is not a correction")

	res, err = s.CorrectPhase(types.PhaseFollicular)
	require.NoError(t, err)
	assert.True(t, res.Corrected)

	inf, err := s.CurrentPhase()
	require.NoError(t, err)
	assert.Equal(t, types.PhaseFollicular, inf.Phase)
	assert.Equal(t, 1.0, inf.Confidence)
	assert.Equal(t, types.MethodObservation, inf.Method)

	sig, err := s.IntelligenceSignals()
	require.NoError(t, err)
	assert.Equal(t, 1, sig.CorrectsPredictions)
	assert.Equal(t, 1, sig.ManualPhaseChanges)

	m, err := s.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.AutonomySignals)
}

func TestCurrentPhase_OverrideExpiresNextDay(t *testing.T) {
	clock := newClock()
	s := newSession(t, clock, nil)
	require.NoError(t, s.StartCycle(lutealCycle()))
	_, err := s.CorrectPhase(types.PhaseMenstrual)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	inf, err := s.CurrentPhase()
	require.NoError(t, err)
	assert.Equal(t, types.PhaseLuteal, inf.Phase)
	assert.Equal(t, types.MethodPredictive, inf.Method)
}

func TestStartCycle(t *testing.T) {
	s := newSession(t, newClock(), nil)

	err := s.StartCycle(cycle.Cycle{LastPeriodStart: time.Now(), CycleLength: 70})
	require.Error(t, err)

	require.NoError(t, s.StartCycle(lutealCycle()))
	active, err := s.ActiveCycle()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 28, active.CycleLength)
	assert.Equal(t, 5, active.PeriodDuration)

	m, err := s.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 0, m.CyclesCompleted)

	require.NoError(t, s.StartCycle(cycle.Cycle{LastPeriodStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}))
	m, err = s.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.CyclesCompleted)
}

func TestFeatureQueries(t *testing.T) {
	s := newSession(t, newClock(), nil)
	_, err := s.TrackAction(types.ActionConversationStarted, nil)
	require.NoError(t, err)

	res, err := s.EvaluateFeature("calendar_view")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.False(t, res.Available)

	first, err := s.EvaluateAllFeatures()
	require.NoError(t, err)
	second, err := s.EvaluateAllFeatures()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.GreaterOrEqual(t, s.GateStats().Hits, 1)

	_, err = s.ProgressionSuggestions()
	require.NoError(t, err)
}

func TestConfiguration(t *testing.T) {
	s := newSession(t, newClock(), nil)

	cfg, err := s.Configuration()
	require.NoError(t, err)
	assert.Equal(t, types.MaturityDiscovery, cfg.Maturity)
	assert.Equal(t, 1, cfg.VignetteLimit, "vignette library is still locked")
	assert.Nil(t, cfg.Guidance)
	assert.Equal(t, "balanced", cfg.Persona)

	require.NoError(t, s.StartCycle(lutealCycle()))
	cfg, err = s.Configuration()
	require.NoError(t, err)
	require.NotNil(t, cfg.Guidance)
	assert.NotEmpty(t, cfg.Guidance.Message)
}

func TestSuggestedObservations(t *testing.T) {
	s := newSession(t, newClock(), nil)

	prompts, err := s.SuggestedObservations()
	require.NoError(t, err)
	assert.Empty(t, prompts, "no cycle, no prompts")

	require.NoError(t, s.StartCycle(lutealCycle()))
	prompts, err = s.SuggestedObservations()
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "energy", prompts[0].Category)

	_, err = s.RecordObservation(cycle.ObservationInput{Mood: "anxious"})
	require.NoError(t, err)
	prompts, err = s.SuggestedObservations()
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "symptoms", prompts[0].Category)
}

func TestSuggestedObservations_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UX.Guidance.SuggestObservations = false
	s, err := New(context.Background(), Options{Config: cfg, Clock: newClock().Now})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.StartCycle(lutealCycle()))
	prompts, err := s.SuggestedObservations()
	require.NoError(t, err)
	assert.Empty(t, prompts)
}

func TestObservationGuidance_HidesInsightsWhenDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UX.Guidance.ShowInsights = false
	s, err := New(context.Background(), Options{Config: cfg, Clock: newClock().Now})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.StartCycle(lutealCycle()))
	g, err := s.ObservationGuidance("")
	require.NoError(t, err)
	assert.NotEmpty(t, g.Message)
	assert.Empty(t, g.Insights)
}

func TestPersistence_RoundTrip(t *testing.T) {
	clock := newClock()
	st := store.NewMemoryStore()

	s, err := New(context.Background(), Options{Store: st, Clock: clock.Now})
	require.NoError(t, err)
	require.NoError(t, s.StartCycle(lutealCycle()))
	_, err = s.RecordObservation(cycle.ObservationInput{Symptoms: []string{"bloating", "acne"}, Mood: "anxious"})
	require.NoError(t, err)
	_, err = s.TrackAction(types.ActionNotebookEntry, nil)
	require.NoError(t, err)
	_, err = s.CorrectPhase(types.PhaseFollicular)
	require.NoError(t, err)

	want, err := s.Snapshot()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.GreaterOrEqual(t, st.Saves(), 1)

	restored, err := New(context.Background(), Options{Store: st, Clock: clock.Now})
	require.NoError(t, err)
	defer restored.Close()

	got, err := restored.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, want.Metrics, got.Metrics)
	assert.Equal(t, want.AutonomySignals, got.AutonomySignals)
	assert.Equal(t, want.ObservationTotal, got.ObservationTotal)
	require.Len(t, got.Observations, 1)
	assert.Equal(t, want.Observations[0].ID, got.Observations[0].ID)

	inf, err := restored.CurrentPhase()
	require.NoError(t, err)
	assert.Equal(t, types.PhaseFollicular, inf.Phase, "today's override survives a restart")
}

func TestReset(t *testing.T) {
	s := newSession(t, newClock(), nil)
	require.NoError(t, s.StartCycle(lutealCycle()))
	_, err := s.RecordObservation(cycle.ObservationInput{Mood: "anxious"})
	require.NoError(t, err)
	sub := s.Subscribe(5)

	require.NoError(t, s.Reset())

	m, err := s.Metrics()
	require.NoError(t, err)
	assert.Zero(t, m.DaysUsed)
	active, err := s.ActiveCycle()
	require.NoError(t, err)
	assert.Nil(t, active)
	sig, err := s.IntelligenceSignals()
	require.NoError(t, err)
	assert.Equal(t, types.IntelligenceSignals{}, sig)
	assert.Equal(t, []events.Kind{events.KindStateReset}, kinds(drain(sub)))
}

func TestClosedSession(t *testing.T) {
	s, err := New(context.Background(), Options{Clock: newClock().Now})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.TrackAction(types.ActionNotebookEntry, nil)
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = s.Metrics()
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestConcurrentTracking(t *testing.T) {
	s := newSession(t, newClock(), store.NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, _ = s.TrackAction(types.ActionVignetteEngaged, nil)
				_, _ = s.EvaluateAllFeatures()
			}
		}()
	}
	wg.Wait()

	m, err := s.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 200, m.VignettesEngaged)
}

func TestContextRoundTrip(t *testing.T) {
	s := newSession(t, newClock(), nil)
	ctx := NewContext(context.Background(), s)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestApplyUX(t *testing.T) {
	s := newSession(t, newClock(), nil)
	sub := s.Subscribe(5)

	ux := s.Config().UX
	ux.Persona = "planner"
	require.NoError(t, s.ApplyUX(ux))

	cfg, err := s.Configuration()
	require.NoError(t, err)
	assert.Equal(t, "planner", cfg.Persona)
	assert.Equal(t, []events.Kind{events.KindPreferencesChanged}, kinds(drain(sub)))

	ux.Guidance.Level = "loud"
	assert.Error(t, s.ApplyUX(ux))
}
