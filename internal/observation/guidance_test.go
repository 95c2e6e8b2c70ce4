package observation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/cycle"
	"cadence/internal/types"
)

func TestGuidance_DiscoveryIsGeneric(t *testing.T) {
	e := newEngine()
	for i := 0; i < 5; i++ {
		e.Ingest(obsWith(types.PhaseLuteal, 2, "anxious", "bloating"), nil)
	}

	g := e.Guidance(types.PhaseLuteal, types.IntelligenceSignals{ObservationCount: 5}, types.MaturityDiscovery)

	assert.Equal(t, templates[types.MaturityDiscovery][types.PhaseLuteal].message, g.Message)
	assert.Empty(t, g.Insights)
	assert.InDelta(t, 0.3, g.Confidence, 1e-9)
}

func TestGuidance_LearningUsesPattern(t *testing.T) {
	e := newEngine()
	e.Ingest(obsWith(types.PhaseLuteal, 2, "anxious", "bloating"), nil)
	e.Ingest(obsWith(types.PhaseLuteal, 2, "anxious", "bloating", "acne"), nil)
	e.Ingest(obsWith(types.PhaseLuteal, 2, "moody", "bloating"), nil)

	g := e.Guidance(types.PhaseLuteal, types.IntelligenceSignals{
		AutonomySignals: types.AutonomySignals{CorrectsPredictions: 2},
	}, types.MaturityLearning)

	assert.Equal(t, "In your luteal phase you usually notice bloating and acne, feeling anxious. Watch for bloating this week.", g.Message)
	assert.Equal(t, "Plan around your pattern", g.Action)
	assert.Equal(t, []string{
		"Recurring luteal symptom: bloating (3x)",
		"Recurring luteal symptom: acne (1x)",
		"Most common luteal mood: anxious",
		"You've corrected the calendar 2 time(s)",
	}, g.Insights)
	assert.InDelta(t, 0.6, g.Confidence, 1e-9)
}

func TestGuidance_TooFewObservationsStaysGeneric(t *testing.T) {
	e := newEngine()
	e.Ingest(obsWith(types.PhaseFollicular, 4, "curious"), nil)

	g := e.Guidance(types.PhaseFollicular, types.IntelligenceSignals{}, types.MaturityAutonomous)

	assert.NotContains(t, g.Message, "{")
	assert.True(t, strings.HasPrefix(g.Message, genericFill[phPattern]))
}

func TestGuidance_UnknownPhase(t *testing.T) {
	g := newEngine().Guidance("", types.IntelligenceSignals{}, types.MaturityLearning)

	assert.Zero(t, g.Confidence)
	assert.NotEmpty(t, g.Message)
}

func TestSuggestedObservations(t *testing.T) {
	t.Run("nothing logged", func(t *testing.T) {
		got := SuggestedObservations(types.PhaseOvulatory, nil)
		require.Len(t, got, MaxPrompts)
		assert.Equal(t, CategoryEnergy, got[0].Category)
		assert.Equal(t, CategoryMood, got[1].Category)
		assert.Equal(t, Dictionaries[types.PhaseOvulatory].Moods, got[1].Options)
	})

	t.Run("mood logged", func(t *testing.T) {
		got := SuggestedObservations(types.PhaseLuteal, []cycle.Observation{{Mood: "calm", Energy: 3}})
		require.Len(t, got, 1)
		assert.Equal(t, CategorySymptoms, got[0].Category)
		assert.Equal(t, Dictionaries[types.PhaseLuteal].Symptoms, got[0].Options)
	})

	t.Run("everything logged", func(t *testing.T) {
		got := SuggestedObservations(types.PhaseLuteal, []cycle.Observation{{Mood: "calm", Symptoms: []string{"acne"}}})
		assert.Empty(t, got)
	})
}
