package observation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"cadence/internal/cycle"
	"cadence/internal/types"
)

// Guidance is the observation prompt shown for the current phase.
type Guidance struct {
	Message    string   `json:"message"`
	Action     string   `json:"action"`
	Insights   []string `json:"insights"`
	Confidence float64  `json:"confidence"`
}

type template struct {
	message string
	action  string
}

// Placeholders filled from the phase pattern.
const (
	phSymptom = "{symptom}"
	phMood    = "{mood}"
	phEnergy  = "{energy}"
	phPattern = "{pattern}"
)

// personalizationThreshold is the observation count needed before templates
// are filled from the user's own history.
const personalizationThreshold = 3

var templates = map[types.MaturityLevel]map[types.Phase]template{
	types.MaturityDiscovery: {
		types.PhaseMenstrual:  {"Your period is a time to rest. How is your body feeling today?", "Log how you feel"},
		types.PhaseFollicular: {"Energy often starts to rise now. Notice anything new today?", "Log your energy"},
		types.PhaseOvulatory:  {"Many people feel more social around now. How about you?", "Log your mood"},
		types.PhaseLuteal:     {"Things can feel heavier before your period. Be gentle with yourself.", "Log any symptoms"},
	},
	types.MaturityLearning: {
		types.PhaseMenstrual:  {"Last time in this phase you noticed {symptom}. Is it showing up again?", "Compare with last cycle"},
		types.PhaseFollicular: {"Your energy tends to be {energy} here and your mood {mood}. Does that fit today?", "Check your pattern"},
		types.PhaseOvulatory:  {"You often feel {mood} around ovulation. What's standing out today?", "Note what's different"},
		types.PhaseLuteal:     {"{pattern} Watch for {symptom} this week.", "Plan around your pattern"},
	},
	types.MaturityAutonomous: {
		types.PhaseMenstrual:  {"{pattern} You know this phase well; what do you need?", "Set your own intention"},
		types.PhaseFollicular: {"{pattern} How do you want to use the rising energy?", "Plan your week"},
		types.PhaseOvulatory:  {"{pattern} Trust your read on today.", "Record your own read"},
		types.PhaseLuteal:     {"{pattern} What helped last time {symptom} showed up?", "Note what helps"},
	},
}

// genericFill replaces placeholders before there is enough history.
var genericFill = map[string]string{
	phSymptom: "familiar symptoms",
	phMood:    "steady",
	phEnergy:  "changing",
	phPattern: "Patterns take a few observations to appear.",
}

// Guidance returns the maturity-tiered prompt for phase. Above discovery,
// with enough observations, placeholders use the phase's recorded pattern.
func (e *Engine) Guidance(phase types.Phase, signals types.IntelligenceSignals, maturity types.MaturityLevel) Guidance {
	tier, ok := templates[maturity]
	if !ok {
		tier = templates[types.MaturityDiscovery]
	}
	tmpl, ok := tier[phase]
	if !ok {
		return Guidance{
			Message:    "Start a cycle to get phase guidance.",
			Action:     "Start a cycle",
			Insights:   []string{},
			Confidence: 0,
		}
	}

	observations := signals.ObservationCount
	if e.total > observations {
		observations = e.total
	}
	pattern := e.patterns[phase]
	personal := observations >= personalizationThreshold &&
		maturity.Rank() > types.MaturityDiscovery.Rank() &&
		pattern != nil && pattern.Occurrences > 0

	g := Guidance{Action: tmpl.action, Insights: []string{}, Confidence: 0.3}
	if !personal {
		g.Message = fill(tmpl.message, genericFill)
		return g
	}

	values := map[string]string{
		phSymptom: genericFill[phSymptom],
		phMood:    genericFill[phMood],
		phEnergy:  EnergyDescriptor(pattern.TypicalEnergy),
		phPattern: patternSentence(phase, pattern),
	}
	if top := topTerms(pattern.TypicalSymptoms, 1); len(top) > 0 {
		values[phSymptom] = top[0]
	}
	if top := topTerms(pattern.TypicalMoods, 1); len(top) > 0 {
		values[phMood] = top[0]
	}

	g.Message = fill(tmpl.message, values)
	g.Insights = insights(phase, pattern, signals)
	g.Confidence = math.Min(1, 0.3+float64(pattern.Occurrences)*0.1)
	return g
}

func fill(message string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for _, ph := range []string{phSymptom, phMood, phEnergy, phPattern} {
		pairs = append(pairs, ph, values[ph])
	}
	return strings.NewReplacer(pairs...).Replace(message)
}

func patternSentence(phase types.Phase, p *PhasePattern) string {
	var parts []string
	if top := topTerms(p.TypicalSymptoms, 2); len(top) > 0 {
		parts = append(parts, strings.Join(top, " and "))
	}
	if top := topTerms(p.TypicalMoods, 1); len(top) > 0 {
		parts = append(parts, "feeling "+top[0])
	}
	if len(parts) == 0 {
		return fmt.Sprintf("You've logged %d observation(s) in your %s phase.", p.Occurrences, phase)
	}
	return fmt.Sprintf("In your %s phase you usually notice %s.", phase, strings.Join(parts, ", "))
}

func insights(phase types.Phase, p *PhasePattern, signals types.IntelligenceSignals) []string {
	out := []string{}
	for _, term := range topTerms(p.TypicalSymptoms, 3) {
		out = append(out, fmt.Sprintf("Recurring %s symptom: %s (%dx)", phase, term, p.TypicalSymptoms[term]))
	}
	if top := topTerms(p.TypicalMoods, 1); len(top) > 0 {
		out = append(out, fmt.Sprintf("Most common %s mood: %s", phase, top[0]))
	}
	if signals.CorrectsPredictions > 0 {
		out = append(out, fmt.Sprintf("You've corrected the calendar %d time(s)", signals.CorrectsPredictions))
	}
	return out
}

// topTerms returns up to n keys with the highest counts; ties sort by name.
func topTerms(counts map[string]int, n int) []string {
	if len(counts) == 0 || n <= 0 {
		return nil
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Prompt asks the user for a missing observation category.
type Prompt struct {
	Category string   `json:"category"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Observation categories.
const (
	CategoryEnergy   = "energy"
	CategoryMood     = "mood"
	CategorySymptoms = "symptoms"
)

// MaxPrompts bounds SuggestedObservations.
const MaxPrompts = 2

// SuggestedObservations returns up to two prompts for categories missing
// from existing, using the phase vocabulary as options. Energy counts as
// present once any observation exists since every observation carries it.
func SuggestedObservations(phase types.Phase, existing []cycle.Observation) []Prompt {
	var hasEnergy, hasMood, hasSymptoms bool
	for _, obs := range existing {
		hasEnergy = true
		if obs.Mood != "" {
			hasMood = true
		}
		if len(obs.Symptoms) > 0 {
			hasSymptoms = true
		}
	}

	vocab := Dictionaries[phase]
	prompts := make([]Prompt, 0, MaxPrompts)
	if !hasEnergy {
		prompts = append(prompts, Prompt{
			Category: CategoryEnergy,
			Question: "How is your energy today?",
			Options:  []string{"very low", "low", "moderate", "high", "very high"},
		})
	}
	if !hasMood {
		prompts = append(prompts, Prompt{
			Category: CategoryMood,
			Question: "Which word fits your mood?",
			Options:  append([]string(nil), vocab.Moods...),
		})
	}
	if !hasSymptoms {
		prompts = append(prompts, Prompt{
			Category: CategorySymptoms,
			Question: "Noticing anything in your body?",
			Options:  append([]string(nil), vocab.Symptoms...),
		})
	}
	if len(prompts) > MaxPrompts {
		prompts = prompts[:MaxPrompts]
	}
	return prompts
}
