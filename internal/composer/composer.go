package composer

import (
	"fmt"
	"strings"

	"cadence/internal/config"
	"cadence/internal/engagement"
	"cadence/internal/gating"
	"cadence/internal/logging"
	"cadence/internal/observation"
	"cadence/internal/types"
)

// MaxNextSteps bounds Configuration.NextSteps.
const MaxNextSteps = 3

// Inputs is everything a composition reads.
type Inputs struct {
	Maturity      engagement.MaturityState
	Milestone     *engagement.Milestone
	Evaluation    *gating.Evaluation
	Suggestions   []gating.Suggestion
	Guidance      *observation.Guidance
	Persona       string
	GuidanceLevel config.GuidanceLevel
}

// NextStep is a ranked suggestion for the user.
type NextStep struct {
	Text     string          `json:"text"`
	Metric   string          `json:"metric"`
	Source   string          `json:"source"`
	Priority gating.Priority `json:"priority"`
}

// Configuration is the UI-facing composition.
type Configuration struct {
	Maturity          types.MaturityLevel   `json:"maturity"`
	Confidence        int                   `json:"confidence"`
	Persona           string                `json:"persona"`
	NavigationStyle   string                `json:"navigation_style"`
	GuidanceStyle     string                `json:"guidance_style"`
	VignetteLimit     int                   `json:"vignette_limit"`
	GuidanceIntensity Intensity             `json:"guidance_intensity"`
	EmphasizedActions []Action              `json:"emphasized_actions"`
	HiddenActions     []Action              `json:"hidden_actions"`
	VisibleActions    []Action              `json:"visible_actions"`
	Guidance          *observation.Guidance `json:"guidance,omitempty"`
	NextSteps         []NextStep            `json:"next_steps"`
	FeaturesAvailable int                   `json:"features_available"`
	FeaturesTotal     int                   `json:"features_total"`
}

// Composer builds configurations from static tables.
type Composer struct {
	personas PersonaStyle
}

// New creates a composer. A nil table uses DefaultPersonas.
func New(personas PersonaStyle) *Composer {
	if personas == nil {
		personas = DefaultPersonas
	}
	return &Composer{personas: personas}
}

// Compose merges in into a Configuration.
func (c *Composer) Compose(in Inputs) Configuration {
	layout, ok := maturityLayouts[in.Maturity.Level]
	if !ok {
		layout = maturityLayouts[types.MaturityDiscovery]
	}

	persona := in.Persona
	style, ok := c.personas.Style(persona)
	if !ok {
		persona = DefaultPersona
		style, _ = DefaultPersonas.Style(DefaultPersona)
	}

	cfg := Configuration{
		Maturity:        in.Maturity.Level,
		Confidence:      in.Maturity.Confidence,
		Persona:         persona,
		NavigationStyle: style.NavigationStyle,
		GuidanceStyle:   style.GuidanceStyle,
		VignetteLimit:   layout.VignetteLimit,
	}

	hidden := make(map[Action]bool)
	for _, a := range layout.Hidden {
		hidden[a] = true
	}
	for action, feature := range actionFeatures {
		if !in.Evaluation.Available(feature) {
			hidden[action] = true
		}
	}
	if !in.Evaluation.Available("vignette_library") && cfg.VignetteLimit > 1 {
		cfg.VignetteLimit = 1
	}

	cfg.HiddenActions = []Action{}
	cfg.VisibleActions = []Action{}
	for _, a := range AllActions {
		if hidden[a] {
			cfg.HiddenActions = append(cfg.HiddenActions, a)
		} else {
			cfg.VisibleActions = append(cfg.VisibleActions, a)
		}
	}

	cfg.EmphasizedActions = []Action{}
	seen := make(map[Action]bool)
	for _, a := range append(append([]Action(nil), layout.Emphasized...), style.PreferredActions...) {
		if hidden[a] || seen[a] {
			continue
		}
		seen[a] = true
		cfg.EmphasizedActions = append(cfg.EmphasizedActions, a)
	}

	cfg.GuidanceIntensity = intensityFor(layout.Intensity, in.GuidanceLevel)
	if cfg.GuidanceIntensity != IntensityNone && in.Guidance != nil {
		g := *in.Guidance
		if cfg.GuidanceIntensity == IntensityLight {
			g.Insights = nil
		}
		cfg.Guidance = &g
	}

	if in.Evaluation != nil {
		cfg.FeaturesAvailable = in.Evaluation.Summary.Available
		cfg.FeaturesTotal = in.Evaluation.Summary.Total
	}

	cfg.NextSteps = nextSteps(in.Milestone, in.Suggestions, style.StepPrefix)

	logging.ComposerDebug("composed maturity=%s persona=%s intensity=%s hidden=%d steps=%d",
		cfg.Maturity, cfg.Persona, cfg.GuidanceIntensity, len(cfg.HiddenActions), len(cfg.NextSteps))
	return cfg
}

// intensityFor applies the user's guidance override to the maturity default.
func intensityFor(base Intensity, level config.GuidanceLevel) Intensity {
	switch level {
	case config.GuidanceNone:
		return IntensityNone
	case config.GuidanceMinimal:
		if base > IntensityLight {
			return IntensityLight
		}
		return base
	case config.GuidanceVerbose:
		return IntensityDetailed
	default:
		return base
	}
}

// milestoneMetrics pairs milestone gaps with the metric they track.
var milestoneMetrics = []struct {
	metric string
	gap    func(*engagement.Milestone) int
}{
	{gating.MetricDaysUsed, func(m *engagement.Milestone) int { return m.Days }},
	{gating.MetricConversationsStarted, func(m *engagement.Milestone) int { return m.Conversations }},
	{gating.MetricNotebookEntries, func(m *engagement.Milestone) int { return m.Entries }},
	{gating.MetricCyclesCompleted, func(m *engagement.Milestone) int { return m.Cycles }},
}

// nextSteps ranks high-priority feature suggestions, then milestone gaps,
// then the remaining suggestions. Each metric appears once.
func nextSteps(milestone *engagement.Milestone, suggestions []gating.Suggestion, prefix string) []NextStep {
	var candidates []NextStep
	for _, s := range suggestions {
		if s.Priority == gating.PriorityHigh {
			candidates = append(candidates, NextStep{Text: s.Action, Metric: s.Metric, Source: "feature:" + s.FeatureKey, Priority: s.Priority})
		}
	}
	if milestone != nil {
		for _, mm := range milestoneMetrics {
			gap := mm.gap(milestone)
			if gap <= 0 {
				continue
			}
			text := gating.RenderAction(gating.Check{Metric: mm.metric, Required: float64(gap)})
			candidates = append(candidates, NextStep{
				Text:     text,
				Metric:   mm.metric,
				Source:   fmt.Sprintf("milestone:%s", milestone.Target),
				Priority: gating.PriorityMedium,
			})
		}
	}
	for _, s := range suggestions {
		if s.Priority != gating.PriorityHigh {
			candidates = append(candidates, NextStep{Text: s.Action, Metric: s.Metric, Source: "feature:" + s.FeatureKey, Priority: s.Priority})
		}
	}

	steps := []NextStep{}
	seen := make(map[string]bool)
	for _, step := range candidates {
		key := step.Metric
		if key == "" {
			key = step.Text
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		if prefix != "" {
			step.Text = prefix + lowerFirst(step.Text)
		}
		steps = append(steps, step)
		if len(steps) == MaxNextSteps {
			break
		}
	}
	return steps
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
