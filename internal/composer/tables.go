package composer

import "cadence/internal/types"

// Action is a user-visible entry point.
type Action string

const (
	ActionStartConversation Action = "start_conversation"
	ActionWriteEntry        Action = "write_entry"
	ActionTrackDay          Action = "track_day"
	ActionLogObservation    Action = "log_observation"
	ActionExplorePhase      Action = "explore_phase"
	ActionViewCalendar      Action = "view_calendar"
	ActionBrowseVignettes   Action = "browse_vignettes"
	ActionViewPatterns      Action = "view_patterns"
	ActionCorrectPhase      Action = "correct_phase"
	ActionCompareCycles     Action = "compare_cycles"
	ActionExportInsights    Action = "export_insights"
	ActionPlanAhead         Action = "plan_ahead"
)

// AllActions lists every action in display order.
var AllActions = []Action{
	ActionStartConversation,
	ActionWriteEntry,
	ActionTrackDay,
	ActionLogObservation,
	ActionExplorePhase,
	ActionViewCalendar,
	ActionBrowseVignettes,
	ActionViewPatterns,
	ActionCorrectPhase,
	ActionCompareCycles,
	ActionExportInsights,
	ActionPlanAhead,
}

// actionFeatures ties actions to the feature that unlocks them. Actions not
// listed are always available.
var actionFeatures = map[Action]string{
	ActionViewCalendar:    "calendar_view",
	ActionBrowseVignettes: "vignette_library",
	ActionViewPatterns:    "pattern_summary",
	ActionCorrectPhase:    "prediction_override",
	ActionCompareCycles:   "cycle_comparison",
	ActionExportInsights:  "insight_export",
	ActionPlanAhead:       "self_guided_mode",
}

// Intensity controls how much guidance is shown.
type Intensity int

const (
	// IntensityNone shows no guidance.
	IntensityNone Intensity = iota

	// IntensityLight shows short prompts for autonomous users.
	IntensityLight

	// IntensityStandard shows phase guidance with pattern insights.
	IntensityStandard

	// IntensityDetailed shows full explanations for new users.
	IntensityDetailed
)

// String returns a human-readable name for the intensity.
func (i Intensity) String() string {
	switch i {
	case IntensityNone:
		return "none"
	case IntensityLight:
		return "light"
	case IntensityStandard:
		return "standard"
	case IntensityDetailed:
		return "detailed"
	default:
		return "unknown"
	}
}

// MarshalText renders the intensity by name.
func (i Intensity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// Layout is the maturity-driven base configuration.
type Layout struct {
	VignetteLimit int
	Intensity     Intensity
	Emphasized    []Action
	Hidden        []Action
}

var maturityLayouts = map[types.MaturityLevel]Layout{
	types.MaturityDiscovery: {
		VignetteLimit: 3,
		Intensity:     IntensityDetailed,
		Emphasized:    []Action{ActionStartConversation, ActionTrackDay},
		Hidden:        []Action{ActionCompareCycles, ActionExportInsights, ActionPlanAhead},
	},
	types.MaturityLearning: {
		VignetteLimit: 6,
		Intensity:     IntensityStandard,
		Emphasized:    []Action{ActionLogObservation, ActionWriteEntry, ActionExplorePhase},
		Hidden:        []Action{ActionPlanAhead},
	},
	types.MaturityAutonomous: {
		VignetteLimit: 12,
		Intensity:     IntensityLight,
		Emphasized:    []Action{ActionPlanAhead, ActionViewPatterns, ActionCompareCycles},
	},
}

// Style is a persona's presentation preference.
type Style struct {
	PreferredActions []Action `json:"preferred_actions"`
	NavigationStyle  string   `json:"navigation_style"`
	GuidanceStyle    string   `json:"guidance_style"`
	StepPrefix       string   `json:"step_prefix,omitempty"`
}

// PersonaStyle resolves a persona id to its style.
type PersonaStyle interface {
	Style(personaID string) (Style, bool)
}

// DefaultPersona is used for unknown persona ids.
const DefaultPersona = "balanced"

// StaticPersonas is a fixed PersonaStyle table.
type StaticPersonas map[string]Style

// Style implements PersonaStyle.
func (p StaticPersonas) Style(personaID string) (Style, bool) {
	s, ok := p[personaID]
	return s, ok
}

// DefaultPersonas ships with the product.
var DefaultPersonas = StaticPersonas{
	DefaultPersona: {
		PreferredActions: []Action{ActionLogObservation},
		NavigationStyle:  "tabs",
		GuidanceStyle:    "supportive",
	},
	"explorer": {
		PreferredActions: []Action{ActionExplorePhase, ActionBrowseVignettes},
		NavigationStyle:  "discover",
		GuidanceStyle:    "curious",
		StepPrefix:       "Try this: ",
	},
	"planner": {
		PreferredActions: []Action{ActionViewCalendar, ActionPlanAhead},
		NavigationStyle:  "calendar",
		GuidanceStyle:    "direct",
		StepPrefix:       "Next: ",
	},
	"reflector": {
		PreferredActions: []Action{ActionWriteEntry, ActionViewPatterns},
		NavigationStyle:  "journal",
		GuidanceStyle:    "gentle",
		StepPrefix:       "When you're ready, ",
	},
}
