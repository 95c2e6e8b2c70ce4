package gating

import "cadence/internal/types"

// Metric paths a requirement may address.
const (
	MetricDaysUsed               = "daysUsed"
	MetricSessionsCount          = "sessionsCount"
	MetricTotalTimeSpent         = "totalTimeSpent"
	MetricConversationsStarted   = "conversationsStarted"
	MetricConversationsCompleted = "conversationsCompleted"
	MetricNotebookEntries        = "notebookEntriesCreated"
	MetricCycleTrackedDays       = "cycleTrackedDays"
	MetricInsightsSaved          = "insightsSaved"
	MetricVignettesEngaged       = "vignettesEngaged"
	MetricCyclesCompleted        = "cyclesCompleted"
	MetricAutonomySignals        = "autonomySignals"
	MetricPhasesExplored         = "phasesExplored"
	MetricMaturityLevel          = "maturityLevel"

	IntelligencePrefix = "intelligence."

	SignalCorrectsPredictions  = IntelligencePrefix + "correctsPredictions"
	SignalManualPhaseChanges   = IntelligencePrefix + "manualPhaseChanges"
	SignalDetailedObservations = IntelligencePrefix + "detailedObservations"
	SignalPatternRecognitions  = IntelligencePrefix + "patternRecognitions"
	SignalObservationCount     = IntelligencePrefix + "observationCount"
	SignalPatternPhases        = IntelligencePrefix + "patternPhases"
)

// Feature categories.
const (
	CategoryTracking   = "tracking"
	CategoryInsights   = "insights"
	CategoryJournaling = "journaling"
	CategoryContent    = "content"
	CategoryAutonomy   = "autonomy"
)

// Requirement is one gate condition. Threshold applies to numeric paths;
// Levels applies to the maturityLevel membership check.
type Requirement struct {
	Metric    string                `json:"metric"`
	Threshold float64               `json:"threshold,omitempty"`
	Levels    []types.MaturityLevel `json:"levels,omitempty"`
}

// FeatureDefinition is an immutable registry entry. Requirements are ordered
// so check order and the nearest unmet requirement are stable.
type FeatureDefinition struct {
	Key          string        `json:"key"`
	Category     string        `json:"category"`
	Description  string        `json:"description"`
	Requirements []Requirement `json:"requirements"`
}

func atLeast(metric string, threshold float64) Requirement {
	return Requirement{Metric: metric, Threshold: threshold}
}

func maturityIn(levels ...types.MaturityLevel) Requirement {
	return Requirement{Metric: MetricMaturityLevel, Levels: levels}
}

// DefaultRegistry is the product's progressive feature set.
var DefaultRegistry = []FeatureDefinition{
	{
		Key:         "calendar_view",
		Category:    CategoryTracking,
		Description: "Month calendar with predicted phases",
		Requirements: []Requirement{
			atLeast(MetricDaysUsed, 3),
			atLeast(MetricConversationsStarted, 1),
		},
	},
	{
		Key:         "notebook_prompts",
		Category:    CategoryJournaling,
		Description: "Phase-aware journaling prompts",
		Requirements: []Requirement{
			atLeast(MetricNotebookEntries, 1),
		},
	},
	{
		Key:         "phase_insights",
		Category:    CategoryInsights,
		Description: "Deeper explanations of each phase",
		Requirements: []Requirement{
			atLeast(MetricDaysUsed, 5),
			atLeast(MetricPhasesExplored, 2),
		},
	},
	{
		Key:         "vignette_library",
		Category:    CategoryContent,
		Description: "Full library of short guided vignettes",
		Requirements: []Requirement{
			atLeast(MetricVignettesEngaged, 3),
			atLeast(MetricConversationsCompleted, 2),
		},
	},
	{
		Key:         "pattern_summary",
		Category:    CategoryInsights,
		Description: "Summary of recurring symptoms and moods",
		Requirements: []Requirement{
			atLeast(MetricNotebookEntries, 5),
			atLeast(SignalDetailedObservations, 3),
		},
	},
	{
		Key:         "observation_mode",
		Category:    CategoryTracking,
		Description: "Infer the phase from observations instead of the calendar",
		Requirements: []Requirement{
			atLeast(MetricCycleTrackedDays, 7),
			maturityIn(types.MaturityLearning, types.MaturityAutonomous),
		},
	},
	{
		Key:         "prediction_override",
		Category:    CategoryTracking,
		Description: "Correct the predicted phase directly",
		Requirements: []Requirement{
			atLeast(SignalCorrectsPredictions, 1),
			maturityIn(types.MaturityLearning, types.MaturityAutonomous),
		},
	},
	{
		Key:         "cycle_comparison",
		Category:    CategoryInsights,
		Description: "Compare patterns across completed cycles",
		Requirements: []Requirement{
			atLeast(MetricCyclesCompleted, 2),
			atLeast(SignalObservationCount, 10),
		},
	},
	{
		Key:         "insight_export",
		Category:    CategoryContent,
		Description: "Export saved insights and patterns",
		Requirements: []Requirement{
			atLeast(MetricInsightsSaved, 5),
			atLeast(SignalPatternPhases, 2),
		},
	},
	{
		Key:         "self_guided_mode",
		Category:    CategoryAutonomy,
		Description: "Minimal guidance, user-led planning",
		Requirements: []Requirement{
			maturityIn(types.MaturityAutonomous),
			atLeast(MetricAutonomySignals, 3),
		},
	},
}

// actionMessages render the nearest unmet requirement as a next step.
// %d receives the remaining amount.
var actionMessages = map[string]string{
	MetricDaysUsed:               "Check in on %d more day(s)",
	MetricSessionsCount:          "Open the app for %d more session(s)",
	MetricTotalTimeSpent:         "Spend %d more second(s) exploring",
	MetricConversationsStarted:   "Start %d more conversation(s)",
	MetricConversationsCompleted: "Finish %d more conversation(s)",
	MetricNotebookEntries:        "Write %d more notebook entr(ies)",
	MetricCycleTrackedDays:       "Track %d more cycle day(s)",
	MetricInsightsSaved:          "Save %d more insight(s)",
	MetricVignettesEngaged:       "Try %d more vignette(s)",
	MetricCyclesCompleted:        "Complete %d more cycle(s)",
	MetricAutonomySignals:        "Trust your own read of your cycle %d more time(s)",
	MetricPhasesExplored:         "Explore %d more phase(s)",
	SignalCorrectsPredictions:    "Correct a prediction that doesn't match how you feel (%d to go)",
	SignalManualPhaseChanges:     "Set your phase manually %d more time(s)",
	SignalDetailedObservations:   "Log %d more detailed observation(s)",
	SignalPatternRecognitions:    "Record observations until %d more pattern(s) emerge",
	SignalObservationCount:       "Record %d more observation(s)",
	SignalPatternPhases:          "Observe %d more phase(s) so patterns can form",
}

const maturityMessage = "Keep building your practice to reach the %s stage"
