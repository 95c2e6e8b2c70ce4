package types

// ActionType identifies a user action fed to the engagement tracker.
// Values outside the declared set are legal and only trigger daily bookkeeping.
type ActionType string

const (
	ActionConversationStarted   ActionType = "conversation_started"
	ActionConversationCompleted ActionType = "conversation_completed"
	ActionNotebookEntry         ActionType = "notebook_entry"
	ActionCycleDayTracked       ActionType = "cycle_day_tracked"
	ActionInsightSaved          ActionType = "insight_saved"
	ActionVignetteEngaged       ActionType = "vignette_engaged"
	ActionPhaseExplored         ActionType = "phase_explored"
	ActionAutonomySignal        ActionType = "autonomy_signal"
	ActionCycleCompleted        ActionType = "cycle_completed"
	ActionSessionTime           ActionType = "session_time"
)

// KnownActions lists every action with a domain counter.
var KnownActions = []ActionType{
	ActionConversationStarted,
	ActionConversationCompleted,
	ActionNotebookEntry,
	ActionCycleDayTracked,
	ActionInsightSaved,
	ActionVignetteEngaged,
	ActionPhaseExplored,
	ActionAutonomySignal,
	ActionCycleCompleted,
	ActionSessionTime,
}

// Known reports whether a has a domain counter.
func (a ActionType) Known() bool {
	for _, k := range KnownActions {
		if a == k {
			return true
		}
	}
	return false
}

// Metadata carries optional action parameters (phase for phase_explored,
// seconds for session_time). Values typically come from JSON or CLI flags.
type Metadata map[string]interface{}
