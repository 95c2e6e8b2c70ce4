package engagement

import (
	"math"
	"time"

	"cadence/internal/logging"
	"cadence/internal/types"
)

// Tracker owns the engagement counters and the derived maturity state.
type Tracker struct {
	metrics  Metrics
	maturity MaturityState
	now      func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source. Calendar days are taken in the
// clock's location.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a tracker with zeroed counters and discovery maturity.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.CalculateMaturity()
	return t
}

// TrackAction applies one action: daily bookkeeping first, then the action's
// counter, then a synchronous maturity recompute. Unknown actions only
// trigger the daily bookkeeping.
func (t *Tracker) TrackAction(action types.ActionType, metadata types.Metadata) Transition {
	tr := Transition{Action: action, Previous: t.maturity}

	today := t.now().Format(DateLayout)
	if t.metrics.LastActiveDate != today {
		t.metrics.DaysUsed++
		t.metrics.SessionsCount++
		t.metrics.LastActiveDate = today
		tr.NewDay = true
	}

	m := &t.metrics
	switch action {
	case types.ActionConversationStarted:
		m.ConversationsStarted++
	case types.ActionConversationCompleted:
		m.ConversationsCompleted++
	case types.ActionNotebookEntry:
		m.NotebookEntriesCreated++
	case types.ActionCycleDayTracked:
		m.CycleTrackedDays++
	case types.ActionInsightSaved:
		m.InsightsSaved++
	case types.ActionVignetteEngaged:
		m.VignettesEngaged++
	case types.ActionPhaseExplored:
		raw := metadata.String("phase")
		phase, ok := types.ParsePhase(raw)
		if !ok {
			logging.EngagementDebug("phase_explored with unknown phase %q ignored", raw)
			break
		}
		if !m.HasExplored(string(phase)) {
			m.PhasesExplored = append(m.PhasesExplored, string(phase))
		}
	case types.ActionAutonomySignal:
		m.AutonomySignals++
	case types.ActionCycleCompleted:
		m.CyclesCompleted++
	case types.ActionSessionTime:
		if secs, ok := metadata.Int64("seconds"); ok && secs > 0 {
			m.TotalTimeSpent = addSeconds(m.TotalTimeSpent, secs)
		}
	default:
		logging.EngagementDebug("untracked action %q: daily bookkeeping only", action)
	}

	tr.Current = t.CalculateMaturity()
	if tr.Changed() {
		logging.Engagement("maturity %s -> %s (confidence %d)", tr.Previous.Level, tr.Current.Level, tr.Current.Confidence)
	}
	return tr
}

// MaxSessionSeconds caps a single session_time increment at one day.
const MaxSessionSeconds = 24 * 60 * 60

// addSeconds adds a capped increment to total, saturating at math.MaxInt64.
func addSeconds(total, secs int64) int64 {
	if secs > MaxSessionSeconds {
		secs = MaxSessionSeconds
	}
	if total > math.MaxInt64-secs {
		return math.MaxInt64
	}
	return total + secs
}

// Metrics returns a copy of the counters.
func (t *Tracker) Metrics() Metrics {
	return t.metrics.Clone()
}

// Maturity returns the last computed maturity state.
func (t *Tracker) Maturity() MaturityState {
	return t.maturity
}

// Reset zeroes every counter and recomputes maturity.
func (t *Tracker) Reset() {
	t.metrics = Metrics{}
	t.CalculateMaturity()
}

// Restore replaces the counters with a persisted copy. Maturity is
// recomputed rather than trusted from storage.
func (t *Tracker) Restore(m Metrics) {
	t.metrics = m.Clone()
	t.CalculateMaturity()
}
