package session

import (
	"fmt"

	"cadence/internal/composer"
	"cadence/internal/config"
	"cadence/internal/cycle"
	"cadence/internal/engagement"
	"cadence/internal/events"
	"cadence/internal/gating"
	"cadence/internal/logging"
	"cadence/internal/observation"
	"cadence/internal/types"
)

// RecordResult is returned by RecordObservation.
type RecordResult struct {
	Success     bool                  `json:"success"`
	Quality     observation.Quality   `json:"quality,omitempty"`
	Phase       types.Phase           `json:"phase,omitempty"`
	Mode        types.InferenceMethod `json:"mode,omitempty"`
	Observation *cycle.Observation    `json:"observation,omitempty"`
}

// =============================================================================
// Locked helpers
// =============================================================================

func (s *Session) intelligenceLocked() types.IntelligenceSignals {
	return types.IntelligenceSignals{
		AutonomySignals:  s.signals,
		ObservationCount: s.engine.TotalObservations(),
		PatternPhases:    s.engine.PatternPhases(),
	}
}

func (s *Session) gateInputsLocked() gating.Inputs {
	return gating.Inputs{
		Metrics:  s.tracker.Metrics(),
		Signals:  s.intelligenceLocked(),
		Maturity: s.tracker.Maturity(),
	}
}

// trackLocked applies an action and queues the resulting events.
func (s *Session) trackLocked(action types.ActionType, metadata types.Metadata, emit func(events.Event)) engagement.Transition {
	tr := s.tracker.TrackAction(action, metadata)
	emit(events.Event{
		Kind:    events.KindActionTracked,
		Summary: string(action),
		Data:    map[string]interface{}{"new_day": tr.NewDay},
	})
	if tr.Changed() {
		emit(events.Event{
			Kind:    events.KindMaturityChanged,
			Summary: fmt.Sprintf("%s -> %s", tr.Previous.Level, tr.Current.Level),
			Data: map[string]interface{}{
				"previous":   string(tr.Previous.Level),
				"current":    string(tr.Current.Level),
				"confidence": tr.Current.Confidence,
			},
		})
	}
	return tr
}

// autonomySinkLocked counts autonomy events and forwards each to the tracker
// as an autonomy_signal action.
func (s *Session) autonomySinkLocked(emit func(events.Event)) observation.SignalSink {
	return func(ev observation.AutonomyEvent) {
		s.signals.Apply(ev.Kind)
		emit(events.Event{
			Kind:      events.KindAutonomySignal,
			Timestamp: ev.Timestamp,
			Summary:   string(ev.Kind),
			Data: map[string]interface{}{
				"observed":  string(ev.Observed),
				"predicted": string(ev.Predicted),
				"term":      ev.Term,
			},
		})
		s.trackLocked(types.ActionAutonomySignal, types.Metadata{"kind": string(ev.Kind)}, emit)
	}
}

// withFeatureDiff runs mutate and emits features_changed for newly unlocked
// or relocked features.
func (s *Session) withFeatureDiff(emit func(events.Event), mutate func()) {
	before := s.gate.EvaluateAll(s.gateInputsLocked())
	mutate()
	after := s.gate.EvaluateAll(s.gateInputsLocked())
	if before == after {
		return
	}

	var unlocked, locked []string
	for _, key := range after.Order {
		was, is := before.Available(key), after.Available(key)
		switch {
		case is && !was:
			unlocked = append(unlocked, key)
		case was && !is:
			locked = append(locked, key)
		}
	}
	if len(unlocked) == 0 && len(locked) == 0 {
		return
	}
	logging.Session("features changed: unlocked=%v locked=%v", unlocked, locked)
	emit(events.Event{
		Kind:    events.KindFeaturesChanged,
		Summary: fmt.Sprintf("%d unlocked, %d locked", len(unlocked), len(locked)),
		Data: map[string]interface{}{
			"unlocked":  unlocked,
			"locked":    locked,
			"available": after.Summary.Available,
		},
	})
}

// =============================================================================
// Engagement
// =============================================================================

// TrackAction records a user action and recomputes maturity.
func (s *Session) TrackAction(action types.ActionType, metadata types.Metadata) (engagement.Transition, error) {
	var tr engagement.Transition
	err := s.pipeline(func(emit func(events.Event)) bool {
		s.withFeatureDiff(emit, func() {
			tr = s.trackLocked(action, metadata, emit)
		})
		return true
	})
	return tr, err
}

// EngagementScore returns the 0-100 engagement score.
func (s *Session) EngagementScore() (int, error) {
	var score int
	err := s.read(func() { score = s.tracker.EngagementScore() })
	return score, err
}

// NextMilestone returns the gaps to the next maturity tier, or nil.
func (s *Session) NextMilestone() (*engagement.Milestone, error) {
	var m *engagement.Milestone
	err := s.read(func() { m = s.tracker.NextMilestone() })
	return m, err
}

// Maturity returns the current maturity state.
func (s *Session) Maturity() (engagement.MaturityState, error) {
	var m engagement.MaturityState
	err := s.read(func() { m = s.tracker.Maturity() })
	return m, err
}

// Metrics returns a copy of the engagement counters.
func (s *Session) Metrics() (engagement.Metrics, error) {
	var m engagement.Metrics
	err := s.read(func() { m = s.tracker.Metrics() })
	return m, err
}

// IntelligenceSignals returns the derived signals consulted by the gate.
func (s *Session) IntelligenceSignals() (types.IntelligenceSignals, error) {
	var sig types.IntelligenceSignals
	err := s.read(func() { sig = s.intelligenceLocked() })
	return sig, err
}

// =============================================================================
// Feature gating
// =============================================================================

// EvaluateFeature evaluates one feature against current state.
func (s *Session) EvaluateFeature(key string) (gating.Result, error) {
	var res gating.Result
	err := s.read(func() { res = s.gate.EvaluateFeature(key, s.gateInputsLocked()) })
	return res, err
}

// EvaluateAllFeatures evaluates the registry through the fingerprint cache.
// The returned evaluation is shared and must not be modified.
func (s *Session) EvaluateAllFeatures() (*gating.Evaluation, error) {
	var ev *gating.Evaluation
	err := s.read(func() { ev = s.gate.EvaluateAll(s.gateInputsLocked()) })
	return ev, err
}

// ProgressionSuggestions returns up to three near-unlock features.
func (s *Session) ProgressionSuggestions() ([]gating.Suggestion, error) {
	var out []gating.Suggestion
	err := s.read(func() { out = gating.ProgressionSuggestions(s.gate.EvaluateAll(s.gateInputsLocked())) })
	return out, err
}

// GateStats returns feature cache counters.
func (s *Session) GateStats() gating.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Stats()
}

// =============================================================================
// Cycle and observations
// =============================================================================

// StartCycle begins a new cycle. Replacing an active cycle counts it as
// completed.
func (s *Session) StartCycle(c cycle.Cycle) error {
	var startErr error
	err := s.pipeline(func(emit func(events.Event)) bool {
		s.withFeatureDiff(emit, func() {
			prev, err := s.cycle.Start(c)
			if err != nil {
				startErr = err
				return
			}
			active := s.cycle.Active()
			emit(events.Event{
				Kind:    events.KindCycleStarted,
				Summary: active.LastPeriodStart.Format(cycle.DateLayout),
				Data:    map[string]interface{}{"length": active.CycleLength, "period": active.PeriodDuration},
			})
			if prev != nil {
				s.trackLocked(types.ActionCycleCompleted, nil, emit)
			}
		})
		return startErr == nil
	})
	if err != nil {
		return err
	}
	return startErr
}

// ActiveCycle returns the active cycle, or nil.
func (s *Session) ActiveCycle() (*cycle.Cycle, error) {
	var c *cycle.Cycle
	err := s.read(func() { c = s.cycle.Active() })
	return c, err
}

// RecordObservation stores a self-report. Without an active cycle it
// returns Success=false and changes nothing.
func (s *Session) RecordObservation(in cycle.ObservationInput) (RecordResult, error) {
	var res RecordResult
	err := s.pipeline(func(emit func(events.Event)) bool {
		if len(in.Symptoms) == 0 || in.Mood == "" {
			symptoms, mood := observation.ExtractTerms(in.Notes)
			if len(in.Symptoms) == 0 {
				in.Symptoms = symptoms
			}
			if in.Mood == "" {
				in.Mood = mood
			}
		}

		firstToday := len(s.todaysObservationsLocked()) == 0
		obs, ok := s.cycle.Record(in)
		if !ok {
			return false
		}

		s.withFeatureDiff(emit, func() {
			res.Quality = s.engine.Ingest(obs, s.autonomySinkLocked(emit))
			if firstToday {
				s.trackLocked(types.ActionCycleDayTracked, nil, emit)
			}
		})

		predicted, _ := s.cycle.PredictedPhase()
		inf := s.engine.InferPhase(predicted, s.engine.Window())
		res.Success = true
		res.Phase = inf.Phase
		res.Mode = inf.Method
		res.Observation = &obs

		emit(events.Event{
			Kind:    events.KindObservationRecorded,
			Summary: obs.ID,
			Data: map[string]interface{}{
				"quality": string(res.Quality),
				"phase":   string(res.Phase),
				"mode":    string(res.Mode),
			},
		})
		return true
	})
	return res, err
}

func (s *Session) todaysObservationsLocked() []cycle.Observation {
	today := s.now().Format(cycle.DateLayout)
	var out []cycle.Observation
	for _, obs := range s.cycle.Recent(s.cycle.HistoryLen()) {
		if obs.Timestamp.In(s.now().Location()).Format(cycle.DateLayout) == today {
			out = append(out, obs)
		}
	}
	return out
}

// CorrectPhase records the user's own read of the current phase. A phase
// that differs from the prediction becomes today's override and counts as
// an autonomy signal.
func (s *Session) CorrectPhase(observed types.Phase) (observation.Correction, error) {
	if !observed.Valid() {
		return observation.Correction{}, fmt.Errorf("unknown phase %q", observed)
	}

	var res observation.Correction
	err := s.pipeline(func(emit func(events.Event)) bool {
		predicted, ok := s.cycle.PredictedPhase()
		if !ok {
			res = observation.Correction{Corrected: false, Message: "Start a cycle before correcting its phase."}
			return false
		}

		s.withFeatureDiff(emit, func() {
			res = s.engine.DetectPredictionCorrection(observed, predicted, s.autonomySinkLocked(emit))
			if res.Corrected {
				s.cycle.SetOverride(observed)
				s.signals.ManualPhaseChanges++
			}
		})
		if !res.Corrected {
			return false
		}
		emit(events.Event{
			Kind:    events.KindPhaseCorrected,
			Summary: fmt.Sprintf("%s -> %s", predicted, observed),
			Data:    map[string]interface{}{"observed": string(observed), "predicted": string(predicted)},
		})
		return true
	})
	return res, err
}

// CurrentPhase returns today's phase estimate. A manual override wins with
// full confidence; otherwise observations are fused with the prediction.
func (s *Session) CurrentPhase() (observation.Inference, error) {
	var inf observation.Inference
	err := s.read(func() { inf = s.currentPhaseLocked() })
	return inf, err
}

func (s *Session) currentPhaseLocked() observation.Inference {
	predicted, ok := s.cycle.PredictedPhase()
	if !ok {
		return observation.Inference{Method: types.MethodPredictive, Signals: []observation.Signal{}}
	}
	if current, _ := s.cycle.CurrentPhase(); current != predicted {
		return observation.Inference{Phase: current, Confidence: 1, Method: types.MethodObservation, Signals: []observation.Signal{}}
	}
	return s.engine.InferPhase(predicted, s.engine.Window())
}

// ObservationGuidance returns guidance for phase, or for the current phase
// when phase is empty.
func (s *Session) ObservationGuidance(phase types.Phase) (observation.Guidance, error) {
	var g observation.Guidance
	err := s.read(func() { g = s.guidanceLocked(phase) })
	return g, err
}

func (s *Session) guidanceLocked(phase types.Phase) observation.Guidance {
	if phase == "" {
		phase = s.currentPhaseLocked().Phase
	}
	g := s.engine.Guidance(phase, s.intelligenceLocked(), s.tracker.Maturity().Level)
	if !s.cfg.UX.Guidance.ShowInsights {
		g.Insights = []string{}
	}
	return g
}

// SuggestedObservations prompts for categories not yet logged today.
func (s *Session) SuggestedObservations() ([]observation.Prompt, error) {
	var out []observation.Prompt
	err := s.read(func() {
		if !s.cfg.UX.Guidance.SuggestObservations {
			return
		}
		phase := s.currentPhaseLocked().Phase
		if phase == "" {
			return
		}
		out = observation.SuggestedObservations(phase, s.todaysObservationsLocked())
	})
	return out, err
}

// History returns stored observations, newest last.
func (s *Session) History() ([]cycle.Observation, error) {
	var out []cycle.Observation
	err := s.read(func() { out = s.cycle.History() })
	return out, err
}

// PhasePatterns returns a copy of every non-empty phase pattern, keyed by
// phase in cycle order.
func (s *Session) PhasePatterns() (map[types.Phase]*observation.PhasePattern, error) {
	out := make(map[types.Phase]*observation.PhasePattern)
	err := s.read(func() {
		for _, phase := range types.AllPhases {
			if p := s.engine.Pattern(phase); p != nil {
				out[phase] = p
			}
		}
	})
	return out, err
}

// =============================================================================
// Composition and lifecycle
// =============================================================================

// Configuration composes the UI-facing configuration.
func (s *Session) Configuration() (composer.Configuration, error) {
	var cfg composer.Configuration
	err := s.read(func() {
		ev := s.gate.EvaluateAll(s.gateInputsLocked())
		in := composer.Inputs{
			Maturity:      s.tracker.Maturity(),
			Milestone:     s.tracker.NextMilestone(),
			Evaluation:    ev,
			Suggestions:   gating.ProgressionSuggestions(ev),
			Persona:       s.cfg.UX.Persona,
			GuidanceLevel: s.cfg.UX.Guidance.Level,
		}
		if s.cycle.Active() != nil {
			g := s.guidanceLocked("")
			in.Guidance = &g
		}
		cfg = s.composer.Compose(in)
	})
	return cfg, err
}

// ApplyUX swaps persona and guidance preferences, typically after a config
// reload. Engine tuning stays fixed for the life of the session.
func (s *Session) ApplyUX(ux config.UXConfig) error {
	if !ux.Guidance.Level.Valid() {
		return fmt.Errorf("unknown guidance level %q", ux.Guidance.Level)
	}
	return s.pipeline(func(emit func(events.Event)) bool {
		cfg := *s.cfg
		cfg.UX = ux
		s.cfg = &cfg
		emit(events.Event{
			Kind:    events.KindPreferencesChanged,
			Summary: ux.Persona,
			Data:    map[string]interface{}{"persona": ux.Persona, "guidance": string(ux.Guidance.Level)},
		})
		return false
	})
}

// Reset clears every counter, pattern, observation and the active cycle.
func (s *Session) Reset() error {
	return s.pipeline(func(emit func(events.Event)) bool {
		s.tracker.Reset()
		s.cycle.Reset()
		s.engine.Reset()
		s.signals = types.AutonomySignals{}
		s.gate.Invalidate()
		emit(events.Event{Kind: events.KindStateReset, Summary: "state reset"})
		logging.Session("state reset")
		return true
	})
}
