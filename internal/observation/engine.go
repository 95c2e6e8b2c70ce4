package observation

import (
	"time"

	"cadence/internal/cycle"
	"cadence/internal/logging"
	"cadence/internal/types"
)

// Settings tune inference.
type Settings struct {
	Window                     int
	InferenceWindow            int
	InferenceHardCap           int
	ConfidenceThreshold        float64
	PatternBoost               float64
	PatternBoostMinOccurrences int
	PatternRecognitionCount    int
}

// DefaultSettings are the stock tuning values.
var DefaultSettings = Settings{
	Window:                     30,
	InferenceWindow:            7,
	InferenceHardCap:           50,
	ConfidenceThreshold:        0.4,
	PatternBoost:               0.2,
	PatternBoostMinOccurrences: 5,
	PatternRecognitionCount:    3,
}

// PhasePattern accumulates what the user reports during one phase.
type PhasePattern struct {
	TypicalSymptoms map[string]int `json:"typical_symptoms,omitempty"`
	TypicalMoods    map[string]int `json:"typical_moods,omitempty"`
	TypicalEnergy   int            `json:"typical_energy,omitempty"`
	Occurrences     int            `json:"occurrences"`
}

func (p *PhasePattern) clone() *PhasePattern {
	c := &PhasePattern{TypicalEnergy: p.TypicalEnergy, Occurrences: p.Occurrences}
	c.TypicalSymptoms = cloneCounts(p.TypicalSymptoms)
	c.TypicalMoods = cloneCounts(p.TypicalMoods)
	return c
}

func cloneCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AutonomyEvent is reported to a SignalSink.
type AutonomyEvent struct {
	Kind      types.SignalKind `json:"kind"`
	Observed  types.Phase      `json:"observed,omitempty"`
	Predicted types.Phase      `json:"predicted,omitempty"`
	Term      string           `json:"term,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// SignalSink receives autonomy events.
type SignalSink func(AutonomyEvent)

// Engine holds the analysis window and pattern store.
type Engine struct {
	settings Settings
	now      func() time.Time
	window   *cycle.Ring[cycle.Observation]
	patterns map[types.Phase]*PhasePattern
	total    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine. Zero settings fields take defaults.
func NewEngine(s Settings, opts ...Option) *Engine {
	d := DefaultSettings
	if s.Window <= 0 {
		s.Window = d.Window
	}
	if s.InferenceWindow <= 0 {
		s.InferenceWindow = d.InferenceWindow
	}
	if s.InferenceHardCap <= 0 {
		s.InferenceHardCap = d.InferenceHardCap
	}
	if s.ConfidenceThreshold <= 0 {
		s.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if s.PatternBoost <= 0 {
		s.PatternBoost = d.PatternBoost
	}
	if s.PatternBoostMinOccurrences <= 0 {
		s.PatternBoostMinOccurrences = d.PatternBoostMinOccurrences
	}
	if s.PatternRecognitionCount <= 0 {
		s.PatternRecognitionCount = d.PatternRecognitionCount
	}
	e := &Engine{
		settings: s,
		now:      time.Now,
		window:   cycle.NewRing[cycle.Observation](s.Window),
		patterns: make(map[types.Phase]*PhasePattern),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingest adds obs to the analysis window and its phase pattern. Autonomy
// events for detailed observations and newly recurring terms go to sink.
func (e *Engine) Ingest(obs cycle.Observation, sink SignalSink) Quality {
	e.window.Push(obs)
	e.total++

	quality := AssessQuality(obs)
	emit := func(ev AutonomyEvent) {
		ev.Timestamp = e.now()
		ev.Observed = obs.Phase
		if sink != nil {
			sink(ev)
		}
	}
	if quality == QualityDetailed {
		emit(AutonomyEvent{Kind: types.SignalDetailedObservation})
	}

	if !obs.Phase.Valid() {
		logging.ObservationWarn("observation %s has no valid phase; pattern not updated", obs.ID)
		return quality
	}

	p := e.patterns[obs.Phase]
	if p == nil {
		p = &PhasePattern{}
		e.patterns[obs.Phase] = p
	}
	p.Occurrences++
	p.TypicalEnergy = obs.Energy

	for _, s := range obs.Symptoms {
		if p.TypicalSymptoms == nil {
			p.TypicalSymptoms = make(map[string]int)
		}
		p.TypicalSymptoms[s]++
		if p.TypicalSymptoms[s] == e.settings.PatternRecognitionCount {
			emit(AutonomyEvent{Kind: types.SignalPatternRecognition, Term: s})
		}
	}
	if obs.Mood != "" {
		if p.TypicalMoods == nil {
			p.TypicalMoods = make(map[string]int)
		}
		p.TypicalMoods[obs.Mood]++
		if p.TypicalMoods[obs.Mood] == e.settings.PatternRecognitionCount {
			emit(AutonomyEvent{Kind: types.SignalPatternRecognition, Term: obs.Mood})
		}
	}

	logging.ObservationDebug("ingested %s phase=%s quality=%s occurrences=%d", obs.ID, obs.Phase, quality, p.Occurrences)
	return quality
}

// Window returns the analysis window, oldest first.
func (e *Engine) Window() []cycle.Observation {
	return e.window.Items()
}

// Pattern returns a copy of the phase's pattern, or nil.
func (e *Engine) Pattern(phase types.Phase) *PhasePattern {
	p := e.patterns[phase]
	if p == nil {
		return nil
	}
	return p.clone()
}

// TotalObservations counts every ingested observation since the last reset.
func (e *Engine) TotalObservations() int {
	return e.total
}

// PatternPhases counts phases with at least one observation.
func (e *Engine) PatternPhases() int {
	n := 0
	for _, p := range e.patterns {
		if p.Occurrences > 0 {
			n++
		}
	}
	return n
}

// Snapshot is the persisted engine state. The analysis window is derived
// from the observation history and is not part of it.
type Snapshot struct {
	Patterns map[types.Phase]*PhasePattern `json:"patterns,omitempty"`
	Total    int                           `json:"total"`
}

// Snapshot returns a deep copy of the persisted state.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{Total: e.total}
	if len(e.patterns) > 0 {
		snap.Patterns = make(map[types.Phase]*PhasePattern, len(e.patterns))
		for phase, p := range e.patterns {
			snap.Patterns[phase] = p.clone()
		}
	}
	return snap
}

// Restore replaces the pattern store and rebuilds the window from the tail
// of history.
func (e *Engine) Restore(snap Snapshot, history []cycle.Observation) {
	e.patterns = make(map[types.Phase]*PhasePattern, len(snap.Patterns))
	for phase, p := range snap.Patterns {
		if p == nil || !phase.Valid() {
			continue
		}
		e.patterns[phase] = p.clone()
	}
	e.total = snap.Total
	if e.total < len(history) {
		e.total = len(history)
	}

	e.window.Clear()
	if n := len(history); n > e.window.Cap() {
		history = history[n-e.window.Cap():]
	}
	for _, obs := range history {
		e.window.Push(obs)
	}
}

// Reset clears patterns and the window.
func (e *Engine) Reset() {
	e.patterns = make(map[types.Phase]*PhasePattern)
	e.window.Clear()
	e.total = 0
}
