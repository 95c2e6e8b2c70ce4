package types

// AutonomySignals count events where the user reasons about the cycle
// independently of app predictions.
type AutonomySignals struct {
	CorrectsPredictions  int `json:"corrects_predictions" yaml:"corrects_predictions"`
	ManualPhaseChanges   int `json:"manual_phase_changes" yaml:"manual_phase_changes"`
	DetailedObservations int `json:"detailed_observations" yaml:"detailed_observations"`
	PatternRecognitions  int `json:"pattern_recognitions" yaml:"pattern_recognitions"`
}

// Total sums all signal counters.
func (s AutonomySignals) Total() int {
	return s.CorrectsPredictions + s.ManualPhaseChanges + s.DetailedObservations + s.PatternRecognitions
}

// SignalKind names an autonomy signal emitted by the observation engine.
type SignalKind string

const (
	SignalCorrectsPrediction  SignalKind = "corrects_prediction"
	SignalManualPhaseChange   SignalKind = "manual_phase_change"
	SignalDetailedObservation SignalKind = "detailed_observation"
	SignalPatternRecognition  SignalKind = "pattern_recognition"
)

// Apply increments the counter matching kind. Unknown kinds are ignored.
func (s *AutonomySignals) Apply(kind SignalKind) {
	switch kind {
	case SignalCorrectsPrediction:
		s.CorrectsPredictions++
	case SignalManualPhaseChange:
		s.ManualPhaseChanges++
	case SignalDetailedObservation:
		s.DetailedObservations++
	case SignalPatternRecognition:
		s.PatternRecognitions++
	}
}

// IntelligenceSignals is the derived-intelligence view consulted by feature
// gating through "intelligence.<field>" requirement paths.
type IntelligenceSignals struct {
	AutonomySignals
	ObservationCount int `json:"observation_count"`
	PatternPhases    int `json:"pattern_phases"`
}
