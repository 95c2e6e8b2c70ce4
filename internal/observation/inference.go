package observation

import (
	"math"

	"cadence/internal/cycle"
	"cadence/internal/logging"
	"cadence/internal/types"
)

// Score weights per matched term.
const (
	symptomWeight = 2
	moodWeight    = 3
	energyWeight  = 2
)

// Signal is one keyword match that contributed to a phase score.
type Signal struct {
	Type  string      `json:"type"`
	Value string      `json:"value"`
	Phase types.Phase `json:"phase"`
}

// Inference is a fused phase estimate.
type Inference struct {
	Phase      types.Phase           `json:"phase"`
	Confidence float64               `json:"confidence"`
	Method     types.InferenceMethod `json:"method"`
	Signals    []Signal              `json:"signals"`
	Scores     map[types.Phase]int   `json:"scores,omitempty"`
}

// InferPhase fuses recent observations with the predicted phase. Only the
// newest InferenceWindow observations count, after capping the input at
// InferenceHardCap. The observed candidate replaces the prediction only when
// its confidence exceeds the threshold.
func (e *Engine) InferPhase(predicted types.Phase, recent []cycle.Observation) Inference {
	if len(recent) == 0 {
		return Inference{Phase: predicted, Confidence: 0, Method: types.MethodPredictive, Signals: []Signal{}}
	}

	if n := len(recent); n > e.settings.InferenceHardCap {
		recent = recent[n-e.settings.InferenceHardCap:]
	}
	if n := len(recent); n > e.settings.InferenceWindow {
		recent = recent[n-e.settings.InferenceWindow:]
	}

	scores := make(map[types.Phase]int, len(types.AllPhases))
	signals := []Signal{}
	for _, obs := range recent {
		signals = scoreObservation(obs, scores, signals)
	}

	var candidate types.Phase
	best, total := 0, 0
	for _, phase := range types.AllPhases {
		s := scores[phase]
		total += s
		if s > best {
			best, candidate = s, phase
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = float64(best) / float64(total)
		if p := e.patterns[candidate]; p != nil && p.Occurrences > e.settings.PatternBoostMinOccurrences {
			confidence += e.settings.PatternBoost
		}
		confidence = math.Min(1, confidence)
	}

	res := Inference{
		Phase:      predicted,
		Confidence: confidence,
		Method:     types.MethodHybrid,
		Signals:    signals,
		Scores:     scores,
	}
	if confidence > e.settings.ConfidenceThreshold {
		res.Phase = candidate
		res.Method = types.MethodObservation
	}

	logging.ObservationDebug("inferred phase=%s method=%s confidence=%.2f (predicted %s, %d observations)",
		res.Phase, res.Method, res.Confidence, predicted, len(recent))
	return res
}

// scoreObservation adds obs's keyword matches to scores.
func scoreObservation(obs cycle.Observation, scores map[types.Phase]int, signals []Signal) []Signal {
	energy := EnergyDescriptor(obs.Energy)
	for _, phase := range types.AllPhases {
		vocab := Dictionaries[phase]

		for _, symptom := range obs.Symptoms {
			if term, ok := matchTerm(symptom, vocab.Symptoms); ok {
				scores[phase] += symptomWeight
				signals = append(signals, Signal{Type: "symptom", Value: term, Phase: phase})
			}
		}
		if term, ok := matchTerm(obs.Mood, vocab.Moods); ok {
			scores[phase] += moodWeight
			signals = append(signals, Signal{Type: "mood", Value: term, Phase: phase})
		}
		if term, ok := matchExact(energy, vocab.Energy); ok {
			scores[phase] += energyWeight
			signals = append(signals, Signal{Type: "energy", Value: term, Phase: phase})
		}
	}
	return signals
}
