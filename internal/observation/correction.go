package observation

import (
	"fmt"

	"cadence/internal/logging"
	"cadence/internal/types"
)

// Correction reports whether the user overrode the prediction.
type Correction struct {
	Corrected bool   `json:"corrected"`
	Message   string `json:"message,omitempty"`
}

// DetectPredictionCorrection compares the user's observed phase with the
// prediction. Only when they differ is a corrects_prediction event sent to
// sink, exactly once.
func (e *Engine) DetectPredictionCorrection(observed, predicted types.Phase, sink SignalSink) Correction {
	if observed == predicted {
		return Correction{Corrected: false}
	}

	ev := AutonomyEvent{
		Kind:      types.SignalCorrectsPrediction,
		Observed:  observed,
		Predicted: predicted,
		Timestamp: e.now(),
	}
	if sink != nil {
		sink(ev)
	}
	logging.Observation("prediction corrected: observed=%s predicted=%s", observed, predicted)

	return Correction{
		Corrected: true,
		Message:   fmt.Sprintf("Noted: you're reading this as your %s phase rather than %s. Your own observations will guide what comes next.", observed, predicted),
	}
}
