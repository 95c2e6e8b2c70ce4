package types

import "strings"

// Phase is one of the four cycle phases.
type Phase string

const (
	PhaseMenstrual  Phase = "menstrual"
	PhaseFollicular Phase = "follicular"
	PhaseOvulatory  Phase = "ovulatory"
	PhaseLuteal     Phase = "luteal"
)

// AllPhases lists the phases in cycle order. Scoring ties resolve in this order.
var AllPhases = []Phase{PhaseMenstrual, PhaseFollicular, PhaseOvulatory, PhaseLuteal}

// ParsePhase maps a user-supplied string to a Phase.
func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseMenstrual, PhaseFollicular, PhaseOvulatory, PhaseLuteal:
		return true
	}
	return false
}

func (p Phase) String() string { return string(p) }

// MaturityLevel classifies how deeply a user engages with the product.
type MaturityLevel string

const (
	MaturityDiscovery  MaturityLevel = "discovery"
	MaturityLearning   MaturityLevel = "learning"
	MaturityAutonomous MaturityLevel = "autonomous"
)

// Rank orders maturity levels; unknown levels rank below discovery.
func (m MaturityLevel) Rank() int {
	switch m {
	case MaturityDiscovery:
		return 0
	case MaturityLearning:
		return 1
	case MaturityAutonomous:
		return 2
	default:
		return -1
	}
}

// Valid reports whether m is a known maturity level.
func (m MaturityLevel) Valid() bool { return m.Rank() >= 0 }

func (m MaturityLevel) String() string { return string(m) }

// InferenceMethod records how a phase estimate was produced.
type InferenceMethod string

const (
	MethodPredictive  InferenceMethod = "predictive"
	MethodObservation InferenceMethod = "observation"
	MethodHybrid      InferenceMethod = "hybrid"
)
