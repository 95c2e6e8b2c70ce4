package observation

import (
	"unicode/utf8"

	"cadence/internal/cycle"
)

// Quality grades how much an observation tells us.
type Quality string

const (
	QualityDetailed Quality = "detailed"
	QualityStandard Quality = "standard"
	QualityMinimal  Quality = "minimal"
)

// detailedNotesLength is the note length, in runes, that alone makes an
// observation detailed.
const detailedNotesLength = 100

// AssessQuality grades obs.
func AssessQuality(obs cycle.Observation) Quality {
	switch {
	case utf8.RuneCountInString(obs.Notes) >= detailedNotesLength || len(obs.Symptoms) >= 2:
		return QualityDetailed
	case obs.Mood != "" || len(obs.Symptoms) > 0 || obs.Notes != "":
		return QualityStandard
	default:
		return QualityMinimal
	}
}
