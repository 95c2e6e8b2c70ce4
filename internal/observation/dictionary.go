package observation

import (
	"strings"

	"cadence/internal/types"
)

// Vocabulary is the keyword set associated with one phase.
type Vocabulary struct {
	Symptoms []string
	Moods    []string
	Energy   []string
}

// Dictionaries maps each phase to its vocabulary. Terms are lowercase.
// Symptom and mood terms match as substrings; energy terms must equal the
// EnergyDescriptor output, so each level is evidence for at most one phase
// and a moderate level carries none.
var Dictionaries = map[types.Phase]Vocabulary{
	types.PhaseMenstrual: {
		Symptoms: []string{"cramp", "heavy flow", "spotting", "back pain", "fatigue", "headache"},
		Moods:    []string{"tired", "withdrawn", "reflective", "sad", "drained"},
		Energy:   []string{"very low"},
	},
	types.PhaseFollicular: {
		Symptoms: []string{"clear skin", "light", "refreshed", "restful sleep"},
		Moods:    []string{"optimistic", "curious", "motivated", "creative", "hopeful"},
		Energy:   []string{"high"},
	},
	types.PhaseOvulatory: {
		Symptoms: []string{"discharge", "ovulation pain", "libido", "glow", "warm"},
		Moods:    []string{"confident", "social", "energetic", "outgoing", "magnetic"},
		Energy:   []string{"very high"},
	},
	types.PhaseLuteal: {
		Symptoms: []string{"bloating", "tender", "craving", "acne", "breakout", "restless sleep"},
		Moods:    []string{"anxious", "irritable", "sensitive", "moody", "introspective"},
		Energy:   []string{"low"},
	},
}

// EnergyDescriptor names an energy level for vocabulary matching.
func EnergyDescriptor(level int) string {
	switch {
	case level <= 1:
		return "very low"
	case level == 2:
		return "low"
	case level == 3:
		return "moderate"
	case level == 4:
		return "high"
	default:
		return "very high"
	}
}

// matchTerm returns the first term contained in s.
func matchTerm(s string, terms []string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, term := range terms {
		if strings.Contains(s, term) {
			return term, true
		}
	}
	return "", false
}

// matchExact returns the term equal to s.
func matchExact(s string, terms []string) (string, bool) {
	for _, term := range terms {
		if s == term {
			return term, true
		}
	}
	return "", false
}

// wordSuffixes are the inflections a notes term may carry ("cramps",
// "cramping", "tenderness").
var wordSuffixes = []string{"", "s", "es", "ed", "ing", "ness", "y"}

// containsWord reports whether term occurs in text as a whole word, allowing
// one of wordSuffixes. "light" matches "light bleeding" but not "delight" or
// "lightheaded".
func containsWord(text, term string) bool {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if start == 0 || !isWordByte(text[start-1]) {
			rest := text[end:]
			for _, suffix := range wordSuffixes {
				if strings.HasPrefix(rest, suffix) && (len(rest) == len(suffix) || !isWordByte(rest[len(suffix)])) {
					return true
				}
			}
		}
		from = start + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '\'' || b >= 0x80
}

// ExtractTerms scans free-form notes for dictionary symptoms and the first
// dictionary mood, matching whole words only. Results are ordered by phase
// then vocabulary order.
func ExtractTerms(notes string) (symptoms []string, mood string) {
	text := strings.ToLower(notes)
	if strings.TrimSpace(text) == "" {
		return nil, ""
	}
	seen := make(map[string]bool)
	for _, phase := range types.AllPhases {
		vocab := Dictionaries[phase]
		for _, term := range vocab.Symptoms {
			if !seen[term] && containsWord(text, term) {
				seen[term] = true
				symptoms = append(symptoms, term)
			}
		}
		if mood == "" {
			for _, term := range vocab.Moods {
				if containsWord(text, term) {
					mood = term
					break
				}
			}
		}
	}
	return symptoms, mood
}
