package cycle

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"cadence/internal/logging"
	"cadence/internal/types"
)

// Level bounds for feeling and energy.
const (
	MinLevel     = 1
	MaxLevel     = 5
	DefaultLevel = 3
)

// Observation is a stored self-report. It is immutable once recorded.
type Observation struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Feeling   int         `json:"feeling"`
	Energy    int         `json:"energy"`
	Notes     string      `json:"notes,omitempty"`
	Symptoms  []string    `json:"symptoms,omitempty"`
	Mood      string      `json:"mood,omitempty"`
	Phase     types.Phase `json:"phase"`
	CycleDay  int         `json:"cycle_day"`
}

// ObservationInput is an unvalidated submission. Nil levels default to 3.
type ObservationInput struct {
	Feeling  *int
	Energy   *int
	Notes    string
	Symptoms []string
	Mood     string
}

// Level returns a pointer to v for ObservationInput fields.
func Level(v int) *int { return &v }

// ParseLevel converts free-form input to a level. Non-numeric input yields
// DefaultLevel; numeric input is clamped.
func ParseLevel(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return ClampLevel(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		if f > MaxLevel {
			return MaxLevel
		}
		if f < MinLevel {
			return MinLevel
		}
		return int(f + 0.5)
	}
	return DefaultLevel
}

// ClampLevel bounds v to [MinLevel, MaxLevel].
func ClampLevel(v int) int {
	if v < MinLevel {
		return MinLevel
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return v
}

func levelOrDefault(v *int) int {
	if v == nil {
		return DefaultLevel
	}
	return ClampLevel(*v)
}

// TruncateRunes cuts s to at most max runes.
func TruncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func newObservationID() string {
	return uuid.NewString()
}

// Record normalizes in, stamps the current phase and day, and appends it to
// the history. With no active cycle it logs a warning and records nothing.
func (s *State) Record(in ObservationInput) (Observation, bool) {
	phase, ok := s.CurrentPhase()
	if !ok {
		logging.CycleWarn("observation ignored: no active cycle")
		return Observation{}, false
	}

	obs := Observation{
		ID:        s.newID(),
		Timestamp: s.now(),
		Feeling:   levelOrDefault(in.Feeling),
		Energy:    levelOrDefault(in.Energy),
		Notes:     TruncateRunes(strings.TrimSpace(in.Notes), s.defaults.NotesMaxLength),
		Symptoms:  normalizeTerms(in.Symptoms),
		Mood:      strings.ToLower(strings.TrimSpace(in.Mood)),
		Phase:     phase,
		CycleDay:  s.CycleDay(),
	}

	if s.history.Push(obs) {
		logging.CycleDebug("observation history full; evicted oldest entry")
	}
	logging.CycleDebug("recorded observation %s phase=%s day=%d", obs.ID, obs.Phase, obs.CycleDay)
	return obs, true
}

// History returns stored observations, oldest first.
func (s *State) History() []Observation {
	return s.history.Items()
}

// Recent returns the newest n observations, oldest first.
func (s *State) Recent(n int) []Observation {
	return s.history.Last(n)
}

// HistoryLen returns the number of stored observations.
func (s *State) HistoryLen() int {
	return s.history.Len()
}

func normalizeTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
