package cycle

import (
	"fmt"
	"time"

	"cadence/internal/logging"
	"cadence/internal/types"
)

// DateLayout is the calendar-day format for dates and overrides.
const DateLayout = "2006-01-02"

// Cycle is the active menstrual cycle.
type Cycle struct {
	LastPeriodStart time.Time `json:"last_period_start"`
	CycleLength     int       `json:"cycle_length"`
	PeriodDuration  int       `json:"period_duration"`
}

// Validate checks lengths.
func (c Cycle) Validate() error {
	if c.LastPeriodStart.IsZero() {
		return fmt.Errorf("cycle: last period start is required")
	}
	if c.CycleLength < 15 || c.CycleLength > 60 {
		return fmt.Errorf("cycle: length %d outside [15,60]", c.CycleLength)
	}
	if c.PeriodDuration <= 0 || c.PeriodDuration >= c.CycleLength {
		return fmt.Errorf("cycle: period duration %d invalid for length %d", c.PeriodDuration, c.CycleLength)
	}
	return nil
}

// Override pins the phase for one calendar day.
type Override struct {
	Date  string      `json:"date"`
	Phase types.Phase `json:"phase"`
}

// Snapshot is the persisted cycle state.
type Snapshot struct {
	Cycle    *Cycle    `json:"cycle,omitempty"`
	Override *Override `json:"override,omitempty"`
}

// Defaults fill zero fields passed to Start.
type Defaults struct {
	CycleLength    int
	PeriodDuration int
	HistoryCap     int
	NotesMaxLength int
}

// DefaultDefaults matches the stock configuration.
var DefaultDefaults = Defaults{
	CycleLength:    28,
	PeriodDuration: 5,
	HistoryCap:     90,
	NotesMaxLength: 500,
}

// State owns the active cycle, the manual override and the observation
// history. It is not safe for concurrent use; the session serializes access.
type State struct {
	defaults  Defaults
	predictor Predictor
	now       func() time.Time

	active   *Cycle
	override *Override
	history  *Ring[Observation]
	newID    func() string
}

// StateOption configures a State.
type StateOption func(*State)

// WithPredictor replaces the calendar predictor.
func WithPredictor(p Predictor) StateOption {
	return func(s *State) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) StateOption {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator injects the observation ID source.
func WithIDGenerator(gen func() string) StateOption {
	return func(s *State) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewState creates an empty cycle state.
func NewState(d Defaults, opts ...StateOption) *State {
	if d.CycleLength <= 0 {
		d.CycleLength = DefaultDefaults.CycleLength
	}
	if d.PeriodDuration <= 0 {
		d.PeriodDuration = DefaultDefaults.PeriodDuration
	}
	if d.HistoryCap <= 0 {
		d.HistoryCap = DefaultDefaults.HistoryCap
	}
	if d.NotesMaxLength <= 0 {
		d.NotesMaxLength = DefaultDefaults.NotesMaxLength
	}
	s := &State{
		defaults:  d,
		predictor: CalendarPredictor{},
		now:       time.Now,
		history:   NewRing[Observation](d.HistoryCap),
		newID:     newObservationID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a new cycle. Zero lengths take the configured defaults. The
// previously active cycle, if any, is returned so callers can count it as
// completed.
func (s *State) Start(c Cycle) (*Cycle, error) {
	if c.CycleLength == 0 {
		c.CycleLength = s.defaults.CycleLength
	}
	if c.PeriodDuration == 0 {
		c.PeriodDuration = s.defaults.PeriodDuration
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	prev := s.active
	s.active = &c
	s.override = nil
	logging.Cycle("cycle started %s length=%d period=%d", c.LastPeriodStart.Format(DateLayout), c.CycleLength, c.PeriodDuration)
	return prev, nil
}

// Active returns a copy of the active cycle, or nil.
func (s *State) Active() *Cycle {
	if s.active == nil {
		return nil
	}
	c := *s.active
	return &c
}

// CycleDay returns the current 1-based cycle day, or 0 with no active cycle.
func (s *State) CycleDay() int {
	if s.active == nil {
		return 0
	}
	return DayOf(s.active.LastPeriodStart, s.active.CycleLength, s.now())
}

// PredictedPhase returns the calendar prediction, ignoring any override.
func (s *State) PredictedPhase() (types.Phase, bool) {
	if s.active == nil {
		return "", false
	}
	c := s.active
	return s.predictor.PredictPhase(c.LastPeriodStart, c.CycleLength, c.PeriodDuration, s.now()), true
}

// CurrentPhase returns today's override when set, else the prediction.
func (s *State) CurrentPhase() (types.Phase, bool) {
	if s.override != nil && s.override.Date == s.today() {
		return s.override.Phase, true
	}
	return s.PredictedPhase()
}

// SetOverride pins phase for today.
func (s *State) SetOverride(phase types.Phase) {
	s.override = &Override{Date: s.today(), Phase: phase}
	logging.CycleDebug("phase override %s for %s", phase, s.override.Date)
}

func (s *State) today() string {
	return s.now().Format(DateLayout)
}

// Snapshot returns the persisted view.
func (s *State) Snapshot() Snapshot {
	var snap Snapshot
	snap.Cycle = s.Active()
	if s.override != nil {
		o := *s.override
		snap.Override = &o
	}
	return snap
}

// Restore replaces the cycle, override and history.
func (s *State) Restore(snap Snapshot, history []Observation) {
	s.active = nil
	if snap.Cycle != nil {
		c := *snap.Cycle
		s.active = &c
	}
	s.override = nil
	if snap.Override != nil && snap.Override.Phase.Valid() {
		o := *snap.Override
		s.override = &o
	}
	s.history.Clear()
	for _, obs := range history {
		s.history.Push(obs)
	}
}

// Reset clears everything.
func (s *State) Reset() {
	s.active = nil
	s.override = nil
	s.history.Clear()
}
