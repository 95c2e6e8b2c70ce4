// Package session owns the engine state for one user and serializes every
// operation through a single mutate -> recompute -> notify pipeline.
//
// A Session holds the only mutable state: the engagement tracker, cycle
// state, observation engine, autonomy counters and feature gate. Each public
// operation takes the session mutex for its full mutation and recompute, then
// releases it before emitting events and handing an immutable snapshot to
// the write-behind saver. Engines never call back into the session; autonomy
// signals flow one way from the observation engine to the tracker.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cadence/internal/composer"
	"cadence/internal/config"
	"cadence/internal/cycle"
	"cadence/internal/engagement"
	"cadence/internal/events"
	"cadence/internal/gating"
	"cadence/internal/logging"
	"cadence/internal/observation"
	"cadence/internal/store"
	"cadence/internal/types"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Options configures New. Zero values select defaults.
type Options struct {
	Config      *config.Config
	Store       store.DurableStore // nil disables persistence
	Bus         *events.Bus
	Clock       func() time.Time
	Predictor   cycle.Predictor
	Personas    composer.PersonaStyle
	IDGenerator func() string
}

// Session is the application context.
type Session struct {
	mu     sync.Mutex
	closed bool
	gen    uint64

	cfg *config.Config
	now func() time.Time

	tracker  *engagement.Tracker
	gate     *gating.Gate
	cycle    *cycle.State
	engine   *observation.Engine
	composer *composer.Composer
	signals  types.AutonomySignals

	bus   *events.Bus
	store store.DurableStore
	saver *saver
}

// New builds a session, restoring persisted state once if a store is set.
func New(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}

	e := cfg.Engine
	s := &Session{
		cfg:     cfg,
		now:     now,
		tracker: engagement.NewTracker(engagement.WithClock(now)),
		gate: gating.NewGate(
			gating.WithCacheCapacity(cfg.Gating.CacheCapacity),
			gating.WithConfidenceBucket(cfg.Gating.ConfidenceBucket),
		),
		cycle: cycle.NewState(cycle.Defaults{
			CycleLength:    cfg.Cycle.DefaultLength,
			PeriodDuration: cfg.Cycle.PeriodDuration,
			HistoryCap:     e.HistoryCapacity,
			NotesMaxLength: e.NotesMaxLength,
		}, cycle.WithClock(now), cycle.WithPredictor(opts.Predictor), cycle.WithIDGenerator(opts.IDGenerator)),
		engine: observation.NewEngine(observation.Settings{
			Window:                     e.AnalysisWindow,
			InferenceWindow:            e.InferenceWindow,
			InferenceHardCap:           e.InferenceHardCap,
			ConfidenceThreshold:        e.ConfidenceThreshold,
			PatternBoost:               e.PatternBoost,
			PatternBoostMinOccurrences: e.PatternBoostMinOccurrences,
		}, observation.WithClock(now)),
		composer: composer.New(opts.Personas),
		bus:      bus,
		store:    opts.Store,
	}

	if s.store != nil {
		timer := logging.StartTimer(logging.CategorySession, "restore")
		snap, err := s.store.Load(ctx)
		timer.Stop()
		if err != nil {
			return nil, fmt.Errorf("failed to restore state: %w", err)
		}
		if snap != nil {
			s.restore(snap)
		}
		s.saver = startSaver(s.store)
	}

	logging.Session("session ready: maturity=%s observations=%d", s.tracker.Maturity().Level, s.cycle.HistoryLen())
	return s, nil
}

func (s *Session) restore(snap *store.Snapshot) {
	s.tracker.Restore(snap.Metrics)
	if stored := snap.Maturity.Level; stored != "" && stored != s.tracker.Maturity().Level {
		logging.SessionWarn("stored maturity %s differs from recomputed %s", stored, s.tracker.Maturity().Level)
	}
	s.signals = snap.AutonomySignals

	var cs cycle.Snapshot
	if snap.Cycle != nil {
		cs = *snap.Cycle
	}
	s.cycle.Restore(cs, snap.Observations)
	s.engine.Restore(observation.Snapshot{Patterns: snap.PhasePatterns, Total: snap.ObservationTotal}, snap.Observations)
	logging.Session("restored snapshot v%d saved %s", snap.Version, snap.SavedAt.Format(time.RFC3339))
}

// pipeline runs op under the session lock, then notifies and persists
// outside it. op returns the events to emit and whether state changed.
func (s *Session) pipeline(op func(emit func(events.Event)) bool) error {
	var pending []events.Event
	emit := func(ev events.Event) { pending = append(pending, ev) }

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	changed := op(emit)
	var snap *store.Snapshot
	var gen uint64
	if changed && s.saver != nil {
		s.gen++
		gen = s.gen
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	for _, ev := range pending {
		s.bus.Emit(ev)
	}
	if snap != nil {
		s.saver.submit(gen, snap)
	}
	return nil
}

// read runs fn under the session lock without notification or persistence.
func (s *Session) read(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	fn()
	return nil
}

// Subscribe returns a channel of session events.
func (s *Session) Subscribe(buffer int) <-chan events.Event {
	return s.bus.Subscribe(buffer)
}

// Unsubscribe stops delivery to ch.
func (s *Session) Unsubscribe(ch <-chan events.Event) {
	s.bus.Unsubscribe(ch)
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Snapshot returns the current persisted view.
func (s *Session) Snapshot() (*store.Snapshot, error) {
	var snap *store.Snapshot
	err := s.read(func() { snap = s.snapshotLocked() })
	return snap, err
}

func (s *Session) snapshotLocked() *store.Snapshot {
	snap := store.NewSnapshot()
	snap.SavedAt = s.now().UTC()
	snap.Metrics = s.tracker.Metrics()
	snap.Maturity = s.tracker.Maturity()
	snap.Observations = s.cycle.History()
	es := s.engine.Snapshot()
	snap.PhasePatterns = es.Patterns
	snap.ObservationTotal = es.Total
	snap.AutonomySignals = s.signals
	cs := s.cycle.Snapshot()
	if cs.Cycle != nil || cs.Override != nil {
		snap.Cycle = &cs
	}
	return snap
}

// Close flushes pending writes and releases the store. Further operations
// return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if s.saver != nil {
		if err := s.saver.close(); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
	}
	s.bus.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	logging.Session("session closed")
	return errors.Join(errs...)
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session carried by ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
