// Package events notifies observers after a session operation settles.
// Emission never blocks: a subscriber whose buffer is full misses the event.
package events

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Kind classifies an event.
type Kind string

const (
	KindActionTracked       Kind = "action_tracked"
	KindMaturityChanged     Kind = "maturity_changed"
	KindFeaturesChanged     Kind = "features_changed"
	KindObservationRecorded Kind = "observation_recorded"
	KindPhaseCorrected      Kind = "phase_corrected"
	KindAutonomySignal      Kind = "autonomy_signal"
	KindCycleStarted        Kind = "cycle_started"
	KindStateReset          Kind = "state_reset"
	KindPreferencesChanged  Kind = "preferences_changed"
)

// Event is one notification. ID is a bus-wide sequence number.
type Event struct {
	ID        uint64                 `json:"id"`
	Kind      Kind                   `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	Summary   string                 `json:"summary"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// DefaultBuffer is the subscriber channel capacity.
const DefaultBuffer = 50

// Bus fans events out to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	kinds       map[Kind]bool // empty means all
	closed      bool

	sequence atomic.Uint64
	dropped  atomic.Uint64
	now      func() time.Time
}

// NewBus creates an open bus.
func NewBus() *Bus {
	return &Bus{kinds: make(map[Kind]bool), now: time.Now}
}

// SetKinds restricts delivery to kinds. An empty list allows all.
func (b *Bus) SetKinds(kinds ...Kind) {
	b.mu.Lock()
	b.kinds = make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		b.kinds[k] = true
	}
	b.mu.Unlock()
}

// Subscribe returns a buffered channel receiving future events. A closed bus
// returns an already closed channel.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	if ch == nil {
		return
	}
	target := reflect.ValueOf(ch).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if reflect.ValueOf(sub).Pointer() == target {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// Emit assigns a sequence number and delivers ev to every subscriber that
// has room. Safe to call from any goroutine.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	if len(b.kinds) > 0 && !b.kinds[ev.Kind] {
		return
	}

	ev.ID = b.sequence.Add(1)
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}

	for _, sub := range b.subscribers {
		select {
		case sub <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel. Later emits are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}

// Stats holds bus counters.
type Stats struct {
	SubscriberCount int    `json:"subscriber_count"`
	TotalEmitted    uint64 `json:"total_emitted"`
	Dropped         uint64 `json:"dropped"`
	KindCount       int    `json:"kind_count"`
	Closed          bool   `json:"closed"`
}

// Stats returns current counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		SubscriberCount: len(b.subscribers),
		TotalEmitted:    b.sequence.Load(),
		Dropped:         b.dropped.Load(),
		KindCount:       len(b.kinds),
		Closed:          b.closed,
	}
}
