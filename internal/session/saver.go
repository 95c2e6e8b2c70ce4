package session

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"cadence/internal/logging"
	"cadence/internal/store"
)

// saver persists snapshots off the operation path. Pending snapshots
// coalesce: only the newest generation is written.
type saver struct {
	store  store.DurableStore
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	stop   chan struct{}

	mu       sync.Mutex
	next     *store.Snapshot
	nextGen  uint64
	savedGen uint64
	failures int
	lastErr  error
}

func startSaver(st store.DurableStore) *saver {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	sv := &saver{
		store:  st,
		group:  g,
		ctx:    gctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	g.Go(sv.loop)
	return sv
}

// submit hands snap to the saver without blocking.
func (sv *saver) submit(gen uint64, snap *store.Snapshot) {
	sv.mu.Lock()
	if gen > sv.nextGen {
		sv.next, sv.nextGen = snap, gen
	}
	sv.mu.Unlock()

	select {
	case sv.wake <- struct{}{}:
	default:
	}
}

func (sv *saver) loop() error {
	for {
		select {
		case <-sv.wake:
			sv.flush()
		case <-sv.stop:
			sv.flush()
			sv.mu.Lock()
			err := sv.lastErr
			sv.mu.Unlock()
			return err
		}
	}
}

// flush writes the newest pending snapshot, if any.
func (sv *saver) flush() {
	sv.mu.Lock()
	snap, gen := sv.next, sv.nextGen
	sv.next = nil
	if snap == nil || gen <= sv.savedGen {
		sv.mu.Unlock()
		return
	}
	sv.mu.Unlock()

	timer := logging.StartTimer(logging.CategorySession, "save")
	err := sv.store.Save(sv.ctx, snap)
	timer.Stop()

	sv.mu.Lock()
	defer sv.mu.Unlock()
	if err != nil {
		sv.failures++
		sv.lastErr = err
		if sv.next == nil {
			sv.next = snap // retried on the next wake or on close
		}
		logging.SessionError("write-behind save of generation %d failed: %v", gen, err)
		return
	}
	sv.savedGen = gen
	sv.lastErr = nil
	logging.SessionDebug("saved generation %d", gen)
}

// close drains pending work and waits for the goroutine to exit.
func (sv *saver) close() error {
	close(sv.stop)
	err := sv.group.Wait()
	sv.cancel()
	return err
}
