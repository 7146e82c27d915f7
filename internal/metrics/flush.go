package metrics

import (
	"sync"
	"time"

	"newsgate/internal/logger"
)

// Store is the durable snapshot/event backend.
type Store interface {
	// ReadLatest returns the most recent snapshot, or nil when none exists.
	ReadLatest() (*Snapshot, error)
	// ReadEventsSince returns logged events after a timestamp, oldest first.
	ReadEventsSince(t time.Time) ([]Event, error)
	// Append records one event in the append-only log.
	Append(ev Event) error
	// Write persists a full snapshot, replacing the previous one.
	Write(s Snapshot) error
}

// Flusher debounces snapshot writes: counter activity marks the registry
// dirty, and one flush fires per quiet interval rather than per increment.
// Store failures are logged and never propagate into the pipeline.
type Flusher struct {
	registry *Registry
	store    Store
	interval time.Duration

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// NewFlusher wires a registry to a store. interval defaults to 350ms.
func NewFlusher(registry *Registry, store Store, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = 350 * time.Millisecond
	}
	f := &Flusher{
		registry: registry,
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
	registry.SetObserver(f.onEvent)
	return f
}

// Rehydrate loads the registry from the store: latest snapshot first, then
// replay of newer events. Missing state starts the epoch from zero.
func (f *Flusher) Rehydrate() error {
	snapshot, err := f.store.ReadLatest()
	if err != nil {
		return err
	}
	cutoff := time.Time{}
	if snapshot != nil {
		cutoff = snapshot.UpdatedAt
	}
	events, err := f.store.ReadEventsSince(cutoff)
	if err != nil {
		logger.Warn("counter event replay unavailable", "error", err.Error())
		events = nil
	}
	f.registry.Rehydrate(snapshot, events)
	return nil
}

func (f *Flusher) onEvent(ev Event) {
	if err := f.store.Append(ev); err != nil {
		logger.Warn("counter event append failed", "error", err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return
	default:
	}
	if f.timer == nil {
		f.timer = time.AfterFunc(f.interval, f.flush)
	}
	// A pending timer already covers this burst of activity.
}

func (f *Flusher) flush() {
	f.mu.Lock()
	f.timer = nil
	f.mu.Unlock()

	if err := f.store.Write(f.registry.Snapshot()); err != nil {
		logger.Warn("counter snapshot flush failed", "error", err.Error())
	}
}

// Close flushes any pending state and stops the debounce timer.
func (f *Flusher) Close() {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return
	default:
	}
	close(f.done)
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()

	if err := f.store.Write(f.registry.Snapshot()); err != nil {
		logger.Warn("final counter snapshot failed", "error", err.Error())
	}
}
