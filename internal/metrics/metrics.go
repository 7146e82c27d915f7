// Package metrics holds the pipeline's operational counters: per-mode and
// per-category monotonic counts, snapshotted to durable storage and
// rehydrated at startup.
package metrics

import (
	"sync"
	"time"
)

// Counter keys. Every pipeline transition increments exactly one.
const (
	KeyRequests           = "requests"
	KeySuccess            = "success"
	KeyRetries            = "retries"
	KeyParseFailures      = "parseFailures"
	KeySchemaBlocks       = "schemaBlocks"
	KeySimilarityBlocks   = "similarityBlocks"
	KeyComplianceBlocks   = "complianceBlocks"
	KeyGroundingBlocks    = "groundingBlocks"
	KeyFallbackRecoveries = "fallbackRecoveries"
	KeyModelEmpty         = "modelEmpty"

	// Orchestrator-level events, distinct from the per-request pipeline
	// counters above: one request can produce several of these.
	KeyModelRetries      = "modelRetries"      // same-model retries on transient failures
	KeyModelEmptyReplies = "modelEmptyReplies" // empty responses observed per model
)

// ScopeMode and ScopeCategory prefix the two aggregation dimensions.
const (
	ScopeMode     = "mode:"
	ScopeCategory = "category:"
)

// Snapshot is the durable JSON document shape.
type Snapshot struct {
	StartedAt time.Time                   `json:"startedAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
	Totals    map[string]int64            `json:"totals"`
	ByScope   map[string]map[string]int64 `json:"byScope"`
}

// Event is one append-only log entry, replayable during rehydration.
type Event struct {
	At     time.Time `json:"at"`
	Scope  string    `json:"scope"`
	Key    string    `json:"key"`
	Amount int64     `json:"amount"`
}

// Registry is the injectable counter registry. All methods are safe for
// concurrent use. Counters never decrement within a policy epoch; the only
// reset is seeding a new registry.
type Registry struct {
	mu        sync.Mutex
	startedAt time.Time
	totals    map[string]int64
	byScope   map[string]map[string]int64
	onTrack   func(Event) // optional observer, used by the flusher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		startedAt: time.Now().UTC(),
		totals:    make(map[string]int64),
		byScope:   make(map[string]map[string]int64),
	}
}

// Rehydrate seeds the registry from a durable snapshot and replays any
// events recorded after it. Call before the registry is shared.
func (r *Registry) Rehydrate(snapshot *Snapshot, events []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snapshot != nil {
		if !snapshot.StartedAt.IsZero() {
			r.startedAt = snapshot.StartedAt
		}
		for key, v := range snapshot.Totals {
			r.totals[key] = v
		}
		for scope, counters := range snapshot.ByScope {
			dst := make(map[string]int64, len(counters))
			for key, v := range counters {
				dst[key] = v
			}
			r.byScope[scope] = dst
		}
	}
	cutoff := time.Time{}
	if snapshot != nil {
		cutoff = snapshot.UpdatedAt
	}
	for _, ev := range events {
		if !ev.At.After(cutoff) {
			continue
		}
		r.trackLocked(ev.Scope, ev.Key, ev.Amount)
	}
}

// Track increments one counter by n (n<=0 is ignored; counters are
// monotonic). scope is a ScopeMode/ScopeCategory-prefixed label or "" for
// totals only.
func (r *Registry) Track(scope, key string, n int64) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.trackLocked(scope, key, n)
	observer := r.onTrack
	r.mu.Unlock()

	if observer != nil {
		observer(Event{At: time.Now().UTC(), Scope: scope, Key: key, Amount: n})
	}
}

func (r *Registry) trackLocked(scope, key string, n int64) {
	r.totals[key] += n
	if scope == "" {
		return
	}
	counters, ok := r.byScope[scope]
	if !ok {
		counters = make(map[string]int64)
		r.byScope[scope] = counters
	}
	counters[key] += n
}

// SetObserver registers a callback invoked after every Track. Used by the
// flusher for debounced persistence; must be set before concurrent use.
func (r *Registry) SetObserver(fn func(Event)) {
	r.mu.Lock()
	r.onTrack = fn
	r.mu.Unlock()
}

// Snapshot returns a deep copy of the current counters.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	totals := make(map[string]int64, len(r.totals))
	for key, v := range r.totals {
		totals[key] = v
	}
	byScope := make(map[string]map[string]int64, len(r.byScope))
	for scope, counters := range r.byScope {
		dst := make(map[string]int64, len(counters))
		for key, v := range counters {
			dst[key] = v
		}
		byScope[scope] = dst
	}
	return Snapshot{
		StartedAt: r.startedAt,
		UpdatedAt: time.Now().UTC(),
		Totals:    totals,
		ByScope:   byScope,
	}
}
