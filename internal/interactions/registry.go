package interactions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/adherence/intervention"
)

type entry struct {
	mu      sync.Mutex
	flow    *intervention.Flow
	created time.Time
	touched time.Time
	removed bool
}

// Registry holds in-progress flows by id. Each flow is driven by one caller
// at a time; concurrent calls for the same id wait their turn.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	idle    time.Duration
	now     func() time.Time
}

// NewRegistry creates a Registry evicting flows idle longer than idle.
func NewRegistry(idle time.Duration) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]*entry),
		idle:    idle,
		now:     time.Now,
	}
}

// Add registers flow and returns its id.
func (r *Registry) Add(flow *intervention.Flow) uuid.UUID {
	id := uuid.New()
	now := r.now()

	r.mu.Lock()
	r.entries[id] = &entry{flow: flow, created: now, touched: now}
	r.mu.Unlock()

	return id
}

// Do runs fn with exclusive access to the flow. Returns ErrNotFound if the
// flow is unknown or was removed while waiting.
func (r *Registry) Do(id uuid.UUID, fn func(flow *intervention.Flow, created time.Time) error) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return ErrNotFound
	}

	err := fn(e.flow, e.created)
	e.touched = r.now()
	return err
}

// Remove discards the flow, waiting for an in-flight call to finish.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return true
}

// Len returns the number of registered flows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes flows idle longer than the idle timeout and returns them.
// Flows in use are skipped.
func (r *Registry) Sweep() []*intervention.Flow {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []*intervention.Flow
	for id, e := range r.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.touched.Before(cutoff) {
			e.removed = true
			delete(r.entries, id)
			evicted = append(evicted, e.flow)
		}
		e.mu.Unlock()
	}
	return evicted
}

// Run sweeps every interval until ctx is done, passing evicted flows to
// onEvict.
func (r *Registry) Run(ctx context.Context, interval time.Duration, onEvict func([]*intervention.Flow)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := r.Sweep(); len(evicted) > 0 && onEvict != nil {
				onEvict(evicted)
			}
		}
	}
}
