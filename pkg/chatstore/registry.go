package chatstore

import (
	"context"
	"sync"

	"codepilot-be/internal/pkg/logger"
	"codepilot-be/pkg/kvstore"
)

type registryEntry struct {
	store   *Store
	pins    int
	evicted bool
}

// Registry hands out one loaded Store per user.
type Registry struct {
	mu     sync.Mutex
	kv     kvstore.Store
	logger logger.ILogger
	stores map[string]*registryEntry
}

func NewRegistry(kv kvstore.Store, log logger.ILogger) *Registry {
	return &Registry{
		kv:     kv,
		logger: log,
		stores: make(map[string]*registryEntry),
	}
}

// For returns the user's store, loading it from durable storage on first use.
func (r *Registry) For(ctx context.Context, userID string) (*Store, error) {
	e, err := r.entry(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return e.store, nil
}

// Acquire is For plus a pin: until release runs, Evict leaves the store in
// place so a long-running writer never sees it emptied.
func (r *Registry) Acquire(ctx context.Context, userID string) (*Store, func(), error) {
	e, err := r.entry(ctx, userID, true)
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() { r.unpin(userID, e) })
	}
	return e.store, release, nil
}

// entry loads outside the registry lock so one slow backend read does not
// stall other users; a concurrent loader that wins the insert is reused.
func (r *Registry) entry(ctx context.Context, userID string, pin bool) (*registryEntry, error) {
	r.mu.Lock()
	if e, ok := r.stores[userID]; ok {
		e.evicted = false
		if pin {
			e.pins++
		}
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	st := New(r.kv, r.logger)
	if err := st.Load(ctx, userID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[userID]
	if !ok {
		e = &registryEntry{store: st}
		r.stores[userID] = e
	}
	e.evicted = false
	if pin {
		e.pins++
	}
	return e, nil
}

func (r *Registry) unpin(userID string, e *registryEntry) {
	r.mu.Lock()
	e.pins--
	drop := e.pins == 0 && e.evicted
	if drop && r.stores[userID] == e {
		delete(r.stores, userID)
	}
	r.mu.Unlock()

	if drop {
		e.store.Clear()
	}
}

// Evict forgets the in-memory copy; the next For reloads from storage.
// A pinned store is evicted when its last holder releases it.
func (r *Registry) Evict(userID string) {
	r.mu.Lock()
	e, ok := r.stores[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if e.pins > 0 {
		e.evicted = true
		r.mu.Unlock()
		return
	}
	delete(r.stores, userID)
	r.mu.Unlock()

	e.store.Clear()
}
