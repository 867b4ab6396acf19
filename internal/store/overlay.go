package store

import (
	"context"
	"sync"
)

// Getter is the read half of a key/value store.
type Getter interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Overlay reads through to a base store and keeps every write in memory.
// Commands use it for dry runs: persisted leftovers and undo snapshots are
// visible, but nothing reaches the base.
type Overlay struct {
	base Getter
	mem  *MemoryKV

	mu      sync.RWMutex
	removed map[string]bool
}

// NewOverlay creates an Overlay over base.
func NewOverlay(base Getter) *Overlay {
	return &Overlay{base: base, mem: NewMemoryKV(), removed: make(map[string]bool)}
}

// Get returns the in-memory value for key, falling back to the base unless
// key was removed in this overlay.
func (o *Overlay) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok, _ := o.mem.Get(ctx, key); ok {
		return v, true, nil
	}
	o.mu.RLock()
	gone := o.removed[key]
	o.mu.RUnlock()
	if gone {
		return "", false, nil
	}
	return o.base.Get(ctx, key)
}

// Set stores value in memory.
func (o *Overlay) Set(ctx context.Context, key, value string) error {
	o.mu.Lock()
	delete(o.removed, key)
	o.mu.Unlock()
	return o.mem.Set(ctx, key, value)
}

// Remove hides key from later reads without touching the base.
func (o *Overlay) Remove(ctx context.Context, key string) error {
	o.mu.Lock()
	o.removed[key] = true
	o.mu.Unlock()
	return o.mem.Remove(ctx, key)
}
