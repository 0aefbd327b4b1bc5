package revocation

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	reason    Reason
	addedAt   time.Time
	expiresAt time.Time
}

// MemoryRegistry is the default in-process Registry. Entries stay until
// Prune removes the ones past their expiry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]entry)}
}

func (r *MemoryRegistry) Add(ctx context.Context, fingerprint string, reason Reason, expiresAt time.Time) error {
	r.mu.Lock()
	r.entries[fingerprint] = entry{reason: reason, addedAt: time.Now(), expiresAt: expiresAt}
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) Contains(ctx context.Context, fingerprint string) (bool, error) {
	r.mu.RLock()
	_, ok := r.entries[fingerprint]
	r.mu.RUnlock()
	return ok, nil
}

func (r *MemoryRegistry) Lookup(ctx context.Context, fingerprint string) (Reason, bool, error) {
	r.mu.RLock()
	e, ok := r.entries[fingerprint]
	r.mu.RUnlock()
	return e.reason, ok, nil
}

func (r *MemoryRegistry) Prune(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for fp, e := range r.entries {
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			delete(r.entries, fp)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries, expired ones included.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
