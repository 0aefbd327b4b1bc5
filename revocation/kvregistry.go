package revocation

import (
	"context"
	"time"

	"authcore/kv"
)

const keyPrefix = "r/"

// KVRegistry keeps the revocation set in a kv.Store under "r/<fingerprint>"
// keys. Entries carry the token's remaining lifetime as their TTL, so the
// backend forgets them exactly when the token would have died anyway.
type KVRegistry struct {
	kv   kv.Store
	nowF func() time.Time
}

// NewKVRegistry returns a Registry on top of store.
func NewKVRegistry(store kv.Store) *KVRegistry {
	return &KVRegistry{kv: store, nowF: time.Now}
}

// WithClock overrides the registry's time source. Intended for tests.
func (r *KVRegistry) WithClock(now func() time.Time) *KVRegistry {
	r.nowF = now
	return r
}

func (r *KVRegistry) Add(ctx context.Context, fingerprint string, reason Reason, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(r.nowF())
		if ttl <= 0 {
			// Already past the token's expiry; nothing to deny.
			return nil
		}
	}
	return r.kv.Set(ctx, keyPrefix+fingerprint, []byte(reason), ttl)
}

func (r *KVRegistry) Contains(ctx context.Context, fingerprint string) (bool, error) {
	_, ok, err := r.kv.Get(ctx, keyPrefix+fingerprint)
	return ok, err
}

func (r *KVRegistry) Lookup(ctx context.Context, fingerprint string) (Reason, bool, error) {
	val, ok, err := r.kv.Get(ctx, keyPrefix+fingerprint)
	if err != nil || !ok {
		return "", ok, err
	}
	return Reason(val), true, nil
}

// Prune is a no-op; the backend reaps entries by TTL.
func (r *KVRegistry) Prune(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
