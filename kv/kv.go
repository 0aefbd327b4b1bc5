// Package kv provides a keyed byte store with per-key expiry. It is the seam
// persistent backends plug into: session and revocation state can run on the
// in-memory store, Redis, or Postgres without the callers changing.
package kv

import (
	"context"
	"time"
)

// Store is a flat keyed store. Implementations must be safe for concurrent
// use. Expired keys behave as absent; whether they are reaped eagerly or
// lazily is up to the implementation.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent or
	// expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key. A ttl of zero or less stores the key
	// without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan returns the live keys beginning with prefix. The prefix is
	// matched literally; callers use fixed short prefixes, not patterns.
	Scan(ctx context.Context, prefix string) ([]string, error)
}
