// Package revocation maintains the set of token fingerprints that must no
// longer be accepted, whatever lifetime the tokens themselves have left.
package revocation

import (
	"context"
	"time"
)

// Reason records why a fingerprint was revoked. Verify treats every reason
// alike; refresh singles out ReasonRotated, because presenting a token
// consumed by rotation means replay.
type Reason string

const (
	// ReasonRotated marks a refresh token consumed by rotation.
	ReasonRotated Reason = "rotated"
	// ReasonLogout marks tokens of an explicitly ended session.
	ReasonLogout Reason = "logout"
	// ReasonLogoutAll marks tokens ended by a logout of every device.
	ReasonLogoutAll Reason = "logout_all"
	// ReasonEvicted marks tokens of a session evicted by the per-user cap.
	ReasonEvicted Reason = "evicted"
	// ReasonReuse marks tokens invalidated after refresh replay was
	// detected.
	ReasonReuse Reason = "reuse"
)

// Registry is the revocation set. Implementations must be safe for
// concurrent use.
type Registry interface {
	// Add marks fingerprint revoked. expiresAt is the underlying token's
	// natural expiry; after that instant the entry is dead weight and may
	// be pruned. A zero expiresAt keeps the entry until pruned by hand.
	Add(ctx context.Context, fingerprint string, reason Reason, expiresAt time.Time) error

	// Contains reports whether fingerprint has been revoked.
	Contains(ctx context.Context, fingerprint string) (bool, error)

	// Lookup reports whether fingerprint has been revoked and, if so, why.
	// Refresh uses the reason to tell a token consumed by rotation, which
	// signals replay, from one killed by logout or eviction, which does not.
	Lookup(ctx context.Context, fingerprint string) (Reason, bool, error)

	// Prune drops entries expired at now and returns how many went.
	Prune(ctx context.Context, now time.Time) (int, error)
}
