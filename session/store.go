package session

import (
	"context"
	"errors"
	"time"
)

// DefaultMaxPerUser caps how many live sessions one user may hold.
const DefaultMaxPerUser = 5

var (
	// ErrFingerprintMismatch is returned by ReplaceFingerprint when the
	// stored fingerprint is not the expected one. With concurrent rotations
	// of the same refresh token exactly one caller succeeds and the rest
	// get this error.
	ErrFingerprintMismatch = errors.New("refresh fingerprint mismatch")

	// ErrSessionNotLive is returned by ReplaceFingerprint when the session
	// is gone, revoked, or expired.
	ErrSessionNotLive = errors.New("session not live")
)

// Store persists sessions. Implementations must be safe for concurrent use
// and must enforce the per-user session cap inside Create.
//
// Get may return an already expired session; callers decide liveness with
// Live. A missing session is (nil, nil), not an error.
type Store interface {
	// Create stores s. When the user is at the session cap the oldest live
	// sessions are removed first and returned so the caller can blacklist
	// their refresh fingerprints.
	Create(ctx context.Context, s *Session) (evicted []*Session, err error)

	// Get returns the session with the given id, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*Session, error)

	// List returns the user's live sessions, oldest first.
	List(ctx context.Context, userID string) ([]*Session, error)

	// UpdateLastUsed bumps the session's last-used time. Missing sessions
	// are ignored.
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error

	// ReplaceFingerprint swaps the stored refresh fingerprint from oldFP to
	// newFP as one atomic step. Returns ErrFingerprintMismatch when the
	// stored fingerprint is not oldFP and ErrSessionNotLive when the
	// session cannot back tokens anymore.
	ReplaceFingerprint(ctx context.Context, id, oldFP, newFP string) error

	// Invalidate removes the session and returns it so the caller can
	// blacklist its fingerprint. Removing an absent session returns
	// (nil, nil).
	Invalidate(ctx context.Context, id string) (*Session, error)

	// InvalidateAll removes all of the user's sessions and returns them.
	InvalidateAll(ctx context.Context, userID string) ([]*Session, error)

	// Sweep drops leftover state for sessions expired at now and returns
	// how many sessions were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
