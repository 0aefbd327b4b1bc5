package authcore

import (
	"context"
	"strings"
	"time"
)

// Credential is the stored login material for one account, owned by an
// external user store. The core reads it at login; it never writes back.
// LockedUntil is honored as an administrative lock on top of the core's own
// sliding-window lockout.
type Credential struct {
	UserID         string
	Email          string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    time.Time
	Active         bool
	Verified       bool
}

// CredentialSource looks up credentials by normalized email.
// A missing account returns (nil, nil).
type CredentialSource interface {
	ByEmail(ctx context.Context, email string) (*Credential, error)
}

// Snapshot is the authorization state stamped into access tokens.
type Snapshot struct {
	Roles       []string
	Permissions []string
}

// SnapshotSource loads the current roles and permissions for a user. The
// Manager calls it at login and again at every refresh so rotated tokens
// never carry stale authorization state.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID string) (Snapshot, error)
}

// NormalizeEmail lowercases and trims an email so lookups, lockout counters,
// and token claims all key on the same form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
