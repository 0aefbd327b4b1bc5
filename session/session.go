// Package session tracks the authenticated devices behind issued tokens.
// Every token pair is bound to exactly one session; invalidating the session
// kills the pair no matter how much lifetime the tokens have left.
package session

import (
	"time"

	"github.com/google/uuid"
)

// DeviceInfo identifies the client a session was opened from.
type DeviceInfo struct {
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
}

// Session represents one authenticated device for a user. ExpiresAt is fixed
// at creation from the refresh token lifetime; rotation does not extend it,
// so a device re-authenticates at least once per refresh lifetime.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Device     DeviceInfo `json:"device"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt time.Time  `json:"last_used_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`

	// RefreshFingerprint is the fingerprint of the one refresh token
	// currently accepted for this session. Rotation swaps it; a presented
	// refresh token with any other fingerprint is treated as replay.
	RefreshFingerprint string `json:"refresh_fingerprint"`
}

// New returns a Session for userID with a fresh random ID, valid for ttl
// from now.
func New(userID string, device DeviceInfo, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Device:     device,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
}

// Active reports whether the session has not been revoked.
func (s *Session) Active() bool {
	return s.RevokedAt == nil
}

// Live reports whether the session can back tokens at the given instant.
func (s *Session) Live(at time.Time) bool {
	return s.Active() && s.ExpiresAt.After(at)
}

// View is the read-only projection for device listings. It never carries the
// refresh fingerprint.
type View struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Device     DeviceInfo `json:"device"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt time.Time  `json:"last_used_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// View returns the session's listing projection.
func (s *Session) View() View {
	return View{
		ID:         s.ID,
		UserID:     s.UserID,
		Device:     s.Device,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
		ExpiresAt:  s.ExpiresAt,
	}
}

func clone(s *Session) *Session {
	cp := *s
	if s.RevokedAt != nil {
		at := *s.RevokedAt
		cp.RevokedAt = &at
	}
	return &cp
}
