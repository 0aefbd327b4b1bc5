package authcore

import (
	"context"
	"log/slog"
	"time"
)

// Event kinds emitted by the Manager.
const (
	EventLogin          = "login"
	EventLoginFailed    = "login_failed"
	EventAccountLocked  = "account_locked"
	EventReuseDetected  = "reuse_detected"
	EventSessionEvicted = "session_evicted"
	EventLogout         = "logout"
	EventLogoutAll      = "logout_all"
	EventSweep          = "sweep"
)

// Event is one security-relevant occurrence, suitable for an audit trail.
// Fields that do not apply to a kind are left empty.
type Event struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	At        time.Time `json:"at"`
	Detail    string    `json:"detail,omitempty"`
}

// Sink receives security events. Implementations must be safe for concurrent
// use; a slow sink delays only its own emit goroutine, never the request.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// emitAsync dispatches ev on a goroutine so request paths never block on the
// sink. The goroutine uses context.Background() with emitTimeout so request
// cancellation does not abort an in-flight emit; errors are logged,
// best-effort.
func (m *Manager) emitAsync(ctx context.Context, ev Event) {
	if m.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = m.nowF()
	}
	log := m.logger(ctx)
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := m.events.Emit(emitCtx, ev); err != nil {
			log.Warn("event emit failed",
				slog.String("kind", ev.Kind),
				slog.String("err", err.Error()))
		}
	}()
}
