// Package authcore is the session and credential-lifecycle core: password
// policy and hashing with lockout, signed token issuance and verification,
// refresh rotation with replay detection, and capped multi-device session
// bookkeeping. The Manager composes the pieces; hosts bring their own
// credential store and authorization snapshots.
package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go.opentelemetry.io/otel/metric"

	"authcore/internal/logctx"
	"authcore/password"
	"authcore/revocation"
	"authcore/session"
	"authcore/telemetry"
	"authcore/token"
)

// TokenPair is the bearer material returned by Login and Refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	SessionID        string    `json:"session_id"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Deps are the Manager's collaborators. Credentials and Snapshots are
// required; the rest default as noted per field.
type Deps struct {
	// Credentials resolves accounts at login. Required.
	Credentials CredentialSource
	// Snapshots loads roles and permissions at login and refresh. Required.
	Snapshots SnapshotSource
	// Sessions defaults to an in-memory store capped per Config.
	Sessions session.Store
	// Revocations defaults to an in-memory registry.
	Revocations revocation.Registry
	// Events receives security events. Nil drops them.
	Events Sink
	// Logger defaults to slog.Default(). A logger carried in the request
	// context through logctx takes precedence per call.
	Logger *slog.Logger
	// Meter enables the telemetry counters. Nil records nothing.
	Meter metric.Meter
	// Clock overrides time.Now across the core, for tests. Stores built by
	// the caller keep their own clocks.
	Clock func() time.Time
}

// Manager orchestrates login, verification, refresh rotation, logout, and
// sweeping. Construct once with New; all methods are safe for concurrent use.
type Manager struct {
	cfg       Config
	creds     CredentialSource
	snapshots SnapshotSource
	sessions  session.Store
	revoked   revocation.Registry
	events    Sink
	log       *slog.Logger
	metrics   *telemetry.Metrics

	policy          password.Policy
	hasher          *password.Hasher
	lockout         *password.Lockout
	issuer          *token.Issuer
	verifier        *token.Verifier
	refreshVerifier *token.Verifier

	nowF func() time.Time
}

// New validates cfg, fills defaults, and wires the Manager. Misconfiguration
// is the only fatal failure class in this package; everything later returns
// typed errors.
func New(cfg Config, deps Deps) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Credentials == nil {
		return nil, errors.New("authcore: deps need a credential source")
	}
	if deps.Snapshots == nil {
		return nil, errors.New("authcore: deps need a snapshot source")
	}
	cfg = cfg.withDefaults()

	m := &Manager{
		cfg:       cfg,
		creds:     deps.Credentials,
		snapshots: deps.Snapshots,
		sessions:  deps.Sessions,
		revoked:   deps.Revocations,
		events:    deps.Events,
		log:       deps.Logger,
		policy:    *cfg.Policy,
		nowF:      deps.Clock,
	}
	if m.nowF == nil {
		m.nowF = time.Now
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.revoked == nil {
		m.revoked = revocation.NewMemoryRegistry()
	}
	if m.sessions == nil {
		store := session.NewMemoryStore(cfg.MaxSessionsPerUser)
		if deps.Clock != nil {
			store.WithClock(deps.Clock)
		}
		m.sessions = store
	}
	if deps.Meter != nil {
		metrics, err := telemetry.NewMetrics(deps.Meter)
		if err != nil {
			return nil, fmt.Errorf("authcore: metrics: %w", err)
		}
		m.metrics = metrics
	}

	m.hasher = password.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
	m.lockout = password.NewLockout(cfg.LockoutThreshold, cfg.LockoutWindow)
	m.issuer = token.NewIssuer(cfg.Key, cfg.Issuer, cfg.Audience, cfg.AccessTTL, cfg.RefreshTTL)
	m.verifier = token.NewVerifier(cfg.Key, cfg.Issuer, cfg.Audience,
		m.revoked, sessionGate{store: m.sessions, nowF: m.nowF})
	// Refresh runs revocation and liveness itself so it can treat a consumed
	// fingerprint as replay; its verifier stops after the type check.
	m.refreshVerifier = token.NewVerifier(cfg.Key, cfg.Issuer, cfg.Audience, nil, nil)
	if deps.Clock != nil {
		m.lockout.WithClock(deps.Clock)
		m.issuer.WithClock(deps.Clock)
		m.verifier.WithClock(deps.Clock)
		m.refreshVerifier.WithClock(deps.Clock)
	}
	return m, nil
}

// sessionGate adapts the session store to the verifier's liveness check.
type sessionGate struct {
	store session.Store
	nowF  func() time.Time
}

func (g sessionGate) SessionLive(ctx context.Context, sessionID string) (bool, error) {
	s, err := g.store.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s != nil && s.Live(g.nowF()), nil
}

// Login authenticates email and password and opens a session for device.
// Wrong password and unknown email fail identically with
// ErrInvalidCredentials, and both cost one bcrypt comparison.
func (m *Manager) Login(ctx context.Context, email, pw string, device session.DeviceInfo) (*TokenPair, error) {
	const op = "authcore.Login"
	email = NormalizeEmail(email)
	now := m.nowF()

	// The lockout gate comes first: a blocked email does no store reads and
	// no hashing, and stays blocked even with the correct password.
	if blocked, retry := m.lockout.Blocked(email); blocked {
		m.metrics.Login(ctx, telemetry.ResultLocked)
		m.emitAsync(ctx, Event{Kind: EventAccountLocked, Email: email, Detail: "lockout window active"})
		m.logger(ctx).Warn("login blocked by lockout",
			slog.String("email", email),
			slog.Duration("retry_after", retry))
		return nil, fmt.Errorf("%s: %w", op, ErrAccountLocked)
	}

	cred, err := m.creds.ByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: credential lookup: %w", op, err)
	}
	if cred == nil {
		// Burn a comparison so unknown accounts cost the same as wrong
		// passwords.
		m.hasher.CompareDummy(ctx, pw)
		return nil, m.loginFailed(ctx, op, email, "", "unknown account")
	}

	if cred.LockedUntil.After(now) {
		m.metrics.Login(ctx, telemetry.ResultLocked)
		m.emitAsync(ctx, Event{Kind: EventAccountLocked, UserID: cred.UserID, Email: email, Detail: "locked by user store"})
		return nil, fmt.Errorf("%s: %w", op, ErrAccountLocked)
	}

	if err := m.hasher.Compare(ctx, cred.PasswordHash, pw); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, m.loginFailed(ctx, op, email, cred.UserID, "wrong password")
		}
		return nil, fmt.Errorf("%s: compare: %w", op, err)
	}

	// Flags come after the comparison so a probe without the password cannot
	// learn whether the account exists.
	if !cred.Active {
		m.metrics.Login(ctx, telemetry.ResultInactive)
		m.emitAsync(ctx, Event{Kind: EventLoginFailed, UserID: cred.UserID, Email: email, Detail: "account inactive"})
		return nil, fmt.Errorf("%s: %w", op, ErrAccountInactive)
	}
	if !cred.Verified {
		m.metrics.Login(ctx, telemetry.ResultUnverified)
		m.emitAsync(ctx, Event{Kind: EventLoginFailed, UserID: cred.UserID, Email: email, Detail: "account not verified"})
		return nil, fmt.Errorf("%s: %w", op, ErrAccountUnverified)
	}

	m.lockout.Reset(email)

	snap, err := m.snapshots.Snapshot(ctx, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: snapshot: %w", op, err)
	}

	sess := session.New(cred.UserID, device, now, m.cfg.RefreshTTL)
	refresh, refreshExp, err := m.issuer.IssueRefresh(cred.UserID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: issue refresh: %w", op, err)
	}
	sess.RefreshFingerprint = token.Fingerprint(refresh)

	evicted, err := m.sessions.Create(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("%s: create session: %w", op, err)
	}
	for _, old := range evicted {
		m.blacklistSession(ctx, old, revocation.ReasonEvicted)
		m.emitAsync(ctx, Event{Kind: EventSessionEvicted, UserID: old.UserID, SessionID: old.ID})
	}
	m.metrics.SessionsEvicted(ctx, len(evicted))

	id := token.Identity{
		UserID:      cred.UserID,
		Email:       cred.Email,
		Roles:       snap.Roles,
		Permissions: snap.Permissions,
	}
	access, accessExp, err := m.issuer.IssueAccess(id, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: issue access: %w", op, err)
	}

	m.metrics.Login(ctx, telemetry.ResultOK)
	m.emitAsync(ctx, Event{Kind: EventLogin, UserID: cred.UserID, SessionID: sess.ID, Email: cred.Email})
	m.logger(ctx).Info("login",
		slog.String("user_id", cred.UserID),
		slog.String("session_id", sess.ID),
		slog.Int("evicted", len(evicted)))

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		SessionID:        sess.ID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// loginFailed records a failed credential check: the lockout window gains a
// failure, and when that failure crosses the threshold the lock is announced
// once.
func (m *Manager) loginFailed(ctx context.Context, op, email, userID, detail string) error {
	m.lockout.RecordFailure(email)
	if blocked, _ := m.lockout.Blocked(email); blocked {
		m.emitAsync(ctx, Event{Kind: EventAccountLocked, UserID: userID, Email: email, Detail: "lockout threshold reached"})
		m.logger(ctx).Warn("account locked", slog.String("email", email))
	}
	m.metrics.Login(ctx, telemetry.ResultInvalidCredentials)
	m.emitAsync(ctx, Event{Kind: EventLoginFailed, UserID: userID, Email: email, Detail: detail})
	m.logger(ctx).Info("login failed", slog.String("email", email), slog.String("detail", detail))
	return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
}

// Verify is the choke point for protected requests: it validates the token
// (signature, expiry, type, revocation, session liveness, in that order) and
// bumps the session's last-used time on success.
func (m *Manager) Verify(ctx context.Context, tokenString string, want token.Type) (*token.Claims, error) {
	const op = "authcore.Verify"
	claims, err := m.verifier.Verify(ctx, tokenString, want)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if claims.SessionID != "" {
		// Best-effort: a missed bump never fails an otherwise valid request.
		m.bumpLastUsed(ctx, claims.SessionID, m.nowF())
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a fresh pair. The presented token
// must be the session's current one: a fingerprint already consumed by
// rotation, or one that no longer matches the stored value, counts as replay
// and tears down every session the user holds. Roles and permissions are
// re-fetched so the new access token never extends stale authorization.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	const op = "authcore.Refresh"

	claims, err := m.refreshVerifier.Verify(ctx, refreshToken, token.TypeRefresh)
	if err != nil {
		m.metrics.Refresh(ctx, telemetry.ResultInvalid)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	userID := claims.UserID()
	sessionID := claims.SessionID
	presentedFP := token.Fingerprint(refreshToken)

	reason, revoked, err := m.revoked.Lookup(ctx, presentedFP)
	if err != nil {
		return nil, fmt.Errorf("%s: revocation check: %w", op, err)
	}
	if revoked {
		if reason == revocation.ReasonRotated {
			// The legitimate holder moved on to the next token at rotation.
			// This one coming back is a replay, not a stale client.
			return nil, m.reuseDetected(ctx, op, userID, sessionID)
		}
		m.metrics.Refresh(ctx, telemetry.ResultInvalid)
		return nil, fmt.Errorf("%s: %w", op, token.ErrTokenRevoked)
	}

	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: session lookup: %w", op, err)
	}
	now := m.nowF()
	if sess == nil || !sess.Live(now) {
		m.metrics.Refresh(ctx, telemetry.ResultInvalid)
		return nil, fmt.Errorf("%s: %w", op, token.ErrSessionInvalid)
	}

	if !token.FingerprintEqual(refreshToken, sess.RefreshFingerprint) {
		return nil, m.reuseDetected(ctx, op, userID, sessionID)
	}

	snap, err := m.snapshots.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: snapshot: %w", op, err)
	}
	id := token.Identity{
		UserID:      userID,
		Email:       claims.Email,
		Roles:       snap.Roles,
		Permissions: snap.Permissions,
	}

	if m.cfg.DisableRefreshRotation {
		access, accessExp, err := m.issuer.IssueAccess(id, sessionID)
		if err != nil {
			return nil, fmt.Errorf("%s: issue access: %w", op, err)
		}
		m.bumpLastUsed(ctx, sessionID, now)
		m.metrics.Refresh(ctx, telemetry.ResultOK)
		return &TokenPair{
			AccessToken:      access,
			RefreshToken:     refreshToken,
			SessionID:        sessionID,
			AccessExpiresAt:  accessExp,
			RefreshExpiresAt: claims.ExpiresAt.Time,
		}, nil
	}

	newRefresh, refreshExp, err := m.issuer.IssueRefresh(userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: issue refresh: %w", op, err)
	}

	switch err := m.sessions.ReplaceFingerprint(ctx, sessionID, presentedFP, token.Fingerprint(newRefresh)); {
	case err == nil:
	case errors.Is(err, session.ErrFingerprintMismatch):
		// Lost a rotation race, or a replay landed between the compare above
		// and the swap. Same response either way: exactly one caller per
		// fingerprint wins.
		return nil, m.reuseDetected(ctx, op, userID, sessionID)
	case errors.Is(err, session.ErrSessionNotLive):
		m.metrics.Refresh(ctx, telemetry.ResultInvalid)
		return nil, fmt.Errorf("%s: %w", op, token.ErrSessionInvalid)
	default:
		return nil, fmt.Errorf("%s: rotate fingerprint: %w", op, err)
	}

	// The consumed token dies now, not at its natural expiry. This closes
	// the window between issuing the new token and storing its fingerprint.
	if err := m.revoked.Add(ctx, presentedFP, revocation.ReasonRotated, claims.ExpiresAt.Time); err != nil {
		m.logger(ctx).Warn("blacklist rotated fingerprint",
			slog.String("session_id", sessionID),
			slog.String("fingerprint", fpPrefix(presentedFP)),
			slog.String("err", err.Error()))
	}

	access, accessExp, err := m.issuer.IssueAccess(id, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: issue access: %w", op, err)
	}
	m.bumpLastUsed(ctx, sessionID, now)

	m.metrics.Refresh(ctx, telemetry.ResultOK)
	m.logger(ctx).Debug("refresh rotated",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID))

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     newRefresh,
		SessionID:        sessionID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// reuseDetected tears down every session the user holds and reports the
// generic invalid-token failure. Intentionally aggressive: one legitimate
// client retry costs less than an undetected stolen-token reuse.
func (m *Manager) reuseDetected(ctx context.Context, op, userID, sessionID string) error {
	count, err := m.invalidateAll(ctx, userID, revocation.ReasonReuse)
	if err != nil {
		m.logger(ctx).Error("reuse teardown failed",
			slog.String("user_id", userID),
			slog.String("err", err.Error()))
	}
	m.metrics.Refresh(ctx, telemetry.ResultReuse)
	m.metrics.ReuseDetected(ctx)
	m.emitAsync(ctx, Event{Kind: EventReuseDetected, UserID: userID, SessionID: sessionID,
		Detail: fmt.Sprintf("%d sessions invalidated", count)})
	m.logger(ctx).Warn("refresh reuse detected",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
		slog.Int("invalidated", count))
	return fmt.Errorf("%s: %w", op, ErrReuseDetected)
}

// Logout ends one session. Unknown session ids are a no-op, so repeated
// logouts and logouts after eviction are safe.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	const op = "authcore.Logout"
	s, err := m.sessions.Invalidate(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if s == nil {
		return nil
	}
	m.blacklistSession(ctx, s, revocation.ReasonLogout)
	m.emitAsync(ctx, Event{Kind: EventLogout, UserID: s.UserID, SessionID: s.ID})
	m.logger(ctx).Info("logout",
		slog.String("user_id", s.UserID),
		slog.String("session_id", s.ID))
	return nil
}

// LogoutAll ends every session the user holds and returns how many there
// were. Every token bound to them fails verification from here on.
func (m *Manager) LogoutAll(ctx context.Context, userID string) (int, error) {
	const op = "authcore.LogoutAll"
	count, err := m.invalidateAll(ctx, userID, revocation.ReasonLogoutAll)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	m.emitAsync(ctx, Event{Kind: EventLogoutAll, UserID: userID,
		Detail: fmt.Sprintf("%d sessions", count)})
	m.logger(ctx).Info("logout all",
		slog.String("user_id", userID),
		slog.Int("sessions", count))
	return count, nil
}

// ListSessions returns the user's live sessions for device listings, oldest
// first. Views never carry refresh fingerprints.
func (m *Manager) ListSessions(ctx context.Context, userID string) ([]session.View, error) {
	const op = "authcore.ListSessions"
	sessions, err := m.sessions.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	views := make([]session.View, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.View())
	}
	return views, nil
}

// Sweep removes sessions past expiry, prunes revocation entries whose tokens
// have expired anyway, and drops aged-out lockout slots. Returns how many
// sessions were removed. Safe to run alongside live traffic.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	const op = "authcore.Sweep"
	now := m.nowF()
	removed, err := m.sessions.Sweep(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: sessions: %w", op, err)
	}
	pruned, err := m.revoked.Prune(ctx, now)
	if err != nil {
		return removed, fmt.Errorf("%s: revocations: %w", op, err)
	}
	cleared := m.lockout.Sweep()
	m.metrics.SessionsSwept(ctx, removed)
	if removed > 0 || pruned > 0 || cleared > 0 {
		m.emitAsync(ctx, Event{Kind: EventSweep,
			Detail: fmt.Sprintf("%d sessions, %d revocations, %d lockout slots", removed, pruned, cleared)})
		m.logger(ctx).Info("sweep",
			slog.Int("sessions", removed),
			slog.Int("revocations", pruned),
			slog.Int("lockout_slots", cleared))
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is canceled. interval <= 0
// selects Config.SweepInterval. Failed sweeps are logged and retried at the
// next tick.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.cfg.SweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger(ctx).Error("sweep failed", slog.String("err", err.Error()))
			}
		}
	}
}

// ValidatePassword checks pw against the configured strength policy and
// returns every violated rule.
func (m *Manager) ValidatePassword(pw string) []password.Violation {
	return m.policy.Validate(pw)
}

// HashPassword validates pw against the policy and returns its hash for the
// caller's credential store. Weak passwords fail with
// *password.WeakPasswordError.
func (m *Manager) HashPassword(ctx context.Context, pw string) (string, error) {
	const op = "authcore.HashPassword"
	if vs := m.policy.Validate(pw); len(vs) > 0 {
		return "", fmt.Errorf("%s: %w", op, &password.WeakPasswordError{Violations: vs})
	}
	hash, err := m.hasher.Hash(ctx, pw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hash, nil
}

// IssueSpecial mints a reset, verify, or api_key token for userID. These
// tokens are not bound to a session; ttl <= 0 selects the kind's default.
func (m *Manager) IssueSpecial(kind token.Type, userID string, ttl time.Duration) (string, time.Time, error) {
	return m.issuer.IssueSpecial(kind, userID, ttl)
}

// invalidateAll removes the user's sessions and blacklists their current
// refresh fingerprints.
func (m *Manager) invalidateAll(ctx context.Context, userID string, reason revocation.Reason) (int, error) {
	sessions, err := m.sessions.InvalidateAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, s := range sessions {
		m.blacklistSession(ctx, s, reason)
	}
	return len(sessions), nil
}

// blacklistSession records the session's current refresh fingerprint. The
// registry entry expires with the session, which outlives any token bound to
// it. Best-effort: the store removal already kills the session's tokens at
// the liveness check.
func (m *Manager) blacklistSession(ctx context.Context, s *session.Session, reason revocation.Reason) {
	if s == nil || s.RefreshFingerprint == "" {
		return
	}
	if err := m.revoked.Add(ctx, s.RefreshFingerprint, reason, s.ExpiresAt); err != nil {
		m.logger(ctx).Warn("blacklist fingerprint failed",
			slog.String("session_id", s.ID),
			slog.String("fingerprint", fpPrefix(s.RefreshFingerprint)),
			slog.String("err", err.Error()))
	}
}

// bumpLastUsed is the best-effort usage timestamp update.
func (m *Manager) bumpLastUsed(ctx context.Context, sessionID string, at time.Time) {
	if err := m.sessions.UpdateLastUsed(ctx, sessionID, at); err != nil {
		m.logger(ctx).Warn("last-used bump failed",
			slog.String("session_id", sessionID),
			slog.String("err", err.Error()))
	}
}

// logger returns the request-scoped logger when the context carries one,
// otherwise the Manager's.
func (m *Manager) logger(ctx context.Context) *slog.Logger {
	if l, ok := logctx.Carried(ctx); ok {
		return l
	}
	return m.log
}

// fpPrefix truncates a fingerprint for log lines; full fingerprints stay out
// of the log stream.
func fpPrefix(fp string) string {
	if len(fp) <= 8 {
		return fp
	}
	return fp[:8]
}
