package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RevocationChecker reports whether a token fingerprint has been revoked.
type RevocationChecker interface {
	Contains(ctx context.Context, fingerprint string) (bool, error)
}

// SessionChecker reports whether the session a token is bound to is still
// able to back it: present, active, and unexpired.
type SessionChecker interface {
	SessionLive(ctx context.Context, sessionID string) (bool, error)
}

// Verifier checks presented tokens. Checks run in a fixed order and stop at
// the first failure: signature and structure, expiry, token type, revocation,
// then session liveness. A caller therefore never learns whether an expired
// token was also revoked.
type Verifier struct {
	key      *SigningKey
	issuer   string
	audience string
	revoked  RevocationChecker
	sessions SessionChecker
	nowF     func() time.Time
}

// NewVerifier returns a Verifier for the given environment. A nil checker
// skips its stage, for callers that run revocation or liveness checks
// themselves; session-less token kinds skip the liveness check on their own.
func NewVerifier(key *SigningKey, issuer, audience string, revoked RevocationChecker, sessions SessionChecker) *Verifier {
	return &Verifier{
		key:      key,
		issuer:   issuer,
		audience: audience,
		revoked:  revoked,
		sessions: sessions,
		nowF:     time.Now,
	}
}

// WithClock overrides the Verifier's time source. Intended for tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.nowF = now
	return v
}

// Verify validates tokenString and returns its claims. want is the token
// type the call site expects; any other type fails with
// ErrTokenTypeMismatch even when the token is otherwise valid.
func (v *Verifier) Verify(ctx context.Context, tokenString string, want Type) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.key.keyfunc,
		jwt.WithTimeFunc(v.nowF),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != v.issuer {
		return nil, ErrTokenInvalid
	}
	audOK := false
	for _, a := range claims.Audience {
		if a == v.audience {
			audOK = true
			break
		}
	}
	if !audOK {
		return nil, ErrTokenInvalid
	}
	if !claims.TokenType.Valid() {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != want {
		return nil, ErrTokenTypeMismatch
	}

	if v.revoked != nil {
		revoked, err := v.revoked.Contains(ctx, Fingerprint(tokenString))
		if err != nil {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	// Reset, verify, and api_key tokens are not bound to a session.
	if v.sessions != nil && claims.SessionID != "" {
		live, err := v.sessions.SessionLive(ctx, claims.SessionID)
		if err != nil {
			return nil, fmt.Errorf("session check: %w", err)
		}
		if !live {
			return nil, ErrSessionInvalid
		}
	}
	return claims, nil
}
