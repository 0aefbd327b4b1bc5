package token

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetimes for special-purpose tokens. Access and refresh lifetimes
// are configured on the Issuer.
const (
	DefaultResetTTL  = time.Hour
	DefaultVerifyTTL = 24 * time.Hour
	// MaxAPIKeyTTL caps programmatic credentials at one year.
	MaxAPIKeyTTL = 365 * 24 * time.Hour
)

// Identity is the principal snapshot embedded in access tokens. Roles and
// Permissions are copied as of issuance and stay fixed for the token's life.
type Identity struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
}

// Issuer mints signed tokens for one issuer/audience environment.
type Issuer struct {
	key        *SigningKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowF       func() time.Time
}

// NewIssuer returns an Issuer signing with key. issuer and audience are set
// on every token and enforced by the Verifier, so tokens never cross
// environments.
func NewIssuer(key *SigningKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		key:        key,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		nowF:       time.Now,
	}
}

// WithClock overrides the Issuer's time source. Intended for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.nowF = now
	return i
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess mints a short-lived access token carrying the identity snapshot
// and the owning session. Returns the signed token and its expiry.
func (i *Issuer) IssueAccess(id Identity, sessionID string) (string, time.Time, error) {
	return i.issue(TypeAccess, id, sessionID, i.accessTTL)
}

// IssueRefresh mints a long-lived refresh token bound to the session. The
// caller records its fingerprint on the session for rotation checks. Refresh
// tokens carry no role or permission snapshot; a fresh snapshot is embedded
// in the access token minted at each refresh.
func (i *Issuer) IssueRefresh(userID, sessionID string) (string, time.Time, error) {
	return i.issue(TypeRefresh, Identity{UserID: userID}, sessionID, i.refreshTTL)
}

// IssueSpecial mints a reset, verify, or api_key token for userID. A zero or
// negative ttl selects the default lifetime for the kind; api_key lifetimes
// are capped at MaxAPIKeyTTL.
func (i *Issuer) IssueSpecial(kind Type, userID string, ttl time.Duration) (string, time.Time, error) {
	switch kind {
	case TypeReset:
		if ttl <= 0 {
			ttl = DefaultResetTTL
		}
	case TypeVerify:
		if ttl <= 0 {
			ttl = DefaultVerifyTTL
		}
	case TypeAPIKey:
		if ttl <= 0 || ttl > MaxAPIKeyTTL {
			ttl = MaxAPIKeyTTL
		}
	default:
		return "", time.Time{}, ErrTokenInvalid
	}
	return i.issue(kind, Identity{UserID: userID}, "", ttl)
}

func (i *Issuer) issue(kind Type, id Identity, sessionID string, ttl time.Duration) (string, time.Time, error) {
	if !i.key.CanSign() {
		return "", time.Time{}, ErrInvalidKey
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := i.nowF().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   id.UserID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:       id.Email,
		Roles:       id.Roles,
		Permissions: id.Permissions,
		SessionID:   sessionID,
		TokenType:   kind,
	}
	method, err := i.key.method()
	if err != nil {
		return "", time.Time{}, err
	}
	signKey, err := i.key.signingKey()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// generateJTI returns a random token ID. It keeps otherwise identical tokens
// minted in the same second from colliding on their fingerprint.
func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
