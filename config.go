package authcore

import (
	"errors"
	"time"

	"authcore/password"
	"authcore/session"
	"authcore/token"
)

// Defaults applied during Manager construction for zero Config fields.
const (
	DefaultAccessTTL     = 15 * time.Minute
	DefaultRefreshTTL    = 168 * time.Hour
	DefaultSweepInterval = time.Minute
)

// Config carries the Manager tunables. Key, Issuer, and Audience are
// required; zero values elsewhere select the defaults noted per field.
type Config struct {
	// Key is the token signing material. It must hold the signing half:
	// an HMAC secret or a private key.
	Key *token.SigningKey
	// Issuer and Audience are stamped into every token and checked on
	// verification, so tokens from another environment are rejected outright.
	Issuer   string
	Audience string

	// AccessTTL is the access token lifetime. Default 15m.
	AccessTTL time.Duration
	// RefreshTTL is the refresh token lifetime and with it the session
	// lifetime. Default 168h.
	RefreshTTL time.Duration

	// MaxSessionsPerUser caps live sessions per user; logins beyond the cap
	// evict the oldest. Default session.DefaultMaxPerUser. Applies to the
	// store the Manager builds itself; an injected Deps.Sessions keeps the
	// cap it was constructed with.
	MaxSessionsPerUser int

	// LockoutThreshold failures within LockoutWindow block further logins
	// for that email until the window ages out. Defaults 5 and 15m.
	LockoutThreshold int
	LockoutWindow    time.Duration

	// DisableRefreshRotation keeps the same refresh token across refreshes.
	// Rotation, and with it the blacklist of consumed tokens, is on unless
	// set. Fingerprint mismatch still invalidates every session either way.
	DisableRefreshRotation bool

	// BcryptCost is the hashing cost factor (4 to 31). Default
	// password.DefaultCost.
	BcryptCost int
	// HashConcurrency caps concurrent bcrypt computations. Default
	// GOMAXPROCS.
	HashConcurrency int

	// SweepInterval is the RunSweeper period. Default 1m.
	SweepInterval time.Duration

	// Policy overrides the password strength rules checked by HashPassword.
	// Nil selects password.DefaultPolicy.
	Policy *password.Policy
}

// validate reports the misconfigurations New refuses to start with.
func (c *Config) validate() error {
	if c.Key == nil || !c.Key.CanSign() {
		return errors.New("authcore: config needs signing material")
	}
	if c.Issuer == "" {
		return errors.New("authcore: config needs an issuer")
	}
	if c.Audience == "" {
		return errors.New("authcore: config needs an audience")
	}
	return nil
}

// withDefaults returns a copy with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.MaxSessionsPerUser <= 0 {
		c.MaxSessionsPerUser = session.DefaultMaxPerUser
	}
	if c.LockoutThreshold <= 0 {
		c.LockoutThreshold = password.DefaultLockoutThreshold
	}
	if c.LockoutWindow <= 0 {
		c.LockoutWindow = password.DefaultLockoutWindow
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.Policy == nil {
		p := password.DefaultPolicy()
		c.Policy = &p
	}
	return c
}
