package authcore

import (
	"errors"
	"fmt"

	"authcore/token"
)

// Login failures. ErrInvalidCredentials covers unknown email and wrong
// password alike so responses never reveal which one it was.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountInactive    = errors.New("account inactive")
	ErrAccountUnverified  = errors.New("account not verified")
)

// ErrReuseDetected reports a refresh token that was already rotated. It
// unwraps to token.ErrTokenInvalid, so callers that only match the generic
// failure cannot tell a replayed token from a garbage one.
var ErrReuseDetected = fmt.Errorf("refresh token reuse detected: %w", token.ErrTokenInvalid)
