package token

import "errors"

// Verification failures, in check order. Verify short-circuits on the first
// failure, so a token reported expired always carried a valid signature.
var (
	// ErrTokenInvalid is returned when a token is malformed, carries a bad
	// signature, or was minted for another issuer or audience.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned when a well-formed, correctly signed token
	// is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenTypeMismatch is returned when the token is valid but its
	// token_type claim does not match the type the caller expected.
	ErrTokenTypeMismatch = errors.New("token type mismatch")

	// ErrTokenRevoked is returned when the token's fingerprint is present in
	// the revocation registry.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrSessionInvalid is returned when the session a token is bound to is
	// missing, inactive, or expired.
	ErrSessionInvalid = errors.New("session invalid")
)

// ErrInvalidKey is returned when signing material is missing, malformed, or
// of an unsupported type.
var ErrInvalidKey = errors.New("invalid key")
