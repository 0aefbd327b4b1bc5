package token

import "fmt"

// Type identifies what a token may be used for. The value is carried in the
// token_type claim and checked on every verification.
type Type string

const (
	// TypeAccess is a short-lived bearer token for authenticated requests.
	TypeAccess Type = "access"
	// TypeRefresh is a long-lived token exchanged for new token pairs.
	TypeRefresh Type = "refresh"
	// TypeReset authorizes a password reset.
	TypeReset Type = "reset"
	// TypeVerify authorizes an email verification.
	TypeVerify Type = "verify"
	// TypeAPIKey is a long-lived programmatic credential.
	TypeAPIKey Type = "api_key"
)

// Valid reports whether t is one of the known token types.
func (t Type) Valid() bool {
	switch t {
	case TypeAccess, TypeRefresh, TypeReset, TypeVerify, TypeAPIKey:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// ParseType converts s into a Type, rejecting unknown values.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: token type %q", ErrTokenInvalid, s)
	}
	return t, nil
}
