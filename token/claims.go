package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of an issued token. Claims are written once
// at issuance and never mutated afterwards; changing a user's roles or
// permissions takes effect on the next issuance, not on outstanding tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
	TokenType   Type     `json:"token_type"`
}

// UserID returns the subject the token was issued for.
func (c *Claims) UserID() string {
	return c.Subject
}

// HasRole reports whether the role snapshot embedded at issuance contains role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the permission snapshot embedded at issuance
// contains perm.
func (c *Claims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
