package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 digest of the signed token
// string. Fingerprints are what sessions and the revocation registry store;
// the raw token never leaves the caller.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// FingerprintEqual performs a constant-time comparison of the provided
// token's fingerprint with a stored fingerprint.
func FingerprintEqual(token, storedFingerprint string) bool {
	fp := Fingerprint(token)
	return subtle.ConstantTimeCompare([]byte(fp), []byte(storedFingerprint)) == 1
}
