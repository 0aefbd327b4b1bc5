package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the minimum byte length accepted for an HMAC signing secret.
const MinSecretLen = 32

// SigningKey holds the signing material for one token environment: either a
// shared HMAC secret (HS256) or an RSA/ECDSA key pair (RS256/ES256). A key
// built from only the public half can verify but not sign.
type SigningKey struct {
	secret []byte
	priv   crypto.Signer
	pub    crypto.PublicKey
}

// NewSymmetricKey returns a SigningKey that signs and verifies with HS256.
// The secret must be at least MinSecretLen bytes.
func NewSymmetricKey(secret []byte) (*SigningKey, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrInvalidKey
	}
	return &SigningKey{secret: secret}, nil
}

// NewKeypair parses a PEM private/public key pair (RSA or ECDSA). Each
// argument may be inline PEM or a file path.
func NewKeypair(privateKey, publicKey string) (*SigningKey, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return &SigningKey{priv: priv, pub: pub}, nil
}

// NewVerificationKey parses a PEM public key for verify-only use, for
// consumers that check tokens but never mint them.
func NewVerificationKey(publicKey string) (*SigningKey, error) {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return &SigningKey{pub: pub}, nil
}

// CanSign reports whether the key holds signing material.
func (k *SigningKey) CanSign() bool {
	return len(k.secret) > 0 || k.priv != nil
}

// Alg returns the JWT alg value the key signs with: HS256, RS256, or ES256.
// Empty for unsupported key types.
func (k *SigningKey) Alg() string {
	if len(k.secret) > 0 {
		return "HS256"
	}
	switch k.pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	default:
		return ""
	}
}

func (k *SigningKey) method() (jwt.SigningMethod, error) {
	switch k.Alg() {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "RS256":
		return jwt.SigningMethodRS256, nil
	case "ES256":
		return jwt.SigningMethodES256, nil
	default:
		return nil, ErrInvalidKey
	}
}

func (k *SigningKey) signingKey() (any, error) {
	if len(k.secret) > 0 {
		return k.secret, nil
	}
	if k.priv == nil {
		return nil, ErrInvalidKey
	}
	return k.priv, nil
}

// keyfunc validates the token's signing method against the key material and
// returns the verification key.
func (k *SigningKey) keyfunc(t *jwt.Token) (any, error) {
	if len(k.secret) > 0 {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return k.secret, nil
	}
	switch t.Method.(type) {
	case *jwt.SigningMethodRSA:
		if _, ok := k.pub.(*rsa.PublicKey); !ok {
			return nil, ErrTokenInvalid
		}
	case *jwt.SigningMethodECDSA:
		if _, ok := k.pub.(*ecdsa.PublicKey); !ok {
			return nil, ErrTokenInvalid
		}
	default:
		return nil, ErrTokenInvalid
	}
	return k.pub, nil
}

// LoadPEM reads content from path if s does not look like inline PEM;
// otherwise returns s as bytes.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(s), nil
	}
	return os.ReadFile(s)
}

// ParsePrivateKey parses a PEM-encoded private key (RSA or ECDSA). s may be
// inline PEM or a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return signer, nil
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// ParsePublicKey parses a PEM-encoded public key (RSA or ECDSA). s may be
// inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}
