package token

import (
	"context"
	"testing"
	"time"
)

func TestIssuer_IssueAccess(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTestIssuer()
	if err != nil {
		t.Fatalf("NewTestIssuer: %v", err)
	}
	issuer.WithClock(func() time.Time { return base })

	tok, expiresAt, err := issuer.IssueAccess(Identity{UserID: "u1"}, "s1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if tok == "" {
		t.Fatal("IssueAccess: empty token")
	}
	if want := base.Add(15 * time.Minute); !expiresAt.Equal(want) {
		t.Errorf("IssueAccess: expiresAt = %v, want %v", expiresAt, want)
	}

	v := newTestVerifier(t, nil, nil)
	v.WithClock(func() time.Time { return base })
	claims, err := v.Verify(context.Background(), tok, TypeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.ID == "" {
		t.Error("IssueAccess: empty jti")
	}
	if !claims.IssuedAt.Time.Equal(base) || !claims.ExpiresAt.Time.Equal(base.Add(15*time.Minute)) {
		t.Errorf("IssueAccess: iat=%v exp=%v", claims.IssuedAt.Time, claims.ExpiresAt.Time)
	}
}

func TestIssuer_IssueRefresh(t *testing.T) {
	issuer, err := NewTestIssuer()
	if err != nil {
		t.Fatalf("NewTestIssuer: %v", err)
	}
	tok, _, err := issuer.IssueRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	v := newTestVerifier(t, nil, nil)
	claims, err := v.Verify(context.Background(), tok, TypeRefresh)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID() != "u1" || claims.SessionID != "s1" {
		t.Errorf("IssueRefresh: got userID=%q sessionID=%q", claims.UserID(), claims.SessionID)
	}
	if len(claims.Roles) != 0 || len(claims.Permissions) != 0 {
		t.Errorf("IssueRefresh: refresh tokens must not carry a snapshot, got roles=%v perms=%v", claims.Roles, claims.Permissions)
	}
}

// Two tokens minted with identical claims in the same instant still get
// distinct fingerprints through their jti.
func TestIssuer_DistinctFingerprints(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTestIssuer()
	if err != nil {
		t.Fatalf("NewTestIssuer: %v", err)
	}
	issuer.WithClock(func() time.Time { return base })
	a, _, err := issuer.IssueRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	b, _, err := issuer.IssueRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("IssueRefresh: fingerprint collision for same-instant tokens")
	}
}

func TestIssuer_IssueSpecial(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTestIssuer()
	if err != nil {
		t.Fatalf("NewTestIssuer: %v", err)
	}
	issuer.WithClock(func() time.Time { return base })

	tests := []struct {
		kind    Type
		ttl     time.Duration
		wantExp time.Time
	}{
		{TypeReset, 0, base.Add(DefaultResetTTL)},
		{TypeVerify, 0, base.Add(DefaultVerifyTTL)},
		{TypeReset, 10 * time.Minute, base.Add(10 * time.Minute)},
		{TypeAPIKey, 0, base.Add(MaxAPIKeyTTL)},
		{TypeAPIKey, 2 * MaxAPIKeyTTL, base.Add(MaxAPIKeyTTL)},
		{TypeAPIKey, 30 * 24 * time.Hour, base.Add(30 * 24 * time.Hour)},
	}
	for _, tt := range tests {
		tok, expiresAt, err := issuer.IssueSpecial(tt.kind, "u1", tt.ttl)
		if err != nil {
			t.Fatalf("IssueSpecial(%s, %v): %v", tt.kind, tt.ttl, err)
		}
		if !expiresAt.Equal(tt.wantExp) {
			t.Errorf("IssueSpecial(%s, %v): expiresAt = %v, want %v", tt.kind, tt.ttl, expiresAt, tt.wantExp)
		}
		v := newTestVerifier(t, nil, nil)
		v.WithClock(func() time.Time { return base })
		claims, err := v.Verify(context.Background(), tok, tt.kind)
		if err != nil {
			t.Fatalf("Verify(%s): %v", tt.kind, err)
		}
		if claims.TokenType != tt.kind || claims.SessionID != "" {
			t.Errorf("IssueSpecial(%s): tokenType=%q sessionID=%q", tt.kind, claims.TokenType, claims.SessionID)
		}
	}
}

func TestIssuer_IssueSpecialRejectsSessionKinds(t *testing.T) {
	issuer, err := NewTestIssuer()
	if err != nil {
		t.Fatalf("NewTestIssuer: %v", err)
	}
	for _, kind := range []Type{TypeAccess, TypeRefresh, Type("bogus")} {
		if _, _, err := issuer.IssueSpecial(kind, "u1", time.Hour); err == nil {
			t.Errorf("IssueSpecial(%s): want error", kind)
		}
	}
}

func TestIssuer_SymmetricKey(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	key, err := NewSymmetricKey(secret)
	if err != nil {
		t.Fatalf("NewSymmetricKey: %v", err)
	}
	issuer := NewIssuer(key, "test-issuer", "test-audience", 15*time.Minute, 24*time.Hour)
	tok, _, err := issuer.IssueAccess(Identity{UserID: "u1"}, "s1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	v := NewVerifier(key, "test-issuer", "test-audience", &fakeRevocations{}, &fakeSessions{})
	if _, err := v.Verify(context.Background(), tok, TypeAccess); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// A different secret rejects the token.
	other, err := NewSymmetricKey([]byte("ffffffffffffffffffffffffffffffff"))
	if err != nil {
		t.Fatalf("NewSymmetricKey: %v", err)
	}
	v = NewVerifier(other, "test-issuer", "test-audience", &fakeRevocations{}, &fakeSessions{})
	if _, err := v.Verify(context.Background(), tok, TypeAccess); err == nil {
		t.Fatal("Verify with wrong secret: want error")
	}

	// An RSA-signed token does not pass an HMAC verifier.
	rsaIssuer, err := NewTestIssuer()
	if err != nil {
		t.Fatalf("NewTestIssuer: %v", err)
	}
	rsaTok, _, err := rsaIssuer.IssueAccess(Identity{UserID: "u1"}, "s1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	v = NewVerifier(key, "test-issuer", "test-audience", &fakeRevocations{}, &fakeSessions{})
	if _, err := v.Verify(context.Background(), rsaTok, TypeAccess); err == nil {
		t.Fatal("Verify RSA token with HMAC key: want error")
	}
}

func TestIssuer_VerifyOnlyKeyCannotSign(t *testing.T) {
	_, pub := TestKeypairPEM()
	key, err := NewVerificationKey(pub)
	if err != nil {
		t.Fatalf("NewVerificationKey: %v", err)
	}
	issuer := NewIssuer(key, "test-issuer", "test-audience", 15*time.Minute, 24*time.Hour)
	if _, _, err := issuer.IssueAccess(Identity{UserID: "u1"}, "s1"); err != ErrInvalidKey {
		t.Errorf("IssueAccess with verify-only key: want ErrInvalidKey, got %v", err)
	}
}
