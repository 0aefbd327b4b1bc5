package token

import "testing"

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("some-token")
	if len(fp) != 64 {
		t.Errorf("Fingerprint: len = %d, want 64", len(fp))
	}
	if fp != Fingerprint("some-token") {
		t.Error("Fingerprint: not deterministic")
	}
	if fp == Fingerprint("other-token") {
		t.Error("Fingerprint: distinct inputs collided")
	}
}

func TestFingerprintEqual(t *testing.T) {
	fp := Fingerprint("some-token")
	if !FingerprintEqual("some-token", fp) {
		t.Error("FingerprintEqual: want match")
	}
	if FingerprintEqual("other-token", fp) {
		t.Error("FingerprintEqual: want mismatch")
	}
	if FingerprintEqual("some-token", "") {
		t.Error("FingerprintEqual: empty stored fingerprint matched")
	}
}
