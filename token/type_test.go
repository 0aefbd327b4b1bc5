package token

import "testing"

func TestParseType(t *testing.T) {
	for _, s := range []string{"access", "refresh", "reset", "verify", "api_key"} {
		got, err := ParseType(s)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseType(%q) = %q", s, got)
		}
	}
	for _, s := range []string{"", "Access", "bearer", "apikey"} {
		if _, err := ParseType(s); err == nil {
			t.Errorf("ParseType(%q): want error", s)
		}
	}
}
