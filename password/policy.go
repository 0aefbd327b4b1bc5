package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Violation is a stable identifier for one failed policy rule.
type Violation string

const (
	TooShort       Violation = "too_short"
	TooLong        Violation = "too_long"
	MissingLower   Violation = "missing_lower"
	MissingUpper   Violation = "missing_upper"
	MissingDigit   Violation = "missing_digit"
	MissingSpecial Violation = "missing_special"
	RepeatedRun    Violation = "repeated_run"
	SequentialRun  Violation = "sequential_run"
)

// Message returns a short human-readable description of the rule.
func (v Violation) Message() string {
	switch v {
	case TooShort:
		return "password is too short"
	case TooLong:
		return "password is too long"
	case MissingLower:
		return "password needs a lowercase letter"
	case MissingUpper:
		return "password needs an uppercase letter"
	case MissingDigit:
		return "password needs a digit"
	case MissingSpecial:
		return "password needs a special character"
	case RepeatedRun:
		return "password repeats the same character three or more times in a row"
	case SequentialRun:
		return "password contains a sequential run such as abc or 321"
	default:
		return string(v)
	}
}

// WeakPasswordError reports the policy rules a rejected password violated.
type WeakPasswordError struct {
	Violations []Violation
}

func (e *WeakPasswordError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message()
	}
	return "weak password: " + strings.Join(msgs, "; ")
}

// Policy is a pure password strength check. Lengths count runes, not bytes.
type Policy struct {
	MinLength      int
	MaxLength      int
	RequireLower   bool
	RequireUpper   bool
	RequireDigit   bool
	RequireSpecial bool
	// MaxRepeatRun is the longest allowed run of one rune. Zero keeps the
	// default of 2, so "aaa" is rejected.
	MaxRepeatRun int
	// RejectSequences rejects three-rune ascending or descending runs.
	RejectSequences bool
}

// DefaultPolicy returns the standard interactive-login policy: 8 to 128
// runes, all four character classes, no aaa-style or abc-style runs.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:       8,
		MaxLength:       128,
		RequireLower:    true,
		RequireUpper:    true,
		RequireDigit:    true,
		RequireSpecial:  true,
		MaxRepeatRun:    2,
		RejectSequences: true,
	}
}

// Validate checks password against the policy and returns every violated
// rule. A nil result means the password passes. Validate never logs or
// retains the password.
func (p Policy) Validate(password string) []Violation {
	var out []Violation

	n := utf8.RuneCountInString(password)
	if p.MinLength > 0 && n < p.MinLength {
		out = append(out, TooShort)
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		out = append(out, TooLong)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if p.RequireLower && !hasLower {
		out = append(out, MissingLower)
	}
	if p.RequireUpper && !hasUpper {
		out = append(out, MissingUpper)
	}
	if p.RequireDigit && !hasDigit {
		out = append(out, MissingDigit)
	}
	if p.RequireSpecial && !hasSpecial {
		out = append(out, MissingSpecial)
	}

	maxRun := p.MaxRepeatRun
	if maxRun <= 0 {
		maxRun = 2
	}
	runes := []rune(password)
	if longestRepeat(runes) > maxRun {
		out = append(out, RepeatedRun)
	}
	if p.RejectSequences && hasSequentialRun(runes) {
		out = append(out, SequentialRun)
	}
	return out
}

func longestRepeat(runes []rune) int {
	longest, run := 0, 0
	var prev rune
	for i, r := range runes {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = r
	}
	return longest
}

// hasSequentialRun reports whether three consecutive runes step up or down
// by exactly one code point, as in "abc", "CBA", or "321".
func hasSequentialRun(runes []rune) bool {
	for i := 0; i+2 < len(runes); i++ {
		if runes[i+1] == runes[i]+1 && runes[i+2] == runes[i]+2 {
			return true
		}
		if runes[i+1] == runes[i]-1 && runes[i+2] == runes[i]-2 {
			return true
		}
	}
	return false
}
