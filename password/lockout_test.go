package password

import (
	"testing"
	"time"
)

func TestLockout_Threshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLockout(5, 15*time.Minute)
	l.nowF = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		l.RecordFailure("u@example.com")
	}
	if blocked, _ := l.Blocked("u@example.com"); blocked {
		t.Fatal("Blocked after 4 failures: want false")
	}
	l.RecordFailure("u@example.com")
	blocked, retry := l.Blocked("u@example.com")
	if !blocked {
		t.Fatal("Blocked after 5 failures: want true")
	}
	if retry != 15*time.Minute {
		t.Errorf("Blocked: retry = %v, want 15m", retry)
	}
}

func TestLockout_SlidingWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLockout(5, 15*time.Minute)
	l.nowF = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		l.RecordFailure("u@example.com")
	}

	// Still blocked just before the window closes.
	now = now.Add(15*time.Minute - time.Second)
	if blocked, _ := l.Blocked("u@example.com"); !blocked {
		t.Fatal("Blocked at 14m59s: want true")
	}

	// Unblocked once the failures age out.
	now = now.Add(time.Second)
	if blocked, _ := l.Blocked("u@example.com"); blocked {
		t.Fatal("Blocked at 15m: want false")
	}
}

func TestLockout_OldFailuresAgeOut(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := NewLockout(5, 15*time.Minute)
	l.nowF = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		l.RecordFailure("u@example.com")
	}
	now = base.Add(10 * time.Minute)
	l.RecordFailure("u@example.com")
	if blocked, _ := l.Blocked("u@example.com"); !blocked {
		t.Fatal("Blocked after fifth failure: want true")
	}

	// At base+15m the first four fall out of the window, one remains.
	now = base.Add(15 * time.Minute)
	if blocked, _ := l.Blocked("u@example.com"); blocked {
		t.Fatal("Blocked after old failures aged out: want false")
	}
}

func TestLockout_RetryAfterExtraFailures(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := NewLockout(5, 15*time.Minute)
	l.nowF = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		l.RecordFailure("u@example.com")
	}
	now = base.Add(time.Minute)
	l.RecordFailure("u@example.com")

	// Six failures; the count drops to four when the five at base age out.
	_, retry := l.Blocked("u@example.com")
	if retry != 14*time.Minute {
		t.Errorf("Blocked: retry = %v, want 14m", retry)
	}
}

func TestLockout_Reset(t *testing.T) {
	l := NewLockout(5, 15*time.Minute)
	for i := 0; i < 5; i++ {
		l.RecordFailure("u@example.com")
	}
	l.Reset("u@example.com")
	if blocked, _ := l.Blocked("u@example.com"); blocked {
		t.Fatal("Blocked after Reset: want false")
	}
}

func TestLockout_KeysIndependent(t *testing.T) {
	l := NewLockout(5, 15*time.Minute)
	for i := 0; i < 5; i++ {
		l.RecordFailure("a@example.com")
	}
	if blocked, _ := l.Blocked("b@example.com"); blocked {
		t.Fatal("Blocked for unrelated key: want false")
	}
}

func TestLockout_Sweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLockout(5, 15*time.Minute)
	l.nowF = func() time.Time { return now }

	l.RecordFailure("a@example.com")
	l.RecordFailure("b@example.com")
	now = now.Add(16 * time.Minute)
	l.RecordFailure("c@example.com")

	if got := l.Sweep(); got != 2 {
		t.Errorf("Sweep: removed %d, want 2", got)
	}
	if len(l.failures) != 1 {
		t.Errorf("Sweep: %d slots remain, want 1", len(l.failures))
	}
}

func TestLockout_Defaults(t *testing.T) {
	l := NewLockout(0, 0)
	if l.threshold != DefaultLockoutThreshold || l.window != DefaultLockoutWindow {
		t.Errorf("NewLockout defaults: threshold=%d window=%v", l.threshold, l.window)
	}
}
