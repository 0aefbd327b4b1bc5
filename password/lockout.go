package password

import (
	"sync"
	"time"
)

// Lockout defaults: five failures inside fifteen minutes block the account.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutWindow    = 15 * time.Minute
)

// Lockout tracks failed authentication attempts per account key over a
// sliding window. Once the threshold is reached the key stays blocked until
// enough failures age out of the window; a correct password does not unblock
// it early. A successful authentication while unblocked clears the slot.
type Lockout struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	failures  map[string][]time.Time
	nowF      func() time.Time
}

// NewLockout returns a Lockout blocking after threshold failures within
// window. Zero values select the defaults.
func NewLockout(threshold int, window time.Duration) *Lockout {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}
	return &Lockout{
		threshold: threshold,
		window:    window,
		failures:  make(map[string][]time.Time),
		nowF:      time.Now,
	}
}

// WithClock replaces the time source, for tests. Returns l for chaining.
func (l *Lockout) WithClock(now func() time.Time) *Lockout {
	l.nowF = now
	return l
}

// Blocked reports whether key is currently locked out, and if so for how
// much longer assuming no further failures.
func (l *Lockout) Blocked(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	recent := l.pruneLocked(key)
	if len(recent) < l.threshold {
		return false, 0
	}
	// Blocked until enough failures age out to drop the count below the
	// threshold.
	lifts := recent[len(recent)-l.threshold].Add(l.window)
	retry := lifts.Sub(l.nowF())
	if retry < 0 {
		retry = 0
	}
	return true, retry
}

// RecordFailure notes one failed attempt for key.
func (l *Lockout) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	recent := l.pruneLocked(key)
	l.failures[key] = append(recent, l.nowF())
}

// Reset clears all recorded failures for key.
func (l *Lockout) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
}

// Sweep drops slots whose failures have all aged out and returns how many
// were removed.
func (l *Lockout) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key := range l.failures {
		if len(l.pruneLocked(key)) == 0 {
			delete(l.failures, key)
			removed++
		}
	}
	return removed
}

// pruneLocked drops failures older than the window and returns what remains.
// Caller holds l.mu.
func (l *Lockout) pruneLocked(key string) []time.Time {
	cut := l.nowF().Add(-l.window)
	all := l.failures[key]
	i := 0
	for i < len(all) && !all[i].After(cut) {
		i++
	}
	recent := all[i:]
	if i > 0 {
		if len(recent) == 0 {
			delete(l.failures, key)
			return nil
		}
		l.failures[key] = recent
	}
	return recent
}
