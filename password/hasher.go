package password

import (
	"context"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt cost for interactive login.
const DefaultCost = 12

// Hasher hashes and verifies passwords with bcrypt. A weighted semaphore
// bounds how many hash computations run at once so a burst of logins cannot
// starve the rest of the process. Callers must not log or persist plaintext
// passwords.
type Hasher struct {
	cost      int
	sem       *semaphore.Weighted
	dummyHash string
}

// NewHasher returns a Hasher with the given bcrypt cost (4 to 31, 0 selects
// DefaultCost) running at most maxConcurrent hash computations at a time
// (0 selects GOMAXPROCS).
func NewHasher(cost, maxConcurrent int) *Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	// The dummy hash backs CompareDummy. Generating it at the configured
	// cost keeps dummy comparisons as slow as real ones.
	dummy, err := bcrypt.GenerateFromPassword([]byte("authcore dummy credential"), cost)
	if err != nil {
		dummy = nil
	}
	return &Hasher{
		cost:      cost,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		dummyHash: string(dummy),
	}
}

// Cost returns the configured bcrypt cost.
func (h *Hasher) Cost() int { return h.cost }

// Hash produces a bcrypt hash of password with a per-call random salt.
// Blocks while the concurrency gate is full; returns ctx.Err if the caller
// gives up waiting.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil on match
// and bcrypt.ErrMismatchedHashAndPassword on mismatch.
func (h *Hasher) Compare(ctx context.Context, hash, password string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// CompareDummy burns a comparison against a throwaway hash. Login calls it
// when the account does not exist so that unknown-account and wrong-password
// attempts take the same time.
func (h *Hasher) CompareDummy(ctx context.Context, password string) {
	if h.dummyHash == "" {
		return
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer h.sem.Release(1)
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummyHash), []byte(password))
}
