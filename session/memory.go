package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the default in-process Store. Sessions live in an arena map
// keyed by session ID with a per-user index on the side, so per-user
// operations never walk the whole arena. A single mutex linearizes all
// mutations.
type MemoryStore struct {
	mu         sync.RWMutex
	maxPerUser int
	arena      map[string]*Session
	byUser     map[string]map[string]struct{}
	nowF       func() time.Time
}

// NewMemoryStore returns an empty store capping each user at maxPerUser live
// sessions. Zero or less selects DefaultMaxPerUser.
func NewMemoryStore(maxPerUser int) *MemoryStore {
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxPerUser
	}
	return &MemoryStore{
		maxPerUser: maxPerUser,
		arena:      make(map[string]*Session),
		byUser:     make(map[string]map[string]struct{}),
		nowF:       time.Now,
	}
}

// WithClock overrides the store's time source. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.nowF = now
	return s
}

func (s *MemoryStore) Create(ctx context.Context, sess *Session) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []*Session
	live := s.liveLocked(sess.UserID)
	for len(live) >= s.maxPerUser {
		oldest := live[0]
		s.removeLocked(oldest.ID)
		evicted = append(evicted, oldest)
		live = live[1:]
	}

	cp := clone(sess)
	s.arena[cp.ID] = cp
	ids := s.byUser[cp.UserID]
	if ids == nil {
		ids = make(map[string]struct{})
		s.byUser[cp.UserID] = ids
	}
	ids[cp.ID] = struct{}{}
	return evicted, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.arena[id]
	if !ok {
		return nil, nil
	}
	return clone(sess), nil
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveLocked(userID), nil
}

func (s *MemoryStore) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.arena[id]; ok {
		sess.LastUsedAt = at
	}
	return nil
}

func (s *MemoryStore) ReplaceFingerprint(ctx context.Context, id, oldFP, newFP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.arena[id]
	if !ok || !sess.Live(s.nowF()) {
		return ErrSessionNotLive
	}
	if sess.RefreshFingerprint != oldFP {
		return ErrFingerprintMismatch
	}
	sess.RefreshFingerprint = newFP
	return nil
}

func (s *MemoryStore) Invalidate(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.arena[id]
	if !ok {
		return nil, nil
	}
	s.removeLocked(id)
	return sess, nil
}

func (s *MemoryStore) InvalidateAll(ctx context.Context, userID string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*Session
	for id := range s.byUser[userID] {
		sess := s.arena[id]
		s.removeLocked(id)
		removed = append(removed, sess)
	}
	sortByAge(removed)
	return removed, nil
}

func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.arena {
		if !sess.ExpiresAt.After(now) {
			s.removeLocked(id)
			removed++
		}
	}
	return removed, nil
}

// liveLocked returns clones of the user's live sessions, oldest first.
// Caller holds s.mu.
func (s *MemoryStore) liveLocked(userID string) []*Session {
	now := s.nowF()
	var live []*Session
	for id := range s.byUser[userID] {
		if sess := s.arena[id]; sess != nil && sess.Live(now) {
			live = append(live, clone(sess))
		}
	}
	sortByAge(live)
	return live
}

// removeLocked drops the session from the arena and the user index. Caller
// holds s.mu.
func (s *MemoryStore) removeLocked(id string) {
	sess, ok := s.arena[id]
	if !ok {
		return
	}
	delete(s.arena, id)
	if ids := s.byUser[sess.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, sess.UserID)
		}
	}
}

func sortByAge(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
