package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"authcore/kv"
)

const (
	recordPrefix = "s/"
	indexPrefix  = "u/"
)

// KVStore keeps sessions in a kv.Store so they survive the process or are
// shared between replicas. Records live under "s/<id>" with a per-user index
// under "u/<user>/<id>"; both carry the session's remaining lifetime as
// their TTL, so the backend reaps expired sessions on its own.
//
// Mutations are serialized inside one process. Deployments with several
// writers should route a given user's refresh traffic to one writer;
// otherwise two processes rotating the same token at once can both succeed.
type KVStore struct {
	mu         sync.Mutex
	kv         kv.Store
	maxPerUser int
	nowF       func() time.Time
}

// NewKVStore returns a Store on top of store, capping each user at
// maxPerUser live sessions. Zero or less selects DefaultMaxPerUser.
func NewKVStore(store kv.Store, maxPerUser int) *KVStore {
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxPerUser
	}
	return &KVStore{
		kv:         store,
		maxPerUser: maxPerUser,
		nowF:       time.Now,
	}
}

// WithClock overrides the store's time source. Intended for tests.
func (s *KVStore) WithClock(now func() time.Time) *KVStore {
	s.nowF = now
	return s
}

func recordKey(id string) string { return recordPrefix + id }

func indexKey(userID, id string) string { return indexPrefix + userID + "/" + id }

func (s *KVStore) Create(ctx context.Context, sess *Session) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, err := s.liveSessions(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	var evicted []*Session
	for len(live) >= s.maxPerUser {
		oldest := live[0]
		if err := s.remove(ctx, oldest); err != nil {
			return nil, err
		}
		evicted = append(evicted, oldest)
		live = live[1:]
	}
	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}
	return evicted, nil
}

func (s *KVStore) Get(ctx context.Context, id string) (*Session, error) {
	return s.load(ctx, id)
}

func (s *KVStore) List(ctx context.Context, userID string) ([]*Session, error) {
	return s.liveSessions(ctx, userID)
}

func (s *KVStore) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.load(ctx, id)
	if err != nil || sess == nil {
		return err
	}
	sess.LastUsedAt = at
	return s.put(ctx, sess)
}

func (s *KVStore) ReplaceFingerprint(ctx context.Context, id, oldFP, newFP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil || !sess.Live(s.nowF()) {
		return ErrSessionNotLive
	}
	if sess.RefreshFingerprint != oldFP {
		return ErrFingerprintMismatch
	}
	sess.RefreshFingerprint = newFP
	return s.put(ctx, sess)
}

func (s *KVStore) Invalidate(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.load(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	if err := s.remove(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *KVStore) InvalidateAll(ctx context.Context, userID string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.kv.Scan(ctx, indexPrefix+userID+"/")
	if err != nil {
		return nil, err
	}
	var removed []*Session
	for _, key := range keys {
		sess, err := s.load(ctx, sessionIDFromIndexKey(key))
		if err != nil {
			return removed, err
		}
		if sess == nil {
			// Record already reaped by TTL; drop the stale index entry.
			_ = s.kv.Delete(ctx, key)
			continue
		}
		if err := s.remove(ctx, sess); err != nil {
			return removed, err
		}
		removed = append(removed, sess)
	}
	sortByAge(removed)
	return removed, nil
}

func (s *KVStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0

	recKeys, err := s.kv.Scan(ctx, recordPrefix)
	if err != nil {
		return 0, err
	}
	for _, key := range recKeys {
		sess, err := s.load(ctx, strings.TrimPrefix(key, recordPrefix))
		if err != nil {
			return removed, err
		}
		if sess != nil && !sess.ExpiresAt.After(now) {
			if err := s.remove(ctx, sess); err != nil {
				return removed, err
			}
			removed++
		}
	}

	// Index entries whose record the backend already reaped.
	idxKeys, err := s.kv.Scan(ctx, indexPrefix)
	if err != nil {
		return removed, err
	}
	for _, key := range idxKeys {
		sess, err := s.load(ctx, sessionIDFromIndexKey(key))
		if err != nil {
			return removed, err
		}
		if sess == nil {
			_ = s.kv.Delete(ctx, key)
		}
	}
	return removed, nil
}

func (s *KVStore) liveSessions(ctx context.Context, userID string) ([]*Session, error) {
	keys, err := s.kv.Scan(ctx, indexPrefix+userID+"/")
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	var live []*Session
	for _, key := range keys {
		sess, err := s.load(ctx, sessionIDFromIndexKey(key))
		if err != nil {
			return nil, err
		}
		if sess != nil && sess.Live(now) {
			live = append(live, sess)
		}
	}
	sortByAge(live)
	return live, nil
}

func (s *KVStore) load(ctx context.Context, id string) (*Session, error) {
	b, ok, err := s.kv.Get(ctx, recordKey(id))
	if err != nil || !ok {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *KVStore) put(ctx context.Context, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	ttl := sess.ExpiresAt.Sub(s.nowF())
	if ttl <= 0 {
		// Born or rewritten past expiry; keep it just long enough for the
		// backend to reap it.
		ttl = time.Millisecond
	}
	if err := s.kv.Set(ctx, recordKey(sess.ID), b, ttl); err != nil {
		return err
	}
	return s.kv.Set(ctx, indexKey(sess.UserID, sess.ID), nil, ttl)
}

func (s *KVStore) remove(ctx context.Context, sess *Session) error {
	if err := s.kv.Delete(ctx, recordKey(sess.ID)); err != nil {
		return err
	}
	return s.kv.Delete(ctx, indexKey(sess.UserID, sess.ID))
}

func sessionIDFromIndexKey(key string) string {
	return key[strings.LastIndex(key, "/")+1:]
}
