package kv

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// newTestPostgres returns a migrated Postgres store against
// AUTHCORE_TEST_DATABASE_URL, or skips the test when the variable is unset.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("AUTHCORE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AUTHCORE_TEST_DATABASE_URL not set")
	}
	if err := Migrate(dsn, "up"); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	s, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgres_Conformance(t *testing.T) {
	s := newTestPostgres(t)
	prefix := "authcore-test/" + uuid.NewString() + "/"
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := s.Scan(ctx, prefix)
		for _, k := range keys {
			_ = s.Delete(ctx, k)
		}
	})
	testStoreConformance(t, s, prefix)
}

func TestPostgres_DeleteExpired(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	key := "authcore-test/expired/" + uuid.NewString()

	// Negative TTL writes an already-expired row, invisible to reads but
	// still on disk until DeleteExpired runs.
	if err := s.Set(ctx, key, []byte("v"), 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE authcore_kv SET expires_at = now() - interval '1 hour' WHERE k = $1`, key); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get expired: ok=%v err=%v", ok, err)
	}
	n, err := s.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n < 1 {
		t.Errorf("DeleteExpired: removed %d rows, want at least 1", n)
	}
}
