package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is a Store on a single authcore_kv table. The database clock
// decides expiry, so application hosts with skewed clocks agree on which
// keys are live. Run Migrate before first use.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres opens a connection pool for the given DSN and pings it.
// Caller must call Close when done.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing pool. The caller owns the pool's lifecycle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close closes the underlying pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT v FROM authcore_kv
		WHERE k = $1 AND (expires_at IS NULL OR expires_at > now())
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *Postgres) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO authcore_kv (k, v, expires_at)
		VALUES ($1, $2, CASE WHEN $3::bigint <= 0 THEN NULL ELSE now() + $3::bigint * interval '1 millisecond' END)
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, expires_at = EXCLUDED.expires_at
	`, key, value, ttl.Milliseconds())
	return err
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM authcore_kv WHERE k = $1`, key)
	return err
}

func (s *Postgres) Scan(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT k FROM authcore_kv
		WHERE k LIKE $1 || '%' AND (expires_at IS NULL OR expires_at > now())
		ORDER BY k
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DeleteExpired removes rows past their expiry and returns how many were
// dropped. Meant for a periodic maintenance job.
func (s *Postgres) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM authcore_kv WHERE expires_at IS NOT NULL AND expires_at <= now()
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
