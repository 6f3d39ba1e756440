package mirror

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const createTable = `
CREATE TABLE IF NOT EXISTS mirror_collection (
	name       TEXT PRIMARY KEY,
	records    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type pgStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to dsn, waits for the database and creates the mirror table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*pgStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening mirror database")
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating mirror table")
	}
	return &pgStore{db: db}, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 20
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "mirror DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "mirror DB ping timeout")
}

func (s *pgStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT records FROM mirror_collection WHERE name = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *pgStore) Set(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mirror_collection (name, records, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET records = EXCLUDED.records, updated_at = EXCLUDED.updated_at`,
		key, string(data),
	)
	return err
}

func (s *pgStore) Close() error { return s.db.Close() }
