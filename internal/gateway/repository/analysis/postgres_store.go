package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

// OpenPostgres connects through the pgx stdlib driver and pings the server.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS saved_analyses (
    id TEXT PRIMARY KEY,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    size BIGINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, id string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	id, err := NormalizeID(id)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO saved_analyses (id, content, size, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id)
DO UPDATE SET content=EXCLUDED.content, size=EXCLUDED.size, updated_at=EXCLUDED.updated_at
`, id, content, int64(len(content)), time.Now())
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM saved_analyses WHERE id=$1`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return content, err
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM saved_analyses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
