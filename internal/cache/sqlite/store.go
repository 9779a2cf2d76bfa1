package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/festivo/messaging-service/internal/cache"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
)`

// Store is a local sqlite-backed cache store shared process-wide.
type Store struct {
	connection *sqlx.DB
}

func New(path string) (*Store, error) {
	conn, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to prepare cache schema: %w", err)
	}

	return &Store{connection: conn}, nil
}

func (s *Store) Close() {
	_ = s.connection.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("payload").
		From("cache_entries").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	var payload []byte
	err = s.connection.GetContext(ctx, &payload, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return payload, nil
}

func (s *Store) Set(ctx context.Context, key string, payload []byte) error {
	query, args, err := sq.Insert("cache_entries").
		Columns("key", "payload", "updated_at").
		Values(key, payload, sq.Expr("strftime('%s', 'now')")).
		Suffix("ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = s.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	return nil
}

// Prune removes entries last written before the cutoff unix timestamp.
func (s *Store) Prune(ctx context.Context, cutoff int64) (int64, error) {
	query, args, err := sq.Delete("cache_entries").
		Where(sq.Lt{"updated_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sql query: %v", err)
	}

	res, err := s.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
