package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	DB *sqlx.DB
}

type kvEntry struct {
	ID    string `db:"id"`
	Value []byte `db:"value"`
}

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{
		DB: db,
	}, nil
}

func (s *SqliteStore) ApplyMigrations(migrations embed.FS, dir string) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	if err := goose.Up(s.DB.DB, dir); err != nil {
		return err
	}

	return nil
}

func (s *SqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.DB.GetContext(ctx, &value, "SELECT value FROM kv WHERE id = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *SqliteStore) GetMany(ctx context.Context, keys ...string) (map[string][]byte, error) {
	values := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return values, nil
	}
	query, args, err := sqlx.In("SELECT id, value FROM kv WHERE id IN (?)", keys)
	if err != nil {
		return nil, err
	}
	var entries []kvEntry
	if err := s.DB.SelectContext(ctx, &entries, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to read %d keys: %w", len(keys), err)
	}
	for _, e := range entries {
		values[e.ID] = e.Value
	}
	return values, nil
}

func (s *SqliteStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO kv (id, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
	value = excluded.value,
	updated_at = excluded.updated_at
	`
	if _, err := s.DB.ExecContext(ctx, query, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SqliteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM kv WHERE id = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
