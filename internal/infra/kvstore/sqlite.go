package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_items (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// SQLite хранилище поверх файла SQLite (драйвер modernc, без CGO)
type SQLite struct {
	db      *sql.DB
	timeout time.Duration
	closed  atomic.Bool
}

// OpenSQLite открывает (или создает) файл БД и применяет схему
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrOpen)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("%w: create dir %s: %v", ErrOpen, dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite %q: %v", ErrOpen, path, err)
	}

	// один писатель
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: sqlite schema: %v", ErrOpen, err)
	}

	return s, nil
}

// GetItem возвращает значение ключа и признак его наличия
func (s *SQLite) GetItem(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap(ErrRead, "GetItem", key, err)
	}

	return value, true, nil
}

// SetItem записывает значение ключа (upsert)
func (s *SQLite) SetItem(key string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_items (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return s.wrap(ErrWrite, "SetItem", key, err)
	}
	return nil
}

// RemoveItem удаляет ключ
func (s *SQLite) RemoveItem(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_items WHERE key = ?`, key); err != nil {
		return s.wrap(ErrWrite, "RemoveItem", key, err)
	}
	return nil
}

// Close закрывает соединение с БД
func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) wrap(sentinel error, op, key string, err error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return fmt.Errorf("%w: %s %q: %v", sentinel, op, key, err)
}
