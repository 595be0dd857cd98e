package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/fun-declaration-game/internal/storage"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteStore は sessions テーブルにセッションを保存します。
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite は path の SQLite ファイルを開き、sessions テーブルを用意します。
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := storage.ApplyMigrations(ctx, db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get はセッションを取得します。
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	var (
		data    []byte
		expired int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT sess, expired FROM sessions WHERE sid = ? AND expired > ?`,
		id, s.now().UnixMilli(),
	).Scan(&data, &expired)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &Record{Data: data, Expires: time.UnixMilli(expired).UTC()}, nil
}

// Set はセッションを保存します（存在する場合は上書き）。
func (s *SQLiteStore) Set(ctx context.Context, id string, record *Record) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if record == nil {
		return fmt.Errorf("session record is nil")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (sid, expired, sess) VALUES (?, ?, ?)
		 ON CONFLICT(sid) DO UPDATE SET expired = excluded.expired, sess = excluded.sess`,
		id, record.Expires.UnixMilli(), record.Data,
	)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Destroy はセッションを削除します。存在しなくてもエラーにはなりません。
func (s *SQLiteStore) Destroy(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Clear は全セッションを削除します。
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れのセッションを削除し、削除件数を返します。
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expired <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// Close は接続を閉じます。
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var (
	_ Store   = (*SQLiteStore)(nil)
	_ Expirer = (*SQLiteStore)(nil)
)
