// Package appdb はユーザーとシリーズを保存するアプリケーション用データベースです。
package appdb

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

var (
	// ErrNotFound は対象の行が存在しないことを表します。
	ErrNotFound = errors.New("not found")
	// ErrUserExists は同名のユーザーが既に存在することを表します。
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials はユーザー名またはパスワードの誤りを表します。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput は入力値の検証エラーを表します。
	ErrInvalidInput = errors.New("invalid input")
)

// DB はアプリケーションデータへのアクセスをまとめた構造体です。
type DB struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open は SQLite ファイルを開いてスキーマを最新化します。
func Open(ctx context.Context, path string) (*DB, error) {
	sqlDB, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := storage.ApplyMigrations(ctx, sqlDB, migrationFS, "migrations"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate app db: %w", err)
	}
	return &DB{sqlDB: sqlDB, now: time.Now}, nil
}

// Close は接続を閉じます。
func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

func unixMillisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}
