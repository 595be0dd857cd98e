package appdb

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// User はログイン可能な利用者です。
type User struct {
	ID        int64
	Username  string
	IsAdmin   bool
	CreatedAt time.Time
}

// CreateUser はユーザーを作成します。パスワードは bcrypt でハッシュ化して保存します。
func (d *DB) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := d.now().UTC()
	res, err := d.sqlDB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?)`,
		username, string(hash), boolToInt(isAdmin), now.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &User{ID: id, Username: username, IsAdmin: isAdmin, CreatedAt: now.Truncate(time.Millisecond)}, nil
}

// Authenticate はユーザー名とパスワードを検証します。
func (d *DB) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var (
		user      User
		hash      string
		isAdmin   int64
		createdAt int64
	)
	err := d.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = ?`,
		strings.TrimSpace(username),
	).Scan(&user.ID, &user.Username, &hash, &isAdmin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	user.IsAdmin = isAdmin != 0
	user.CreatedAt = unixMillisToTime(createdAt)
	return &user, nil
}

// ListUsers はユーザーを作成順に返します。
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.sqlDB.QueryContext(ctx,
		`SELECT id, username, is_admin, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			user      User
			isAdmin   int64
			createdAt int64
		)
		if err := rows.Scan(&user.ID, &user.Username, &isAdmin, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.IsAdmin = isAdmin != 0
		user.CreatedAt = unixMillisToTime(createdAt)
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers はユーザー数を返します。
func (d *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := d.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Bootstrap はユーザーが1人もいない場合に管理者を作成します。
// password が空のときはランダムなパスワードを生成し、一度だけログに出力します。
func (d *DB) Bootstrap(ctx context.Context, username, password string, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	n, err := d.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	generated := false
	if password == "" {
		password, err = randomPassword()
		if err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		generated = true
	}

	if _, err := d.CreateUser(ctx, username, password, true); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if generated {
		logger.Printf("Created admin user %q with generated password: %s", username, password)
	} else {
		logger.Printf("Created admin user %q", username)
	}
	return nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
