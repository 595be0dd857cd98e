package appdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Series はプレイヤーが宣言を行うゲームの回です。
type Series struct {
	ID          int64
	Title       string
	Description string
	CreatedBy   int64
	CreatedAt   time.Time
}

// CreateSeries はシリーズを作成します。
func (d *DB) CreateSeries(ctx context.Context, title, description string, createdBy int64) (*Series, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	description = strings.TrimSpace(description)

	var creator any
	if createdBy > 0 {
		creator = createdBy
	}

	now := d.now().UTC()
	res, err := d.sqlDB.ExecContext(ctx,
		`INSERT INTO series (title, description, created_by, created_at) VALUES (?, ?, ?, ?)`,
		title, description, creator, now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert series: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert series: %w", err)
	}
	return &Series{
		ID:          id,
		Title:       title,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   now.Truncate(time.Millisecond),
	}, nil
}

// ListSeries は新しい順にシリーズを返します。
func (d *DB) ListSeries(ctx context.Context) ([]Series, error) {
	rows, err := d.sqlDB.QueryContext(ctx,
		`SELECT id, title, description, COALESCE(created_by, 0), created_at
		 FROM series ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var list []Series
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// GetSeries は ID でシリーズを取得します。存在しない場合は ErrNotFound です。
func (d *DB) GetSeries(ctx context.Context, id int64) (*Series, error) {
	row := d.sqlDB.QueryRowContext(ctx,
		`SELECT id, title, description, COALESCE(created_by, 0), created_at FROM series WHERE id = ?`, id)
	s, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// CountSeries はシリーズ数を返します。
func (d *DB) CountSeries(ctx context.Context) (int, error) {
	var n int
	if err := d.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM series`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count series: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSeries(row scanner) (*Series, error) {
	var (
		s         Series
		createdAt int64
	)
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &s.CreatedBy, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan series: %w", err)
	}
	s.CreatedAt = unixMillisToTime(createdAt)
	return &s, nil
}
