// Package session はサーバー側セッションの永続化と、gin-contrib/sessions 向けのストアを提供します。
//
// Cookie にはセッションIDの署名付き値だけを載せ、値そのものは Store に保存します。
package session

import (
	"context"
	"time"
)

// CookieName はセッションCookieの名前です。
const CookieName = "fdg.sid"

// Record は Store に保存されるセッションの実体です。
type Record struct {
	Data    []byte    `json:"data"`
	Expires time.Time `json:"expires"`
}

// Expired は now 時点で期限切れかどうかを返します。
func (r *Record) Expired(now time.Time) bool {
	return r == nil || !now.Before(r.Expires)
}

// Store はセッションレコードの保存先です。
// Get は存在しない・期限切れのレコードに対して (nil, nil) を返します。
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Set(ctx context.Context, id string, record *Record) error
	Destroy(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Close() error
}

// Expirer は期限切れレコードを明示的に掃除する必要があるストアが実装します。
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}
