// Package auth は認証・認可機能を提供します。
package auth

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionKeyUser       = "user"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
	sessionKeyCSRF       = "csrf_token"

	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "_csrf"
)

// LoginPath は未ログイン時のリダイレクト先です。
const LoginPath = "/login"

// SessionUser はセッションに保存するログインユーザーです。
type SessionUser struct {
	ID       int64
	Username string
	IsAdmin  bool
}

func init() {
	// セッション値は gob で保存されるため、具象型を登録しておく
	gob.Register(SessionUser{})
}

// CurrentUser はセッション中のユーザーを返します。未ログインなら nil です。
func CurrentUser(c *gin.Context) *SessionUser {
	user, ok := sessions.Default(c).Get(sessionKeyUser).(SessionUser)
	if !ok || user.Username == "" {
		return nil
	}
	return &user
}

// CSRFToken はセッションに紐づく CSRF トークンを返します。
func CSRFToken(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(sessionKeyCSRF).(string)
	return token
}

// CSRFFormField はフォームに埋め込む hidden フィールド名です。
func CSRFFormField() string {
	return csrfFormField
}
