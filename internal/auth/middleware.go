package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireLogin はセッションにユーザーがいなければログイン画面へリダイレクトするミドルウェアです。
// 通過時は最終アクセス時刻を更新し、サーバー側の有効期限を延長します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		session := sessions.Default(c)
		session.Set(sessionKeyLastActive, m.now().Unix())
		if err := session.Save(); err != nil {
			m.logger().Printf("failed to refresh session for %s: %v", c.Request.URL.Path, err)
		}
		c.Next()
	}
}

// RequireAdmin は管理者以外を 403 で拒否します。RequireLogin の後に置きます。
func (m *Manager) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			m.deny(c, http.StatusForbidden, "Administrator access is required.")
			return
		}
		c.Next()
	}
}

// VerifyCSRF は X-CSRF-Token ヘッダーまたは _csrf フィールドを検証するミドルウェアです。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		expected := CSRFToken(c)
		if expected == "" {
			m.deny(c, http.StatusForbidden, "CSRF token is not set")
			return
		}

		received := c.GetHeader(csrfHeader)
		if received == "" {
			received = c.PostForm(csrfFormField)
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			m.deny(c, http.StatusForbidden, "CSRF token mismatch")
			return
		}

		c.Next()
	}
}

func (m *Manager) deny(c *gin.Context, status int, message string) {
	if m.Deny != nil {
		m.Deny(c, status, message)
	} else {
		c.String(status, message)
	}
	c.Abort()
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
