package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/appdb"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
)

// ログイン失敗の種別
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
)

// LoginError はログインを拒否した理由です。
type LoginError struct {
	Code              string
	RemainingAttempts int
	RetryAfter        time.Duration
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login rejected: %s", e.Code)
}

// Authenticator はユーザー名とパスワードを検証します。
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*appdb.User, error)
}

// Regenerator はログイン時にセッションIDを振り直します。
type Regenerator interface {
	Regenerate(r *http.Request, name string) error
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users       Authenticator
	regenerator Regenerator
	sessionName string

	lock     sync.Mutex
	attempts map[string]*attemptState
	now      func() time.Time

	// Deny は CSRF 検証や権限チェックに失敗したときの応答です。nil ならプレーンテキストを返します。
	Deny func(c *gin.Context, status int, message string)
	// Logger が nil のときは log.Default を使います。
	Logger *log.Logger
}

func (m *Manager) logger() *log.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return log.Default()
}

// NewManager は認証マネージャーを作成します。regenerator は nil でも構いません。
func NewManager(users Authenticator, regenerator Regenerator, sessionName string) *Manager {
	return &Manager{
		users:       users,
		regenerator: regenerator,
		sessionName: sessionName,
		attempts:    make(map[string]*attemptState),
		now:         time.Now,
	}
}

// SignIn は資格情報を検証し、成功すればセッションにユーザーを保存します。
// 拒否した場合は *LoginError を返します。
func (m *Manager) SignIn(c *gin.Context, username, password string) (*SessionUser, error) {
	ip := c.ClientIP()
	if retryAfter := m.checkLock(ip); retryAfter > 0 {
		return nil, &LoginError{Code: CodeTooManyAttempts, RetryAfter: retryAfter}
	}

	user, err := m.users.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, appdb.ErrInvalidCredentials) {
			remaining := m.recordFailure(ip)
			loginErr := &LoginError{Code: CodeInvalidCredentials, RemainingAttempts: remaining}
			if remaining == 0 {
				loginErr.RetryAfter = m.checkLock(ip)
			}
			return nil, loginErr
		}
		return nil, err
	}

	m.resetAttempts(ip)

	if m.regenerator != nil {
		if err := m.regenerator.Regenerate(c.Request, m.sessionName); err != nil {
			return nil, fmt.Errorf("regenerate session: %w", err)
		}
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}

	sessionUser := SessionUser{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}
	session := sessions.Default(c)
	now := m.now()
	session.Set(sessionKeyUser, sessionUser)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	session.Set(sessionKeyCSRF, token)

	if err := session.Save(); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &sessionUser, nil
}

// SignOut はセッションを破棄し、Cookie を失効させます。
func (m *Manager) SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	options := sessionOptionsForDeletion()
	session.Options(options)
	return session.Save()
}

func sessionOptionsForDeletion() sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) checkLock(ip string) time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()

	state, ok := m.attempts[ip]
	if !ok {
		return 0
	}
	now := m.now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return state.lockedUntil.Sub(now)
}

func (m *Manager) recordFailure(ip string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now()
	state, ok := m.attempts[ip]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		m.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
	}

	remaining := maxLoginAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (m *Manager) resetAttempts(ip string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.attempts, ip)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
