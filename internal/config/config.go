// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultSessionSecret は開発用のセッション署名鍵です。本番では必ず上書きしてください。
const DefaultSessionSecret = "dev_secret_change_me"

// セッションストアのバックエンド種別
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string `env:"PORT" envDefault:"3000"`     // HTTPサーバーのポート番号
	GinMode string `env:"GIN_MODE" envDefault:"debug"` // Ginの実行モード (debug, release, test)

	// セッション設定
	SessionSecret          string        `env:"SESSION_SECRET" envDefault:"dev_secret_change_me"`
	SessionBackend         string        `env:"SESSION_BACKEND" envDefault:"sqlite"`
	SessionRedisURL        string        `env:"SESSION_REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`
	SessionTTL             time.Duration `env:"SESSION_TTL" envDefault:"24h"`               // サーバー側レコードのアイドル期限
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"15m"` // 期限切れセッションの掃除間隔
	ResetSessionsOnStart   string        `env:"RESET_SESSIONS_ON_START" envDefault:"true"` // "true" のとき起動時に全セッションを破棄

	// ファイル配置（相対パスは AppDir 基準）
	AppDir    string `env:"APP_DIR"`                        // 未指定なら作業ディレクトリ
	DataDir   string `env:"DATA_DIR" envDefault:"data"`     // SQLiteファイルの保存先
	PublicDir string `env:"PUBLIC_DIR" envDefault:"public"` // /public 配下で配信する静的ファイル

	// HTTP設定
	TrustProxy         bool   `env:"TRUST_PROXY" envDefault:"false"` // X-Forwarded-Proto を信頼するか
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`           // /public 用のCORS許可オリジン（カンマ区切り）
	BodyLimitBytes     int64  `env:"BODY_LIMIT_BYTES" envDefault:"2097152"`

	// 初期管理者
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load は環境変数から設定を読み込みます。
// .env / .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.resolvePaths()

	// 必須設定のバリデーション
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// godotenv.Load は既存の環境変数を上書きしないため、先に読んだファイルが優先されます。
func loadEnvFile() {
	files := []string{".env.local", ".env"}
	if loadExisting(files) {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	paths := make([]string, 0, len(files))
	for _, name := range files {
		paths = append(paths, filepath.Join(parent, name))
	}
	loadExisting(paths)
}

func loadExisting(paths []string) bool {
	loaded := false
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			loaded = true
		}
	}
	return loaded
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port: %q", c.Port)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}

	switch c.SessionBackend {
	case SessionBackendSQLite:
	case SessionBackendRedis:
		if c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q: %q", SessionBackendSQLite, SessionBackendRedis, c.SessionBackend)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SessionCleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}
	if c.BodyLimitBytes <= 0 {
		return fmt.Errorf("BODY_LIMIT_BYTES must be positive")
	}
	if strings.TrimSpace(c.AdminUsername) == "" {
		return fmt.Errorf("ADMIN_USERNAME must not be empty")
	}

	// ローカル開発では既定の署名鍵を許容する
	// 本番環境では厳格にチェックする
	if c.GinMode == "release" && c.SessionSecret == DefaultSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be overridden in release mode")
	}

	return nil
}

// resolvePaths は DataDir と PublicDir の相対パスを AppDir に結合します。
func (c *Config) resolvePaths() {
	base := strings.TrimSpace(c.AppDir)
	if base == "" {
		return
	}
	for _, p := range []*string{&c.DataDir, &c.PublicDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// ResetSessions は起動時にセッションを全削除するかどうかを返します。
func (c *Config) ResetSessions() bool {
	value := c.ResetSessionsOnStart
	if value == "" {
		value = "true"
	}
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// SessionDBPath はセッション用SQLiteファイルのパスです。
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "sessions.sqlite")
}

// AppDBPath はアプリケーション用SQLiteファイルのパスです。
func (c *Config) AppDBPath() string {
	return filepath.Join(c.DataDir, "app.sqlite")
}

// Addr は待ち受けアドレスを返します。
func (c *Config) Addr() string {
	return ":" + c.Port
}

// AllowedOrigins は CORS_ALLOWED_ORIGINS を配列に変換します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
