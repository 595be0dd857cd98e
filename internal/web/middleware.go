package web

import (
	"net/http"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/auth"
)

const contentSecurityPolicy = "default-src 'self'; base-uri 'self'; font-src 'self' https: data:; " +
	"form-action 'self'; frame-ancestors 'self'; img-src 'self' data:; object-src 'none'; " +
	"script-src 'self'; script-src-attr 'none'; style-src 'self' https: 'unsafe-inline'"

// NoCache は全レスポンスでブラウザ・プロキシのキャッシュを禁止します。
// 再起動後に古いページが表示されるのを防ぎます。
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Set("Surrogate-Control", "no-store")
		c.Next()
	}
}

// SecurityHeaders は基本的なセキュリティヘッダーを付与します。
func SecurityHeaders() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		secure.New(secure.Config{
			CustomFrameOptionsValue: "SAMEORIGIN",
			ContentTypeNosniff:      true,
			ContentSecurityPolicy:   contentSecurityPolicy,
			// no-referrer だと「戻る」リンク用の Referer が届かない
			ReferrerPolicy:       "same-origin",
			STSSeconds:           15552000,
			STSIncludeSubdomains: true,
		}),
		func(c *gin.Context) {
			h := c.Writer.Header()
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			h.Set("Origin-Agent-Cluster", "?1")
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("X-Download-Options", "noopen")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			h.Set("X-XSS-Protection", "0")
			c.Next()
		},
	}
}

// BodyLimit はリクエストボディの大きさを制限します。
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

const localsKey = "web.locals"

// Locals はテンプレートへ渡すリクエスト単位の共通値です。
type Locals struct {
	CurrentUser *auth.SessionUser
	PrevURL     string
	CSRFToken   string
}

// WithLocals はセッション復元後に Locals を組み立てます。
func WithLocals(policy SchemePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(localsKey, &Locals{
			CurrentUser: auth.CurrentUser(c),
			PrevURL:     PrevURL(c.Request, policy),
			CSRFToken:   auth.CSRFToken(c),
		})
		c.Next()
	}
}

// LocalsFrom は WithLocals が保存した値を返します。未設定でも nil にはなりません。
func LocalsFrom(c *gin.Context) *Locals {
	if v, ok := c.Get(localsKey); ok {
		if locals, ok := v.(*Locals); ok {
			return locals
		}
	}
	return &Locals{}
}
