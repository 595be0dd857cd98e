// Package web はHTTPサーバーの組み立てとページのハンドラーを提供します。
package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/appdb"
	"github.com/yourusername/fun-declaration-game/internal/auth"
	"github.com/yourusername/fun-declaration-game/internal/config"
	"github.com/yourusername/fun-declaration-game/internal/session"
)

// 認証が必要なルートグループ
var gatedPrefixes = []string{"/admin", "/series", "/dashboard"}

// Deps はアプリケーションが依存するコンポーネントです。
type Deps struct {
	Config   *config.Config
	Sessions *session.CookieStore
	DB       *appdb.DB
	Logger   *log.Logger
}

type handlers struct {
	db     *appdb.DB
	auth   *auth.Manager
	logger *log.Logger
}

// New はミドルウェアとルートを固定の順序で組み立てた gin.Engine を返します。
func New(deps Deps) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, errors.New("config is nil")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is nil")
	}
	if deps.DB == nil {
		return nil, errors.New("db is nil")
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	cfg := deps.Config

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	router := gin.New()
	// 末尾スラッシュの 301 はミドルウェアを通らないため NoRoute に任せる
	router.RedirectTrailingSlash = false
	router.SetHTMLTemplate(tmpl)
	if err := router.SetTrustedProxies(trustedProxies(cfg)); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	manager := auth.NewManager(deps.DB, deps.Sessions, session.CookieName)
	manager.Deny = renderError
	manager.Logger = deps.Logger
	h := &handlers{db: deps.DB, auth: manager, logger: deps.Logger}

	// 静的ファイルを含む全レスポンスに適用する
	router.Use(gin.Logger(), gin.CustomRecovery(h.recover))
	router.Use(NoCache())
	router.Use(SecurityHeaders()...)
	router.Use(BodyLimit(cfg.BodyLimitBytes))

	public := router.Group("/public")
	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = origins
		corsConfig.AllowMethods = []string{http.MethodGet, http.MethodHead}
		public.Use(cors.New(corsConfig), func(c *gin.Context) {
			c.Header("Cross-Origin-Resource-Policy", "cross-origin")
			c.Next()
		})
	}
	public.Static("/", cfg.PublicDir)

	// ここから下はセッションが必要
	deps.Sessions.Options(session.DefaultOptions())
	router.Use(sessions.Sessions(session.CookieName, deps.Sessions))
	router.Use(WithLocals(SchemePolicy{TrustForwardedProto: cfg.TrustProxy}))

	router.GET("/", h.home)
	h.mountAuth(router.Group("/"))
	h.mountAdmin(router.Group("/admin", manager.RequireLogin(), manager.VerifyCSRF()))
	h.mountSeries(router.Group("/series", manager.RequireLogin()))
	h.mountDashboard(router.Group("/dashboard", manager.RequireLogin()))

	router.NoRoute(h.gateUnmatched, renderNotFound)

	return router, nil
}

func trustedProxies(cfg *config.Config) []string {
	if cfg.TrustProxy {
		return []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	}
	return nil
}

// home はログイン済みならダッシュボード、未ログインならログイン画面へ送ります。
func (h *handlers) home(c *gin.Context) {
	if LocalsFrom(c).CurrentUser != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.Redirect(http.StatusFound, auth.LoginPath)
}

// gateUnmatched は保護されたプレフィックス配下の未定義パスでも認証を先に要求します。
func (h *handlers) gateUnmatched(c *gin.Context) {
	if LocalsFrom(c).CurrentUser != nil {
		c.Next()
		return
	}
	path := c.Request.URL.Path
	for _, prefix := range gatedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			c.Redirect(http.StatusFound, auth.LoginPath)
			c.Abort()
			return
		}
	}
	c.Next()
}

func (h *handlers) recover(c *gin.Context, err any) {
	h.logger.Printf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	renderError(c, http.StatusInternalServerError, "")
	c.Abort()
}

func (h *handlers) internalError(c *gin.Context, err error) {
	h.logger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
}
