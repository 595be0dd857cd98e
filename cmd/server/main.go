// Package main は Fun Declaration Game サーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/appdb"
	"github.com/yourusername/fun-declaration-game/internal/config"
	"github.com/yourusername/fun-declaration-game/internal/session"
	"github.com/yourusername/fun-declaration-game/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Default()); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// 起動前に残っているセッションを破棄する（失敗しても起動は続ける）
	resetSessions(ctx, cfg, store, logger)

	db, err := appdb.Open(ctx, cfg.AppDBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		return err
	}

	if expirer, ok := store.(session.Expirer); ok {
		session.StartReaper(ctx, expirer, cfg.SessionCleanupInterval, logger)
	}

	router, err := web.New(web.Deps{
		Config:   cfg,
		Sessions: session.NewCookieStore(store, cfg.SessionTTL, []byte(cfg.SessionSecret)),
		DB:       db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Fun Declaration Game running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Printf("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// resetSessions は RESET_SESSIONS_ON_START が "true" のとき全セッションを削除します。
func resetSessions(ctx context.Context, cfg *config.Config, store session.Store, logger *log.Logger) {
	if !cfg.ResetSessions() {
		return
	}
	if err := store.Clear(ctx); err != nil {
		logger.Printf("Failed to clear sessions on start: %v", err)
		return
	}
	logger.Printf("All sessions cleared on server start (RESET_SESSIONS_ON_START=true).")
}
