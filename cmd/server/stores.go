package main

import (
	"context"
	"fmt"

	"github.com/yourusername/fun-declaration-game/internal/config"
	"github.com/yourusername/fun-declaration-game/internal/session"
)

// openSessionStore は SESSION_BACKEND に応じたセッションストアを開きます。
func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		store, err := session.OpenRedis(ctx, cfg.SessionRedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis session store: %w", err)
		}
		return store, nil
	default:
		store, err := session.OpenSQLite(ctx, cfg.SessionDBPath())
		if err != nil {
			return nil, fmt.Errorf("open sqlite session store: %w", err)
		}
		return store, nil
	}
}
