package session

import (
	"context"
	"log"
	"time"
)

// StartReaper は interval ごとに期限切れセッションを削除するゴルーチンを起動します。
// ctx が終了すると停止します。
func StartReaper(ctx context.Context, store Expirer, interval time.Duration, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reapOnce(ctx, store, logger)
			}
		}
	}()
}

func reapOnce(ctx context.Context, store Expirer, logger *log.Logger) {
	n, err := store.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Printf("failed to delete expired sessions: %v", err)
		}
		return
	}
	if n > 0 {
		logger.Printf("deleted %d expired sessions", n)
	}
}
