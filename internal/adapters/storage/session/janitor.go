package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunJanitor purges sessions idle for longer than idleTTL every interval
// until ctx is cancelled.
func RunJanitor(ctx context.Context, store Store, idleTTL, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			purgeOnce(ctx, store, now.Add(-idleTTL), log)
		}
	}
}

func purgeOnce(ctx context.Context, store Store, idleBefore time.Time, log *zap.Logger) {
	n, err := store.Purge(ctx, idleBefore)
	if err != nil {
		log.Warn("session_purge_failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("session_purged", zap.Int64("rows", n))
	}
}
