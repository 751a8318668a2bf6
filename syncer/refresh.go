package syncer

import (
	"context"
	"log/slog"
	"time"
)

// RefreshPeriodically calls refresh every interval until ctx is done.
// It is how a long-running watch picks up files created on the remote host.
func RefreshPeriodically(ctx context.Context, interval time.Duration, refresh func(context.Context) error, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("periodic index refresh started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic index refresh stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := refresh(ctx); err != nil {
				logger.Warn("periodic index refresh failed", "error", err)
				continue
			}
			logger.Debug("periodic index refresh complete", "duration", time.Since(start))
		}
	}
}
