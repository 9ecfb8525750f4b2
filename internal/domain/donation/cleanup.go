package donation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"churchpay/internal/pkg/logger"
)

// CleanupService purges notification audit rows past their retention.
type CleanupService struct {
	audit NotificationLog
	log   logger.Logger
	now   func() time.Time
}

func NewCleanupService(audit NotificationLog, log logger.Logger) *CleanupService {
	if log == nil {
		log = logger.Noop()
	}
	return &CleanupService{audit: audit, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Run deletes audit rows received before now minus retention.
func (c *CleanupService) Run(ctx context.Context, retention time.Duration) (int64, error) {
	start := c.now()
	cutoff := start.Add(-retention)

	deleted, err := c.audit.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.log.Error("notification cleanup failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}

	c.log.Info("notification cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
		zap.Duration("took", c.now().Sub(start)),
	)
	return deleted, nil
}

// Schedule runs cleanup every interval until ctx is done.
func (c *CleanupService) Schedule(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_, _ = c.Run(ctx, retention)
			case <-ctx.Done():
				c.log.Info("scheduled notification cleanup stopped")
				return
			}
		}
	}()
}
