package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/nornex-as/portal/internal/repositories"
)

// retention for read notifications before they are purged from the feed
const notificationRetention = 90 * 24 * time.Hour

// CleanupManager periodically removes expired revoked tokens and old read
// notifications from the database.
type CleanupManager struct {
	revokeRepo       *repositories.TokenRevocationRepository
	notificationRepo *repositories.NotificationRepository
	logger           *slog.Logger
	interval         time.Duration
	stopCh           chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	revokeRepo *repositories.TokenRevocationRepository,
	notificationRepo *repositories.NotificationRepository,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		revokeRepo:       revokeRepo,
		notificationRepo: notificationRepo,
		logger:           logger,
		interval:         interval,
		stopCh:           make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tokensDeleted, err := cm.revokeRepo.CleanupExpiredTokens(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired tokens", slog.Any("error", err))
	} else if tokensDeleted > 0 {
		cm.logger.Info("expired token cleanup completed", slog.Int64("rows_deleted", tokensDeleted))
	}

	cutoff := time.Now().Add(-notificationRetention)
	notificationsDeleted, err := cm.notificationRepo.DeleteReadOlderThan(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to cleanup old notifications", slog.Any("error", err))
	} else if notificationsDeleted > 0 {
		cm.logger.Info("old notification cleanup completed", slog.Int64("rows_deleted", notificationsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
