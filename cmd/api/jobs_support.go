package main

import (
	"go.uber.org/zap"

	"github.com/yourusername/videotube/internal/config"
	"github.com/yourusername/videotube/internal/jobs"
	"github.com/yourusername/videotube/internal/storage"
)

// setupCleanup はメディア後片付けキューを初期化します。
// QUEUE_REDIS_URL が未設定の場合は nil を返し、キューを使いません。
func setupCleanup(cfg *config.Config, uploader storage.Uploader, logger *zap.Logger) (*jobs.Manager, error) {
	if cfg.QueueRedisURL == "" {
		logger.Info("media cleanup queue disabled")
		return nil, nil
	}
	return jobs.NewManager(cfg.QueueRedisURL, uploader, logger.Named("jobs"))
}
