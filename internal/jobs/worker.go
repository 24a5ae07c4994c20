package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error("asynq server stopped with error", zap.Error(err))
		}
	}()
}

func (m *Manager) handleDiscardTask(ctx context.Context, task *asynq.Task) error {
	var payload DiscardPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// 壊れたペイロードは再試行しても直らない
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	var errs []error
	for _, key := range payload.Keys {
		if err := m.uploader.Delete(ctx, key); err != nil {
			m.logger.Warn("failed to discard media", zap.String("key", key), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		m.logger.Info("media discarded", zap.String("key", key))
	}
	return errors.Join(errs...)
}
