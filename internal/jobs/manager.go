// Package jobs はアップロード済みメディアの後片付けを行う非同期キューを提供します。
//
// 登録処理がアップロード後に失敗した場合、残ったファイルのキーを
// media:discard タスクとして投入し、ワーカーが storage.Uploader で削除します。
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/yourusername/videotube/internal/storage"
)

const maxDiscardRetry = 3

// enqueuer は asynq.Client のうち Manager が使う操作です。
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Manager はタスクの投入とワーカーの管理を担います。
type Manager struct {
	client   enqueuer
	server   *asynq.Server
	mux      *asynq.ServeMux
	uploader storage.Uploader
	logger   *zap.Logger
}

// NewManager は Redis URL から Manager を初期化します。
func NewManager(redisURL string, uploader storage.Uploader, logger *zap.Logger) (*Manager, error) {
	if uploader == nil {
		return nil, errors.New("uploader is nil")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				QueueMedia: 1,
			},
		},
	)

	manager := &Manager{
		client:   asynq.NewClient(opt),
		server:   server,
		mux:      asynq.NewServeMux(),
		uploader: uploader,
		logger:   logger,
	}
	manager.mux.HandleFunc(TaskTypeDiscardMedia, manager.handleDiscardTask)
	return manager, nil
}

// DiscardMedia は削除対象のキーをキューに投入します。キーが空なら何もしません。
func (m *Manager) DiscardMedia(ctx context.Context, keys ...string) error {
	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			filtered = append(filtered, key)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	body, err := json.Marshal(DiscardPayload{Keys: filtered})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDiscardMedia, body, asynq.Queue(QueueMedia))
	info, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(maxDiscardRetry))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TaskTypeDiscardMedia, err)
	}
	m.logger.Info("media discard enqueued",
		zap.String("task_id", info.ID),
		zap.Strings("keys", filtered),
	)
	return nil
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.server != nil {
		m.server.Shutdown()
	}
	return m.client.Close()
}
