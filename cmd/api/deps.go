package main

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourusername/videotube/internal/config"
	"github.com/yourusername/videotube/internal/jobs"
	"github.com/yourusername/videotube/internal/storage"
	"github.com/yourusername/videotube/internal/token"
	"github.com/yourusername/videotube/internal/user"
)

// deps はサーバーが使う依存関係をまとめたものです。
type deps struct {
	store    user.Store
	issuer   *token.Issuer
	uploader storage.Uploader
	// mediaDir はローカルドライバーの場合のみ設定されます
	mediaDir string
	cleanup  *jobs.Manager
	closers  []func() error
	logger   *zap.Logger
}

func buildDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{logger: logger}

	if err := d.openStore(ctx, cfg); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.openUploader(ctx, cfg); err != nil {
		d.Close()
		return nil, err
	}

	d.issuer = token.NewIssuer(d.store, token.Options{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})

	cleanup, err := setupCleanup(cfg, d.uploader, logger)
	if err != nil {
		d.Close()
		return nil, err
	}
	if cleanup != nil {
		d.cleanup = cleanup
		d.closers = append(d.closers, func() error { return cleanup.Shutdown(context.Background()) })
	}
	return d, nil
}

func (d *deps) openStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.StoreDriver {
	case config.StoreRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		d.closers = append(d.closers, rdb.Close)
		d.store = user.NewRedisStore(rdb)
	case config.StorePostgres:
		db, err := user.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, db.Close)
		if err := user.RunMigrations(ctx, db); err != nil {
			return err
		}
		d.store = user.NewPostgresStore(db)
	default:
		d.logger.Warn("using in-memory user store; data is lost on restart")
		d.store = user.NewMemoryStore()
	}
	return nil
}

func (d *deps) openUploader(ctx context.Context, cfg *config.Config) error {
	switch cfg.MediaDriver {
	case config.MediaS3:
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			MaxSize:       cfg.MaxUploadSize,
		})
		if err != nil {
			return err
		}
		d.uploader = uploader
	default:
		uploader, err := storage.NewLocalUploader(cfg.MediaLocalDir, cfg.MediaPublicBaseURL, cfg.MaxUploadSize)
		if err != nil {
			return err
		}
		d.uploader = uploader
		d.mediaDir = uploader.Dir()
	}
	return nil
}

// Close は開いた接続を逆順に閉じます。
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	d.closers = nil
}
