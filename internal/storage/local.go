package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// LocalUploader はローカルディレクトリにメディアを保存します。
// 保存先は <dir>/media/<年>/<月>/ で、URL は baseURL/<key> になります。
type LocalUploader struct {
	dir     string
	baseURL string
	maxSize int64
	now     func() time.Time
}

// NewLocalUploader は保存先ディレクトリを作成して LocalUploader を返します。
func NewLocalUploader(dir, baseURL string, maxSize int64) (*LocalUploader, error) {
	if dir == "" {
		return nil, errors.New("media directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalUploader{
		dir:     dir,
		baseURL: baseURL,
		maxSize: maxSize,
		now:     time.Now,
	}, nil
}

// Dir は保存先のルートディレクトリです。
func (u *LocalUploader) Dir() string {
	return u.dir
}

func (u *LocalUploader) Upload(ctx context.Context, file *multipart.FileHeader) (*Asset, error) {
	p, err := readUpload(ctx, file, u.maxSize)
	if err != nil {
		return nil, err
	}

	key := newKey(u.now().UTC(), p.extension)
	dest := filepath.Join(u.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(dest, p.data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write media: %w", err)
	}

	return &Asset{
		Key:         key,
		URL:         joinURL(u.baseURL, key),
		ContentType: p.contentType,
		Size:        int64(len(p.data)),
	}, nil
}

func (u *LocalUploader) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid media key: %q", key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(u.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
