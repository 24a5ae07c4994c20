// Package storage はプロフィール画像などのメディアをアップロードする層を提供します。
//
// 実装はローカルファイルシステム（開発用）と S3 互換ストレージ（本番用）の2つです。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedMedia は画像以外のファイルが送られた場合に返されます。
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrFileTooLarge はサイズ上限を超えた場合に返されます。
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFile は中身のないファイルを表します。
	ErrEmptyFile = errors.New("empty file")
)

// Asset はアップロード済みメディアの情報です。
type Asset struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Uploader はメディアの保存と削除を提供します。
type Uploader interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (*Asset, error)
	Delete(ctx context.Context, key string) error
}

// payload は検証済みのアップロード内容です。
type payload struct {
	data        []byte
	contentType string
	extension   string
}

// readUpload はファイルを読み込み、サイズと MIME を検証します。
func readUpload(ctx context.Context, file *multipart.FileHeader, maxSize int64) (*payload, error) {
	if file == nil {
		return nil, ErrEmptyFile
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxSize > 0 && file.Size > maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, file.Size)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	var r io.Reader = src
	if maxSize > 0 {
		r = io.LimitReader(src, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mt.String())
	}

	return &payload{
		data:        data,
		contentType: mt.String(),
		extension:   mt.Extension(),
	}, nil
}

// newKey は media/<年>/<月>/<uuid><拡張子> 形式のキーを返します。
func newKey(now time.Time, ext string) string {
	return path.Join("media", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), uuid.NewString()+ext)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
