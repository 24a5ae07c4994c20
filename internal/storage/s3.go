package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var loadDefaultAWSConfig = config.LoadDefaultConfig

// s3API は S3Uploader が使う S3 クライアントの操作です。
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options は S3 互換ストレージへの接続設定です。
// Endpoint を指定すると MinIO などのパススタイル接続になります。
type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	MaxSize       int64
}

// S3Uploader は S3 にメディアを保存します。
type S3Uploader struct {
	client  s3API
	opts    S3Options
	baseURL string
	now     func() time.Time
}

// NewS3Uploader は AWS 設定を読み込み S3Uploader を作成します。
func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Uploader(client, opts), nil
}

func newS3Uploader(client s3API, opts S3Options) *S3Uploader {
	baseURL := opts.PublicBaseURL
	if baseURL == "" {
		if opts.Endpoint != "" {
			baseURL = joinURL(opts.Endpoint, opts.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
		}
	}
	return &S3Uploader{
		client:  client,
		opts:    opts,
		baseURL: baseURL,
		now:     time.Now,
	}
}

func (u *S3Uploader) Upload(ctx context.Context, file *multipart.FileHeader) (*Asset, error) {
	p, err := readUpload(ctx, file, u.opts.MaxSize)
	if err != nil {
		return nil, err
	}

	key := newKey(u.now().UTC(), p.extension)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(p.data),
		ContentType:   aws.String(p.contentType),
		ContentLength: aws.Int64(int64(len(p.data))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return &Asset{
		Key:         key,
		URL:         joinURL(u.baseURL, key),
		ContentType: p.contentType,
		Size:        int64(len(p.data)),
	}, nil
}

func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid media key: %q", key)
	}
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
