// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ストアとメディアのドライバー名
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	MediaLocal = "local"
	MediaS3    = "s3"
)

const (
	devAccessSecret  = "dev-access-token-secret"
	devRefreshSecret = "dev-refresh-token-secret"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port     string // APIサーバーのポート番号
	GinMode  string // Ginの実行モード (debug, release, test)
	LogLevel string // ログレベル (debug, info, warn, error)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// アップロード制限
	MaxUploadSize int64 // 画像1枚あたりの最大サイズ（バイト）

	// ユーザーストア設定
	StoreDriver string // memory, redis, postgres
	RedisURL    string // redis ドライバー用の接続URL
	DatabaseURL string // postgres ドライバー用のDSN

	// トークン設定
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	CookieSecure       bool // Cookie の Secure 属性（ローカルの http 開発時のみ false）

	// メディア設定
	MediaDriver        string // local, s3
	MediaLocalDir      string
	MediaPublicBaseURL string
	S3Bucket           string
	S3Region           string
	S3Endpoint         string // MinIO などを使う場合のみ
	S3AccessKey        string
	S3SecretKey        string
	S3PublicBaseURL    string

	// キュー設定
	QueueRedisURL string // Asynq用Redis接続URL（空ならメディア後片付けキューを無効化）
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	accessExpiry, err := parseExpiry(v.GetString("ACCESS_TOKEN_EXPIRY"))
	if err != nil {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRY: %w", err)
	}
	refreshExpiry, err := parseExpiry(v.GetString("REFRESH_TOKEN_EXPIRY"))
	if err != nil {
		return nil, fmt.Errorf("REFRESH_TOKEN_EXPIRY: %w", err)
	}

	config := &Config{
		Port:     v.GetString("PORT"),
		GinMode:  v.GetString("GIN_MODE"),
		LogLevel: v.GetString("LOG_LEVEL"),

		CORSAllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		MaxUploadSize:      v.GetInt64("MAX_UPLOAD_SIZE"),

		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
		RedisURL:    v.GetString("REDIS_URL"),
		DatabaseURL: v.GetString("DATABASE_URL"),

		AccessTokenSecret:  v.GetString("ACCESS_TOKEN_SECRET"),
		AccessTokenExpiry:  accessExpiry,
		RefreshTokenSecret: v.GetString("REFRESH_TOKEN_SECRET"),
		RefreshTokenExpiry: refreshExpiry,
		CookieSecure:       v.GetBool("COOKIE_SECURE"),

		MediaDriver:        strings.ToLower(v.GetString("MEDIA_DRIVER")),
		MediaLocalDir:      v.GetString("MEDIA_LOCAL_DIR"),
		MediaPublicBaseURL: v.GetString("MEDIA_PUBLIC_BASE_URL"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Region:           v.GetString("S3_REGION"),
		S3Endpoint:         v.GetString("S3_ENDPOINT"),
		S3AccessKey:        v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:        v.GetString("S3_SECRET_KEY"),
		S3PublicBaseURL:    v.GetString("S3_PUBLIC_BASE_URL"),

		QueueRedisURL: v.GetString("QUEUE_REDIS_URL"),
	}

	// ローカル開発では秘密鍵は任意
	if config.GinMode != "release" {
		if config.AccessTokenSecret == "" {
			config.AccessTokenSecret = devAccessSecret
		}
		if config.RefreshTokenSecret == "" {
			config.RefreshTokenSecret = devRefreshSecret
		}
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("MAX_UPLOAD_SIZE", 5*1024*1024) // 5MB
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "1d")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "10d")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("MEDIA_DRIVER", MediaLocal)
	v.SetDefault("MEDIA_LOCAL_DIR", "./public/media")
	v.SetDefault("MEDIA_PUBLIC_BASE_URL", "http://localhost:8000/media")
	v.SetDefault("S3_REGION", "us-east-1")
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// parseExpiry は "15m" のような Go の期間表記に加え "1d" / "10d" の日数表記を受け付けます。
func parseExpiry(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", value)
	}
	return d, nil
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.GinMode == "release" {
		if c.AccessTokenSecret == "" {
			return fmt.Errorf("ACCESS_TOKEN_SECRET is required in release mode")
		}
		if c.RefreshTokenSecret == "" {
			return fmt.Errorf("REFRESH_TOKEN_SECRET is required in release mode")
		}
		if c.AccessTokenSecret == c.RefreshTokenSecret {
			return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
		}
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.MediaDriver {
	case MediaLocal:
		if c.MediaLocalDir == "" {
			return fmt.Errorf("MEDIA_LOCAL_DIR is required when MEDIA_DRIVER=local")
		}
	case MediaS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when MEDIA_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown MEDIA_DRIVER %q", c.MediaDriver)
	}

	return nil
}

// AllowedOrigins は CORS 許可オリジンを分割して返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
