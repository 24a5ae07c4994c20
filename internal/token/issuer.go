// Package token はアクセストークンとリフレッシュトークンの発行を担います。
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yourusername/videotube/internal/apperr"
	"github.com/yourusername/videotube/internal/user"
)

// GenerationFailedMessage はトークン発行に失敗した際の共通メッセージです。
const GenerationFailedMessage = "something went wrong while generating access and refresh tokens"

var (
	// ErrInvalidToken は署名やクレームが不正なトークンを表します。
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired は有効期限切れのトークンを表します。
	ErrTokenExpired = errors.New("token expired")
)

// Pair はログイン時に発行されるトークンの組です。
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AccessClaims はアクセストークンに埋め込む識別情報です。
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullname"`
}

// UserID はトークンの subject を返します。
func (c *AccessClaims) UserID() string {
	return c.Subject
}

// Options は署名鍵と有効期間です。
type Options struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
}

// Issuer はユーザーIDからトークンの組を発行し、リフレッシュトークンを保存します。
type Issuer struct {
	store user.Store
	opts  Options
	now   func() time.Time
}

// NewIssuer は Issuer を作成します。
func NewIssuer(store user.Store, opts Options) *Issuer {
	return &Issuer{
		store: store,
		opts:  opts,
		now:   time.Now,
	}
}

// Issue はユーザーを取得してトークンを発行し、リフレッシュトークンをレコードに保存します。
// 途中のどの失敗も同じ Internal エラーになります。原因は Err に残りますが、
// クライアントにはメッセージしか返りません。
func (i *Issuer) Issue(ctx context.Context, userID string) (*Pair, error) {
	pair, err := i.issue(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(GenerationFailedMessage, err)
	}
	return pair, nil
}

func (i *Issuer) issue(ctx context.Context, userID string) (*Pair, error) {
	u, err := i.store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	access, err := i.signAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.signRefreshToken(u)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if _, err := i.store.SetRefreshToken(ctx, u.ID, refresh); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) signAccessToken(u *user.User) (string, error) {
	now := i.now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.opts.AccessTTL)),
		},
		Email:    u.Email,
		Username: u.Username,
		FullName: u.FullName,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.opts.AccessSecret)
}

func (i *Issuer) signRefreshToken(u *user.User) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.opts.RefreshTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.opts.RefreshSecret)
}

// ParseAccessToken はアクセストークンの署名と有効期限を検証します。
func (i *Issuer) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.opts.AccessSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
