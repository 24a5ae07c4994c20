// Package user はユーザーレコードと、その永続化を担う Credential Store を提供します。
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound は該当するユーザーが存在しない場合に返されます。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate はユーザー名またはメールアドレスが既に使われている場合に返されます。
	ErrDuplicate = errors.New("username or email already taken")
)

// User は永続化されるユーザーレコードです。
// PasswordHash と RefreshToken はストア内部でのみ扱い、API には Profile を返します。
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullname"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	PasswordHash string    `json:"password"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile はパスワードとリフレッシュトークンを除いたユーザー情報です。
type Profile struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Profile は公開用のプロジェクションを返します。
func (u *User) Profile() *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// IsPasswordCorrect は平文パスワードが保存済みハッシュと一致するかを返します。
func (u *User) IsPasswordCorrect(password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// NewUser は登録時にストアへ渡す入力です。Password は平文で、ストアがハッシュ化します。
type NewUser struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
}

// Store はユーザーレコードの検索・作成・更新を提供します。
type Store interface {
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByUsernameOrEmail は username か email のどちらかが一致するユーザーを返します。
	// 空文字の条件は無視します。
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error)
	Create(ctx context.Context, in NewUser) (*User, error)
	// SetRefreshToken はリフレッシュトークンだけを書き換えます。空文字は未設定を意味します。
	SetRefreshToken(ctx context.Context, id, token string) (*User, error)
	ClearRefreshToken(ctx context.Context, id string) (*User, error)
}

// NormalizeUsername はユーザー名を保存形式（小文字）に揃えます。
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// hashCost はテストから差し替えられます。
var hashCost = bcrypt.DefaultCost

var now = func() time.Time {
	return time.Now().UTC()
}

// newRecord は入力からIDとパスワードハッシュを持つレコードを組み立てます。
func newRecord(in NewUser) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), hashCost)
	if err != nil {
		return nil, err
	}
	ts := now()
	return &User{
		ID:           uuid.NewString(),
		Username:     NormalizeUsername(in.Username),
		Email:        strings.TrimSpace(in.Email),
		FullName:     in.FullName,
		Avatar:       in.Avatar,
		CoverImage:   in.CoverImage,
		PasswordHash: string(hash),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}, nil
}
