package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/videotube/internal/apperr"
	"github.com/yourusername/videotube/internal/logging"
	"github.com/yourusername/videotube/internal/response"
	"github.com/yourusername/videotube/internal/token"
	"github.com/yourusername/videotube/internal/user"
)

// ContextIdentityKey は、ハンドラー間で認証済みユーザーを共有するためのキーです。
const ContextIdentityKey = "auth.identity"

// Identity は検証済みアクセストークンから得たユーザー情報です。
type Identity struct {
	UserID   string
	Username string
	Email    string
}

// AccessTokenParser はアクセストークンを検証します。
type AccessTokenParser interface {
	ParseAccessToken(tokenString string) (*token.AccessClaims, error)
}

// UserFinder は ID からユーザーを取得します。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// RequireAuth はアクセストークンを検証し、Identity をコンテキストに格納するミドルウェアです。
// トークンは accessToken Cookie か Authorization: Bearer ヘッダーから読み取ります。
func RequireAuth(parser AccessTokenParser, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := accessTokenFrom(c)
		if raw == "" {
			response.Error(c, logging.FromContext(c, nil), apperr.Unauthorized(msgUnauthorized))
			return
		}

		claims, err := parser.ParseAccessToken(raw)
		if err != nil {
			response.Error(c, logging.FromContext(c, nil), apperr.Unauthorized(msgInvalidAccessToken).Wrap(err))
			return
		}

		u, err := users.FindByID(c.Request.Context(), claims.UserID())
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				err = apperr.Unauthorized(msgInvalidAccessToken).Wrap(err)
			} else {
				err = fmt.Errorf("load authenticated user: %w", err)
			}
			response.Error(c, logging.FromContext(c, nil), err)
			return
		}

		c.Set(ContextIdentityKey, Identity{
			UserID:   u.ID,
			Username: u.Username,
			Email:    u.Email,
		})
		c.Next()
	}
}

// IdentityFrom は RequireAuth が格納した Identity を返します。
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	if !ok || identity.UserID == "" {
		return Identity{}, false
	}
	return identity, true
}

func accessTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}
