// Package auth はユーザー登録・ログイン・ログアウトのハンドラーと、
// アクセストークンを検証するミドルウェアを提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/videotube/internal/apperr"
	"github.com/yourusername/videotube/internal/logging"
	"github.com/yourusername/videotube/internal/metrics"
	"github.com/yourusername/videotube/internal/response"
	"github.com/yourusername/videotube/internal/storage"
	"github.com/yourusername/videotube/internal/token"
	"github.com/yourusername/videotube/internal/user"
)

const (
	msgAllFieldsRequired  = "All fields are required"
	msgUserExists         = "User with email or username already exists"
	msgAvatarRequired     = "Avatar file is required"
	msgRegisterFailed     = "Something went wrong while registering the user"
	msgRegistered         = "User registered successfully"
	msgInvalidBody        = "Invalid request body"
	msgUsernameOrEmail    = "username or email is required"
	msgPasswordRequired   = "Password is required"
	msgUserNotFound       = "User does not exist"
	msgInvalidCredentials = "Invalid user credentials"
	msgLoggedIn           = "User logged in successfully"
	msgLoggedOut          = "User logged out successfully"
	msgUnauthorized       = "Unauthorized request"
	msgInvalidAccessToken = "Invalid access token"
)

// TokenIssuer はログイン時にトークンの組を発行します。
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (*token.Pair, error)
}

// MediaDiscarder は登録に失敗した際、アップロード済みのメディアを後片付けします。
type MediaDiscarder interface {
	DiscardMedia(ctx context.Context, keys ...string) error
}

// Options は Handler の任意設定です。
type Options struct {
	// CookieSecure は Cookie の Secure 属性です。http でのローカル開発時のみ false にします。
	CookieSecure bool
	// Discarder が nil の場合、アップロード済みメディアの後片付けは行いません。
	Discarder MediaDiscarder
	Logger    *zap.Logger
}

// Handler は /api/v1/users 配下の認証系エンドポイントを処理します。
type Handler struct {
	store    user.Store
	issuer   TokenIssuer
	uploader storage.Uploader
	opts     Options
	logger   *zap.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(store user.Store, issuer TokenIssuer, uploader storage.Uploader, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:    store,
		issuer:   issuer,
		uploader: uploader,
		opts:     opts,
		logger:   logger,
	}
}

// loginResponse はログイン成功時の data です。
type loginResponse struct {
	User         *user.Profile `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type registerInput struct {
	username   string
	email      string
	fullName   string
	password   string
	avatar     *multipart.FileHeader
	coverImage *multipart.FileHeader
}

// Register は POST /api/v1/users/register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	log := logging.FromContext(c, h.logger)

	profile, err := h.register(c, log)
	metrics.RecordAuthEvent(metrics.EventRegister, err)
	if err != nil {
		response.Error(c, log, err)
		return
	}

	response.JSON(c, http.StatusCreated, profile, msgRegistered)
}

func readRegisterInput(c *gin.Context) (*registerInput, error) {
	in := &registerInput{
		username: strings.TrimSpace(c.PostForm("username")),
		email:    strings.TrimSpace(c.PostForm("email")),
		fullName: strings.TrimSpace(c.PostForm("fullname")),
		password: c.PostForm("password"),
	}
	if in.username == "" || in.email == "" || in.fullName == "" || strings.TrimSpace(in.password) == "" {
		return nil, apperr.BadRequest(msgAllFieldsRequired)
	}

	// multipart でない場合はファイルなしとして扱う
	if form, err := c.MultipartForm(); err == nil {
		in.avatar = firstFile(form, "avatar")
		in.coverImage = firstFile(form, "coverImage")
	}
	return in, nil
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if files := form.File[field]; len(files) > 0 {
		return files[0]
	}
	return nil
}

func (h *Handler) register(c *gin.Context, log *zap.Logger) (*user.Profile, error) {
	in, err := readRegisterInput(c)
	if err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	username := user.NormalizeUsername(in.username)

	existing, err := h.store.FindByUsernameOrEmail(ctx, username, in.email)
	switch {
	case err == nil && existing != nil:
		return nil, apperr.Conflict(msgUserExists)
	case err != nil && !errors.Is(err, user.ErrNotFound):
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	if in.avatar == nil {
		return nil, apperr.BadRequest(msgAvatarRequired)
	}

	avatar, err := h.uploader.Upload(ctx, in.avatar)
	if err != nil || avatar == nil || avatar.URL == "" {
		return nil, apperr.BadRequest(msgAvatarRequired).Wrap(err)
	}
	uploaded := []string{avatar.Key}

	coverURL := ""
	if in.coverImage != nil {
		cover, err := h.uploader.Upload(ctx, in.coverImage)
		if err != nil {
			log.Warn("cover image upload failed", zap.Error(err))
		} else {
			coverURL = cover.URL
			uploaded = append(uploaded, cover.Key)
		}
	}

	created, err := h.store.Create(ctx, user.NewUser{
		Username:   username,
		Email:      in.email,
		FullName:   in.fullName,
		Password:   in.password,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
	})
	if err != nil {
		h.discard(ctx, log, uploaded)
		if errors.Is(err, user.ErrDuplicate) {
			return nil, apperr.Conflict(msgUserExists).Wrap(err)
		}
		return nil, apperr.Internal(msgRegisterFailed, err)
	}

	stored, err := h.store.FindByID(ctx, created.ID)
	if err != nil {
		return nil, apperr.Internal(msgRegisterFailed, err)
	}
	return stored.Profile(), nil
}

func (h *Handler) discard(ctx context.Context, log *zap.Logger, keys []string) {
	if h.opts.Discarder == nil || len(keys) == 0 {
		return
	}
	// リクエストがキャンセルされていても投入する
	if err := h.opts.Discarder.DiscardMedia(context.WithoutCancel(ctx), keys...); err != nil {
		log.Warn("failed to schedule media cleanup", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Login は POST /api/v1/users/login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	log := logging.FromContext(c, h.logger)

	res, err := h.login(c)
	metrics.RecordAuthEvent(metrics.EventLogin, err)
	if err != nil {
		response.Error(c, log, err)
		return
	}

	h.setSessionCookies(c, res.AccessToken, res.RefreshToken)
	response.JSON(c, http.StatusOK, res, msgLoggedIn)
}

func (h *Handler) login(c *gin.Context) (*loginResponse, error) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		return nil, apperr.BadRequest(msgInvalidBody).Wrap(err)
	}

	username := user.NormalizeUsername(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" && email == "" {
		return nil, apperr.BadRequest(msgUsernameOrEmail)
	}
	if req.Password == "" {
		return nil, apperr.BadRequest(msgPasswordRequired)
	}

	ctx := c.Request.Context()
	u, err := h.store.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !u.IsPasswordCorrect(req.Password) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	pair, err := h.issuer.Issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	loggedIn, err := h.store.FindByID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}

	return &loginResponse{
		User:         loggedIn.Profile(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout は POST /api/v1/users/logout のハンドラーです。RequireAuth の後ろに置きます。
func (h *Handler) Logout(c *gin.Context) {
	log := logging.FromContext(c, h.logger)

	identity, ok := IdentityFrom(c)
	if !ok {
		err := apperr.Unauthorized(msgUnauthorized)
		metrics.RecordAuthEvent(metrics.EventLogout, err)
		response.Error(c, log, err)
		return
	}

	err := h.logout(c.Request.Context(), identity)
	metrics.RecordAuthEvent(metrics.EventLogout, err)
	if err != nil {
		response.Error(c, log, err)
		return
	}

	h.clearSessionCookies(c)
	response.JSON(c, http.StatusOK, gin.H{}, msgLoggedOut)
}

// logout は保存済みのリフレッシュトークンを未設定に戻します。
// ユーザーが既に存在しない場合も成功として扱います。
func (h *Handler) logout(ctx context.Context, identity Identity) error {
	if _, err := h.store.ClearRefreshToken(ctx, identity.UserID); err != nil && !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
