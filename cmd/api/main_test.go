package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/videotube/internal/config"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"), bytes.Repeat([]byte{0}, 32)...)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               "0",
		GinMode:            gin.TestMode,
		CORSAllowedOrigins: "http://localhost:5173",
		MaxUploadSize:      1 << 20,
		StoreDriver:        config.StoreMemory,
		AccessTokenSecret:  "access",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenSecret: "refresh",
		RefreshTokenExpiry: 24 * time.Hour,
		CookieSecure:       true,
		MediaDriver:        config.MediaLocal,
		MediaLocalDir:      t.TempDir(),
		MediaPublicBaseURL: "http://localhost:8000/media",
	}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	d, err := buildDeps(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(d.Close)
	assert.Nil(t, d.cleanup)
	return newRouter(cfg, zap.NewNop(), d)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRegisterServesUploadedAvatar(t *testing.T) {
	router := newTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range map[string]string{"email": "a@x.com", "username": "Alice", "fullname": "Alice A", "password": "p1"} {
		require.NoError(t, writer.WriteField(k, v))
	}
	fw, err := writer.CreateFormFile("avatar", "avatar.png")
	require.NoError(t, err)
	_, err = fw.Write(pngData)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			Avatar string `json:"avatar"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	path := strings.TrimPrefix(env.Data.Avatar, "http://localhost:8000")
	require.True(t, strings.HasPrefix(path, "/media/media/"), env.Data.Avatar)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngData, rec.Body.Bytes())
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "videotube_http_requests_total")
}

func TestLogoutRouteIsProtected(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := []string{}
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
}
