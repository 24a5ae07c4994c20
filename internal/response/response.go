// Package response は API の成功・失敗レスポンスの共通形式を提供します。
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/videotube/internal/apperr"
)

// Envelope は成功時のレスポンス形式です。
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope は失敗時のレスポンス形式です。
type ErrorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	Data       any    `json:"data"`
}

const internalMessage = "Internal server error"

// JSON は成功レスポンスを書き込みます。
func JSON(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error はハンドラーから返されたエラーをレスポンスに変換する唯一の出口です。
// 5xx の場合は原因をログに残しますが、レスポンスにはメッセージしか含めません。
func Error(c *gin.Context, log *zap.Logger, err error) {
	if log == nil {
		log = zap.NewNop()
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		status := appErr.Status()
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("code", string(appErr.Kind)),
				zap.Error(err),
			)
		}
		write(c, status, string(appErr.Kind), appErr.Message)
	case errors.Is(err, context.Canceled):
		write(c, http.StatusRequestTimeout, "REQUEST_CANCELED", "Request was canceled")
	default:
		log.Error("unexpected error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		write(c, http.StatusInternalServerError, string(apperr.KindInternal), internalMessage)
	}
}

func write(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		StatusCode: status,
		Code:       code,
		Message:    message,
		Success:    false,
		Data:       nil,
	})
}
