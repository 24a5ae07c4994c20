// Package apperr はハンドラー層で扱うエラー種別を提供します。
//
// 各ハンドラーは失敗時に *Error を返し、HTTP ステータスへの変換は
// response.Error だけが行います。
package apperr

import (
	"errors"
	"net/http"
)

// Kind はエラーの分類です。
type Kind string

const (
	KindConflict     Kind = "CONFLICT"
	KindBadRequest   Kind = "BAD_REQUEST"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindNotFound     Kind = "NOT_FOUND"
	KindInternal     Kind = "INTERNAL_ERROR"
)

var statusByKind = map[Kind]int{
	KindConflict:     http.StatusConflict,
	KindBadRequest:   http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindNotFound:     http.StatusNotFound,
	KindInternal:     http.StatusInternalServerError,
}

// Error はクライアントに返すメッセージと内部原因を保持します。
// Err はログ用であり、レスポンスには含めません。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status は Kind に対応する HTTP ステータスを返します。
func (e *Error) Status() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Conflict(message string) *Error {
	return newError(KindConflict, message, nil)
}

func BadRequest(message string) *Error {
	return newError(KindBadRequest, message, nil)
}

func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, message, nil)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, message, nil)
}

// Internal は原因を保持したまま 500 系エラーを作ります。
func Internal(message string, cause error) *Error {
	return newError(KindInternal, message, cause)
}

// Wrap は既存のエラーに原因を添えた複製を返します。
func (e *Error) Wrap(cause error) *Error {
	return newError(e.Kind, e.Message, cause)
}

// StatusOf は任意のエラーから HTTP ステータスを求めます。
// *Error 以外はすべて 500 として扱います。
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

// IsKind は err が指定した Kind の *Error かどうかを判定します。
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
