package domain

import "net/http"

// Error 统一业务错误：Status 直接基于 HTTP 语义，Err 保留底层原因用于日志
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func BadRequest(msg string) *Error { return &Error{Status: http.StatusBadRequest, Message: msg} }
func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: msg}
}
func NotFound(msg string) *Error { return &Error{Status: http.StatusNotFound, Message: msg} }
func Conflict(msg string) *Error { return &Error{Status: http.StatusConflict, Message: msg} }
func Internal(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}
