package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidtube/internal/domain"
)

// Resp 统一响应壳，调用方只看 success
type Resp struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// errResp 错误壳在成功壳之上多一个 errors 字段，空时也要序列化为 []
type errResp struct {
	Resp
	Errors []string `json:"errors"`
}

func New(status int, data any, msg string) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{StatusCode: status, Data: data, Message: msg, Success: status < 400}
}

// OK 按真实 HTTP 状态写出成功响应
func OK(c *gin.Context, status int, data any, msg string) {
	c.JSON(status, New(status, data, msg))
}

// Fail 业务错误：domain.Error 带自己的状态码，其余一律 500
func Fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "something went wrong"
	var de *domain.Error
	if errors.As(err, &de) {
		status = de.Status
		msg = de.Message
	}
	c.AbortWithStatusJSON(status, errResp{Resp: New(status, nil, msg), Errors: []string{}})
}
