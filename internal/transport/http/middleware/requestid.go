package middleware

import (
	"github.com/gin-gonic/gin"

	"vidtube/pkg/utils"
)

const KeyRequestID = "X-Request-ID"

// RequestID 网关带了就沿用，没带就现造一个；
// 同一个值同时写回响应头和请求上下文，访问日志靠它串联
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(KeyRequestID)
		if rid == "" {
			rid = utils.NewID()
		}
		c.Header(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Next()
	}
}
