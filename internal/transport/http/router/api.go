package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vidtube/internal/core/auth"
	"vidtube/internal/core/server"
	"vidtube/internal/domain"
	"vidtube/internal/transport/http/handler"
	mdw "vidtube/internal/transport/http/middleware"
)

type Options struct {
	CORSOrigins []string
	BodyLimit   int64 // 0 用默认 16KB（JSON 限制，multipart 不受此限）
}

// NewAPIEngine 组装全部中间件与路由
func NewAPIEngine(l *zap.Logger, issuer *auth.Issuer, users domain.UserRepository,
	uh *handler.UserHandler, opt Options) *gin.Engine {

	r := server.NewRouter(l, opt.CORSOrigins)

	bodyLimit := opt.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 16 << 10 // 16KB
	}

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.Timeout(10*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// 公共：注册走 multipart 不限 16KB，登录/刷新是 JSON
	public := api.Group("")
	public.Use(jsonBodyLimit(bodyLimit))
	uh.MountPublic(public)

	// 鉴权
	authed := api.Group("")
	authed.Use(jsonBodyLimit(bodyLimit), mdw.RequireAuth(issuer, users))
	uh.MountAuthed(authed)

	// 公开但带可选身份
	optional := api.Group("")
	optional.Use(mdw.OptionalAuth(issuer, users))
	uh.MountOptional(optional)

	return r
}

// multipart 上传（头像/封面）不能按 JSON 的 16KB 卡，单独放宽
func jsonBodyLimit(n int64) gin.HandlerFunc {
	limited := mdw.MaxBodyBytes(n)
	uploads := mdw.MaxBodyBytes(16 << 20) // 16MB
	return func(c *gin.Context) {
		ct := c.ContentType()
		if ct == "multipart/form-data" {
			uploads(c)
			return
		}
		limited(c)
	}
}
