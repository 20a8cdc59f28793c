package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"vidtube/internal/core/auth"
	"vidtube/internal/domain"
	resp "vidtube/internal/transport/http/response"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	keyUser = "currentUser"
)

// RequireAuth cookie 或 Authorization: Bearer 二选一。
// 每次都回查用户，令牌里的身份字段只当缓存用。
// 所有失败统一 401 同一句话，不向外区分具体原因。
func RequireAuth(issuer *auth.Issuer, users domain.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := resolveUser(c, issuer, users)
		if u == nil {
			resp.Fail(c, domain.Unauthorized("unauthorized access"))
			return
		}
		c.Set(keyUser, u)
		c.Next()
	}
}

// OptionalAuth 频道画像这类公开接口用：有合法令牌就带上身份，没有照样放行
func OptionalAuth(issuer *auth.Issuer, users domain.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := resolveUser(c, issuer, users); u != nil {
			c.Set(keyUser, u)
		}
		c.Next()
	}
}

func resolveUser(c *gin.Context, issuer *auth.Issuer, users domain.UserRepository) *domain.User {
	token := extractToken(c)
	if token == "" {
		return nil
	}
	claims, err := issuer.ParseAccess(token)
	if err != nil {
		return nil
	}
	u, err := users.FindByID(c.Request.Context(), claims.UID)
	if err != nil || u == nil {
		return nil
	}
	// 向下游传递前剥掉凭证字段
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}

func extractToken(c *gin.Context) string {
	if v, err := c.Cookie(AccessCookie); err == nil && v != "" {
		return v
	}
	ah := c.GetHeader("Authorization")
	if strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimPrefix(ah, "Bearer ")
	}
	return ""
}

// CurrentUser 显式从请求上下文取当前用户；在 RequireAuth 之后必非 nil
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(keyUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}
