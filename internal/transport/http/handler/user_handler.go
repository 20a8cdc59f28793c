package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vidtube/internal/core/media"
	"vidtube/internal/domain"
	"vidtube/internal/service"
	mdw "vidtube/internal/transport/http/middleware"
	resp "vidtube/internal/transport/http/response"
)

// UserHandler 把会话与资料接口挂到 /users 下
type UserHandler struct {
	auth       *service.AuthService
	profile    *service.ProfileService
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewUserHandler(a *service.AuthService, p *service.ProfileService, accessTTL, refreshTTL time.Duration) *UserHandler {
	return &UserHandler{auth: a, profile: p, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (h *UserHandler) MountPublic(g *gin.RouterGroup) {
	g.POST("/users/register", h.register)
	g.POST("/users/login", h.login)
	g.POST("/users/refresh-token", h.refresh)
}

func (h *UserHandler) MountAuthed(g *gin.RouterGroup) {
	g.POST("/users/logout", h.logout)
	g.POST("/users/change-password", h.changePassword)
	g.GET("/users/current-user", h.currentUser)
	g.PATCH("/users/update-account", h.updateAccount)
	g.PATCH("/users/avatar", h.updateAvatar)
	g.PATCH("/users/cover-image", h.updateCover)
}

// MountOptional 公开但识别访问者身份的接口
func (h *UserHandler) MountOptional(g *gin.RouterGroup) {
	g.GET("/users/c/:username", h.channelProfile)
}

func (h *UserHandler) register(c *gin.Context) {
	avatar, _ := formImage(c, "avatar")
	defer avatar.Close()
	cover, _ := formImage(c, "coverImage")
	defer cover.Close()

	out, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Fullname: c.PostForm("fullname"),
		Email:    c.PostForm("email"),
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
		Avatar:   avatar,
		Cover:    cover,
	})
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, http.StatusCreated, out, "user registered successfully")
}

type loginIn struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

func (h *UserHandler) login(c *gin.Context) {
	var in loginIn
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.Fail(c, bindError(err))
		return
	}
	identifier := in.Username
	if identifier == "" {
		identifier = in.Email
	}
	u, pair, err := h.auth.Login(c.Request.Context(), identifier, in.Password)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	h.setAuthCookies(c, pair)
	resp.OK(c, http.StatusOK, gin.H{
		"user":         u,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "user logged in successfully")
}

func (h *UserHandler) refresh(c *gin.Context) {
	// cookie 优先，body 兜底（移动端没 cookie）
	presented, _ := c.Cookie(mdw.RefreshCookie)
	if presented == "" {
		var in struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = c.ShouldBindJSON(&in)
		presented = in.RefreshToken
	}

	pair, err := h.auth.Refresh(c.Request.Context(), presented)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	h.setAuthCookies(c, pair)
	resp.OK(c, http.StatusOK, pair, "access token refreshed")
}

func (h *UserHandler) logout(c *gin.Context) {
	u := mdw.CurrentUser(c)
	if err := h.auth.Logout(c.Request.Context(), u.ID); err != nil {
		resp.Fail(c, err)
		return
	}
	h.clearAuthCookies(c)
	resp.OK(c, http.StatusOK, nil, "user logged out")
}

func (h *UserHandler) changePassword(c *gin.Context) {
	var in struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.Fail(c, bindError(err))
		return
	}
	u := mdw.CurrentUser(c)
	if err := h.auth.ChangePassword(c.Request.Context(), u.ID, in.OldPassword, in.NewPassword); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, http.StatusOK, nil, "password changed successfully")
}

func (h *UserHandler) currentUser(c *gin.Context) {
	u := mdw.CurrentUser(c)
	out, err := h.profile.GetCurrentUser(c.Request.Context(), u.ID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, http.StatusOK, out, "current user fetched successfully")
}

func (h *UserHandler) updateAccount(c *gin.Context) {
	var in struct {
		Fullname string `json:"fullname" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.Fail(c, bindError(err))
		return
	}
	u := mdw.CurrentUser(c)
	out, err := h.profile.UpdateAccount(c.Request.Context(), u.ID, in.Fullname, in.Email)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, http.StatusOK, out, "account details updated successfully")
}

func (h *UserHandler) updateAvatar(c *gin.Context) {
	f, err := formImage(c, "avatar")
	if err != nil || f == nil {
		resp.Fail(c, domain.BadRequest("avatar file is missing"))
		return
	}
	defer f.Close()
	u := mdw.CurrentUser(c)
	out, err := h.profile.UpdateAvatar(c.Request.Context(), u.ID, f)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, http.StatusOK, out, "avatar updated successfully")
}

func (h *UserHandler) updateCover(c *gin.Context) {
	f, err := formImage(c, "coverImage")
	if err != nil || f == nil {
		resp.Fail(c, domain.BadRequest("cover image file is missing"))
		return
	}
	defer f.Close()
	u := mdw.CurrentUser(c)
	out, err := h.profile.UpdateCover(c.Request.Context(), u.ID, f)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, http.StatusOK, out, "cover image updated successfully")
}

func (h *UserHandler) channelProfile(c *gin.Context) {
	var viewerID string
	if u := mdw.CurrentUser(c); u != nil {
		viewerID = u.ID
	}
	p, err := h.profile.GetChannelProfile(c.Request.Context(), c.Param("username"), viewerID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, http.StatusOK, p, "user channel fetched successfully")
}

// bindError MaxBytesReader 超限在绑定时才浮出，这里按 413 上报；其余绑定错误 400
func bindError(err error) *domain.Error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &domain.Error{Status: http.StatusRequestEntityTooLarge, Message: "request body too large", Err: err}
	}
	return domain.BadRequest(err.Error())
}

// formImage 取 multipart 文件并打开；字段缺失返回 (nil, nil)
func formImage(c *gin.Context, field string) (*media.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	return openFile(fh)
}

func openFile(fh *multipart.FileHeader) (*media.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	return &media.File{
		Reader:      f,
		Size:        fh.Size,
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

// 两个令牌都种同站、httpOnly、secure 的 cookie，前端拿不走也改不了
func (h *UserHandler) setAuthCookies(c *gin.Context, pair *service.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(mdw.AccessCookie, pair.AccessToken, int(h.accessTTL.Seconds()), "/", "", true, true)
	c.SetCookie(mdw.RefreshCookie, pair.RefreshToken, int(h.refreshTTL.Seconds()), "/", "", true, true)
}

func (h *UserHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(mdw.AccessCookie, "", -1, "/", "", true, true)
	c.SetCookie(mdw.RefreshCookie, "", -1, "/", "", true, true)
}
