package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"vidtube/internal/core/auth"
	"vidtube/internal/core/events"
	"vidtube/internal/core/media"
	"vidtube/internal/domain"
)

// AuthService 会话状态机：注册 / 登录 / 登出 / 刷新 / 改密。
// refresh token 单值单用，轮换走存储层条件写。
type AuthService struct {
	users  domain.UserRepository
	hasher *auth.Hasher
	tokens *auth.Issuer
	media  media.Storage
	events *events.Publisher // 可为 nil
	log    *zap.Logger
}

func NewAuthService(users domain.UserRepository, hasher *auth.Hasher, tokens *auth.Issuer,
	storage media.Storage, pub *events.Publisher, log *zap.Logger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, media: storage, events: pub, log: log}
}

type RegisterInput struct {
	Fullname string
	Email    string
	Username string
	Password string
	Avatar   *media.File // 必填
	Cover    *media.File // 可选
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error) {
	fullname := strings.TrimSpace(in.Fullname)
	email := domain.NormalizeIdentifier(in.Email)
	username := domain.NormalizeIdentifier(in.Username)
	password := strings.TrimSpace(in.Password)

	if fullname == "" || email == "" || username == "" || password == "" {
		return nil, domain.BadRequest("all fields are required")
	}
	if in.Avatar == nil {
		return nil, domain.BadRequest("avatar file is required")
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, domain.Internal("failed to look up user", err)
	}
	if existing != nil {
		return nil, domain.Conflict("user with email or username already exists")
	}

	// 媒体上传失败阻断整个注册，不留下引用缺失头像的半成品账号
	avatarURL, err := s.media.Upload(ctx, in.Avatar)
	if err != nil || avatarURL == "" {
		return nil, domain.Internal("avatar upload failed", err)
	}
	var coverURL string
	if in.Cover != nil {
		coverURL, err = s.media.Upload(ctx, in.Cover)
		if err != nil {
			return nil, domain.Internal("cover image upload failed", err)
		}
	}

	// 显式在落库前哈希，不走任何持久层钩子
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, domain.Internal("failed to hash password", err)
	}

	u := &domain.User{
		Username:     username,
		Email:        email,
		Fullname:     fullname,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if isDupKey(err) {
			// 并发注册兜底：唯一索引冲突按 409 处理
			return nil, domain.Conflict("user with email or username already exists")
		}
		return nil, domain.Internal("something went wrong while registering the user", err)
	}

	if err := s.events.Publish(events.UserRegistered, map[string]any{"id": u.ID, "username": u.Username}); err != nil {
		s.log.Warn("publish user.registered", zap.Error(err))
	}
	return u.Public(), nil
}

// Login 支持用户名或邮箱登录；成功后签发双令牌并持久化 refresh token。
// 持久化失败则整体失败，刚铸出的令牌作废不回传。
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.PublicUser, *TokenPair, error) {
	identifier = domain.NormalizeIdentifier(identifier)
	if identifier == "" {
		return nil, nil, domain.BadRequest("username or email is required")
	}

	u, err := s.users.FindByUsernameOrEmail(ctx, identifier, identifier)
	if err != nil {
		return nil, nil, domain.Internal("failed to look up user", err)
	}
	if u == nil {
		return nil, nil, domain.NotFound("user does not exist")
	}
	if !s.hasher.Verify(ctx, password, u.PasswordHash) {
		return nil, nil, domain.Unauthorized("invalid credentials")
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		return nil, nil, domain.Internal("something went wrong while generating both the tokens", err)
	}
	return u.Public(), pair, nil
}

// Refresh 单用轮换：校验签名 → 对比库中当前值 → 条件写换新。
// 所有失败原因统一以 401 暴露，不让调用方区分“用户不存在”和“令牌过期”。
func (s *AuthService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, domain.Unauthorized("unauthorized request")
	}
	claims, err := s.tokens.ParseRefresh(presented)
	if err != nil {
		return nil, domain.Unauthorized("invalid refresh token")
	}
	u, err := s.users.FindByID(ctx, claims.UID)
	if err != nil {
		return nil, domain.Internal("failed to look up user", err)
	}
	if u == nil {
		return nil, domain.Unauthorized("invalid refresh token")
	}
	if presented != u.RefreshToken {
		return nil, domain.Unauthorized("refresh token is expired or used")
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	swapped, err := s.users.RotateRefreshToken(ctx, u.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, domain.Internal("something went wrong while generating both the tokens", err)
	}
	if !swapped {
		// 并发刷新里另一个请求先赢了
		return nil, domain.Unauthorized("refresh token is expired or used")
	}
	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return domain.Internal("failed to log out", err)
	}
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return domain.BadRequest("new password is required")
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.Internal("failed to look up user", err)
	}
	if u == nil {
		return domain.Unauthorized("invalid access token")
	}
	if !s.hasher.Verify(ctx, oldPassword, u.PasswordHash) {
		return domain.Unauthorized("invalid old password")
	}
	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return domain.Internal("failed to hash password", err)
	}
	// 改密不轮换 refresh token，当前会话保持有效（既有行为）
	if err := s.users.UpdateFields(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
		return domain.Internal("failed to change password", err)
	}
	if err := s.events.Publish(events.PasswordChanged, map[string]any{"id": u.ID}); err != nil {
		s.log.Warn("publish user.password_changed", zap.Error(err))
	}
	return nil
}

func (s *AuthService) issuePair(u *domain.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(auth.Identity{
		ID: u.ID, Email: u.Email, Username: u.Username, Fullname: u.Fullname,
	})
	if err != nil {
		return nil, domain.Internal("something went wrong while generating both the tokens", err)
	}
	refresh, err := s.tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, domain.Internal("something went wrong while generating both the tokens", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func isDupKey(err error) bool {
	// 不依赖 gorm.ErrDuplicatedKey，避免驱动差异
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "unique constraint failed")
}
