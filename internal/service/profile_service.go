package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vidtube/internal/core/cache"
	"vidtube/internal/core/media"
	"vidtube/internal/domain"
)

const profileCacheTTL = 30 * time.Second

// ProfileService 频道画像聚合 + 资料维护
type ProfileService struct {
	users domain.UserRepository
	subs  domain.SubscriptionRepository
	media media.Storage
	cache *cache.Cache // 可为 nil
}

func NewProfileService(users domain.UserRepository, subs domain.SubscriptionRepository,
	storage media.Storage, c *cache.Cache) *ProfileService {
	return &ProfileService{users: users, subs: subs, media: storage, cache: c}
}

// GetChannelProfile 三个派生值出自同一条查询；viewerID 为空表示匿名。
// 缓存的是整份投影，快照一致性不受缓存影响，只是可能旧 ≤ TTL。
func (s *ProfileService) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	username = domain.NormalizeIdentifier(username)
	if username == "" {
		return nil, domain.BadRequest("username is missing")
	}

	load := func(ctx context.Context) (*domain.ChannelProfile, error) {
		return s.subs.ChannelProfile(ctx, username, viewerID)
	}

	var p *domain.ChannelProfile
	var err error
	if s.cache != nil {
		p, err = cache.GetOrLoadJSON(s.cache, ctx, profileKey(username, viewerID), profileCacheTTL, load)
	} else {
		p, err = load(ctx)
	}
	if err != nil {
		return nil, domain.Internal("failed to fetch channel profile", err)
	}
	if p == nil {
		return nil, domain.NotFound("channel does not exist")
	}
	return p, nil
}

func (s *ProfileService) GetCurrentUser(ctx context.Context, userID string) (*domain.PublicUser, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.Internal("failed to look up user", err)
	}
	if u == nil {
		return nil, domain.NotFound("user does not exist")
	}
	return u.Public(), nil
}

func (s *ProfileService) UpdateAccount(ctx context.Context, userID, fullname, email string) (*domain.PublicUser, error) {
	fullname = strings.TrimSpace(fullname)
	email = domain.NormalizeIdentifier(email)
	if fullname == "" || email == "" {
		return nil, domain.BadRequest("all fields are required")
	}
	if err := s.users.UpdateFields(ctx, userID, map[string]any{
		"fullname": fullname,
		"email":    email,
	}); err != nil {
		if isDupKey(err) {
			return nil, domain.Conflict("email already in use")
		}
		return nil, domain.Internal("failed to update account details", err)
	}
	return s.reload(ctx, userID)
}

func (s *ProfileService) UpdateAvatar(ctx context.Context, userID string, f *media.File) (*domain.PublicUser, error) {
	return s.updateImage(ctx, userID, f, "avatar", "avatar file is missing")
}

func (s *ProfileService) UpdateCover(ctx context.Context, userID string, f *media.File) (*domain.PublicUser, error) {
	return s.updateImage(ctx, userID, f, "cover_image", "cover image file is missing")
}

func (s *ProfileService) updateImage(ctx context.Context, userID string, f *media.File, column, missingMsg string) (*domain.PublicUser, error) {
	if f == nil {
		return nil, domain.BadRequest(missingMsg)
	}
	url, err := s.media.Upload(ctx, f)
	if err != nil || url == "" {
		return nil, domain.Internal("media upload failed", err)
	}
	if err := s.users.UpdateFields(ctx, userID, map[string]any{column: url}); err != nil {
		return nil, domain.Internal("failed to update "+column, err)
	}
	return s.reload(ctx, userID)
}

func (s *ProfileService) reload(ctx context.Context, userID string) (*domain.PublicUser, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil {
		return nil, domain.Internal("failed to reload user", err)
	}
	// 资料变了，对应频道的缓存投影全部作废
	if s.cache != nil {
		_ = s.cache.InvalidatePrefix(ctx, profilePrefix(u.Username))
	}
	return u.Public(), nil
}

func profilePrefix(username string) string { return fmt.Sprintf("profile:%s:", username) }
func profileKey(username, viewerID string) string {
	return profilePrefix(username) + viewerID
}
