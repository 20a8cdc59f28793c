package domain

import (
	"context"
	"strings"
	"time"
)

type User struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Username string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Fullname string `gorm:"size:64;not null;index" json:"fullname"`

	// 对象存储 URL；avatar 必填，coverImage 可选
	Avatar     string `gorm:"size:255;not null" json:"avatar"`
	CoverImage string `gorm:"size:255" json:"coverImage"`

	// 永不向外序列化
	PasswordHash string `gorm:"size:100;not null" json:"-"`
	RefreshToken string `gorm:"size:512" json:"-"`

	WatchHistory []Video `gorm:"many2many:watch_history" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// PublicUser 对外投影，从源头上排除口令哈希与会话令牌
type PublicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Fullname   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Fullname:   u.Fullname,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// NormalizeIdentifier 用户名/邮箱统一 trim + 小写
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByUsernameOrEmail 入参均已归一化；任一匹配即命中
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken 条件写：仅当库中仍为 old 时替换为 next。
	// 返回 false 表示本次轮换落败（old 已被用过或已清除）。
	RotateRefreshToken(ctx context.Context, id, old, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error
}
