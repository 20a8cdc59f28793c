package domain

import (
	"context"
	"time"
)

// Subscription 有向边：subscriber 关注 channel（channel 也是 User）
type Subscription struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SubscriberID string    `gorm:"size:36;not null;uniqueIndex:uq_subscriber_channel;index" json:"subscriberId"`
	ChannelID    string    `gorm:"size:36;not null;uniqueIndex:uq_subscriber_channel;index" json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Subscription) TableName() string { return "subscriptions" }

// ChannelProfile 频道聚合视图：存储字段 + 图上派生值 + 访问者关系。
// 三个派生值必须来自同一份边集快照。
type ChannelProfile struct {
	Fullname                  string `json:"fullname"`
	Username                  string `json:"username"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	Email                     string `json:"email"`
}

type SubscriptionRepository interface {
	// ChannelProfile 单条一致查询；viewerID 为空表示匿名访问者
	ChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error)
	Subscribe(ctx context.Context, subscriberID, channelID string) error
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error
}
