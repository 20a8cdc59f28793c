package repo

import (
	"context"

	"gorm.io/gorm"

	"vidtube/internal/domain"
	"vidtube/pkg/utils"
)

type SubscriptionRepo struct{ db *gorm.DB }

func NewSubscriptionRepo(db *gorm.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// channelProfileSQL 单条语句算完三个派生值，保证出自同一份边集快照。
// viewerID 为空串时 is_subscribed 恒为 0（匿名访问者）。
const channelProfileSQL = `
SELECT
  u.fullname,
  u.username,
  u.email,
  u.avatar,
  u.cover_image,
  (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id)    AS subscribers_count,
  (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS channels_subscribed_to_count,
  (SELECT COUNT(*) FROM subscriptions s
     WHERE s.channel_id = u.id AND s.subscriber_id = ?) > 0           AS is_subscribed
FROM users u
WHERE u.username = ?`

func (r *SubscriptionRepo) ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	var p domain.ChannelProfile
	res := r.db.WithContext(ctx).Raw(channelProfileSQL, viewerID, username).Scan(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *SubscriptionRepo) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	return r.db.WithContext(ctx).Create(&domain.Subscription{
		ID:           utils.NewID(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
	}).Error
}

func (r *SubscriptionRepo) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	return r.db.WithContext(ctx).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Delete(&domain.Subscription{}).Error
}

var (
	_ domain.SubscriptionRepository = (*SubscriptionRepo)(nil)
	_ domain.UserRepository         = (*UserRepo)(nil)
)
