package domain

import "time"

// Video 观看历史的目标实体；本子系统只建表不暴露操作
type Video struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string    `gorm:"size:36;index" json:"ownerId"`
	VideoFile   string    `gorm:"size:255;not null" json:"videoFile"`
	Thumbnail   string    `gorm:"size:255;not null" json:"thumbnail"`
	Title       string    `gorm:"size:191;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `gorm:"default:0" json:"views"`
	IsPublished bool      `gorm:"default:true" json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Video) TableName() string { return "videos" }
