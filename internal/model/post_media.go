package model

import (
	"time"
)

// PostMedia 帖子媒体，URL 原样保存
type PostMedia struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	PostID    uint64    `gorm:"not null;index:idx_post_id_sort" json:"postId"`
	MediaType string    `gorm:"type:varchar(16);not null" json:"mediaType"` // image / video
	MediaURL  string    `gorm:"type:varchar(512);not null" json:"mediaUrl"`
	SortOrder int8      `gorm:"not null;default:0;index:idx_post_id_sort" json:"sortOrder"`
	Width     int       `gorm:"not null;default:0" json:"width"`
	Height    int       `gorm:"not null;default:0" json:"height"`
	Duration  int       `gorm:"not null;default:0" json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
}

func (PostMedia) TableName() string {
	return "post_media"
}
