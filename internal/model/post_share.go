package model

import (
	"time"
)

// PostShare 每个用户对同一帖子只记一次分享
type PostShare struct {
	UserID    uint64    `gorm:"primaryKey" json:"userId"`
	PostID    uint64    `gorm:"primaryKey;index:idx_share_post_id" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (PostShare) TableName() string {
	return "post_shares"
}
