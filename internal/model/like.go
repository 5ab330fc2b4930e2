package model

import (
	"time"
)

// Like 帖子点赞，(user_id, post_id) 唯一，重复点赞由主键去重
type Like struct {
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	PostID    uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_like_post_created,priority:1" json:"postId"`
	CreatedAt time.Time `gorm:"index:idx_like_post_created,priority:2" json:"createdAt"`
}

func (Like) TableName() string {
	return "likes"
}
