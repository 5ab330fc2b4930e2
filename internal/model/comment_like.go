package model

import (
	"time"
)

// CommentLike 评论点赞，计数回源时按 comment_id 聚合
type CommentLike struct {
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	CommentID uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_comment_like_comment" json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
