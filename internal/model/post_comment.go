package model

import (
	"time"
)

type PostComment struct {
	ID            uint64             `gorm:"primaryKey"`
	PostID        uint64             `gorm:"not null;index:idx_comment_post_id" json:"postId"`
	UserID        uint64             `gorm:"not null;index:idx_comment_user_id" json:"userId"`
	AuthorName    string             `gorm:"type:varchar(64)" json:"authorName"`
	Content       string             `gorm:"type:varchar(1000);not null" json:"content"`
	MediaInfo     []CommentMediaItem `gorm:"type:json;serializer:json" json:"mediaInfo"`
	ParentID      uint64             `gorm:"not null;default:0;index:idx_parent_id" json:"parentId"` // 0表示一级评论，否则为所属一级评论ID
	ReplyToUserID uint64             `gorm:"not null;default:0" json:"replyToUserId"`                // 0表示无回复目标
	LikesCount    int64              `gorm:"not null;default:0" json:"likesCount"`
	RepliesCount  int64              `gorm:"not null;default:0" json:"repliesCount"`
	ReportCount   int64              `gorm:"not null;default:0" json:"reportCount"`
	IsDeleted     bool               `gorm:"type:tinyint(1);not null;default:0" json:"isDeleted"`
	IsHidden      bool               `gorm:"type:tinyint(1);not null;default:0" json:"isHidden"`
	IsFlagged     bool               `gorm:"type:tinyint(1);not null;default:0" json:"isFlagged"`
	IsShadowed    bool               `gorm:"type:tinyint(1);not null;default:0" json:"isShadowed"`
	NeedsReview   bool               `gorm:"type:tinyint(1);not null;default:0" json:"needsReview"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func (PostComment) TableName() string {
	return "post_comments"
}

func (c *PostComment) IsReply() bool {
	return c.ParentID != 0
}

type CommentMediaItem struct {
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  int    `json:"duration"`
	MediaType string `json:"mediaType"`
}
