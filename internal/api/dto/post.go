package dto

import "time"

// MediaItem 帖子/评论中的媒体，URL 由上传服务提供
type MediaItem struct {
	Type     string `json:"type" validate:"required,oneof=image video"`
	URL      string `json:"url" validate:"required,max=512"`
	Width    int    `json:"width" validate:"min=0"`
	Height   int    `json:"height" validate:"min=0"`
	Duration int    `json:"duration" validate:"min=0"`
}

// CreatePostReq 发帖请求
type CreatePostReq struct {
	Caption        string      `json:"caption" validate:"max=2000"`
	Media          []MediaItem `json:"media" validate:"max=9,dive"`
	Visibility     int8        `json:"visibility" validate:"omitempty,oneof=1 2 3"`
	MentionUserIDs []uint64    `json:"mention_user_ids" validate:"max=20"`
}

// PostDTO 帖子详情
type PostDTO struct {
	ID            uint64      `json:"id"`
	UserID        uint64      `json:"user_id"`
	AuthorName    string      `json:"author_name"`
	AuthorAvatar  string      `json:"author_avatar"`
	Caption       string      `json:"caption"`
	Media         []MediaItem `json:"media"`
	LikesCount    int64       `json:"likes_count"`
	CommentsCount int64       `json:"comments_count"`
	SharesCount   int64       `json:"shares_count"`
	Visibility    int8        `json:"visibility"`
	IsLiked       bool        `json:"is_liked"`
	Moderation    string      `json:"moderation"` // allow / flag / shadow，仅作者可见
	CreatedAt     time.Time   `json:"created_at"`
}

// CreateCommentReq 评论/回复请求
type CreateCommentReq struct {
	PostID         uint64      `json:"post_id" validate:"required"`
	ParentID       uint64      `json:"parent_id"` // 0 表示一级评论
	Content        string      `json:"content" validate:"required,max=1000"`
	Media          []MediaItem `json:"media" validate:"max=1,dive"`
	MentionUserIDs []uint64    `json:"mention_user_ids" validate:"max=20"`
}

// CommentDTO 评论返回详情
type CommentDTO struct {
	ID            uint64      `json:"id"`
	PostID        uint64      `json:"post_id"`
	UserID        uint64      `json:"user_id"`
	AuthorName    string      `json:"author_name"`
	Content       string      `json:"content"`
	Media         []MediaItem `json:"media"`
	ParentID      uint64      `json:"parent_id"`
	ReplyToUserID uint64      `json:"reply_to_user_id"`
	LikesCount    int64       `json:"likes_count"`
	RepliesCount  int64       `json:"replies_count"`
	Moderation    string      `json:"moderation,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
