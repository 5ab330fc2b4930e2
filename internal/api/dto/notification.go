package dto

import "time"

// NotificationDTO 通知返回对象
type NotificationDTO struct {
	ID         string    `json:"id"`
	SenderID   uint64    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Type       int8      `json:"type"` // 1-帖子点赞, 2-评论, 3-回复, 4-评论点赞, 5-关注, 6-私信, 7-提及, 8-分享
	PostID     uint64    `json:"post_id,omitempty"`
	CommentID  uint64    `json:"comment_id,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// UnreadDTO 未读数返回
type UnreadDTO struct {
	UnreadCount int64 `json:"unread_count"`
}
