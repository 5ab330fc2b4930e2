package event

import (
	"Agora/internal/pkg/moderation"
	"context"
	"time"

	"github.com/google/uuid"
)

// Type 社区事件类型
type Type string

const (
	PostCreated    Type = "post_created"
	CommentCreated Type = "comment_created"
	PostLiked      Type = "post_liked"
	CommentLiked   Type = "comment_liked"
	PostShared     Type = "post_shared"
	Followed       Type = "followed"
	MessageSent    Type = "message_sent"
)

// Event 主写入成功后产生的事件描述，通知侧据此决定是否通知、通知谁
type Event struct {
	ID             string            `json:"id"`
	Type           Type              `json:"type"`
	ActorID        uint64            `json:"actorId"`
	ActorName      string            `json:"actorName"`
	TargetUserID   uint64            `json:"targetUserId,omitempty"` // 关注对象 / 私信接收者
	PostID         uint64            `json:"postId,omitempty"`
	CommentID      uint64            `json:"commentId,omitempty"`
	ParentID       uint64            `json:"parentId,omitempty"`
	ConversationID uint64            `json:"conversationId,omitempty"`
	MessageID      string            `json:"messageId,omitempty"`
	Mentions       []uint64          `json:"mentions,omitempty"`
	Snippet        string            `json:"snippet,omitempty"`
	Verdict        moderation.Action `json:"verdict"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

// New 生成带 ID 与时间戳的事件
func New(t Type, actorID uint64, actorName string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       t,
		ActorID:    actorID,
		ActorName:  actorName,
		OccurredAt: time.Now().UTC(),
	}
}

// Shadowed 被静默处理的内容不对外扩散
func (e *Event) Shadowed() bool {
	return e.Verdict == moderation.ActionShadow
}

// Publisher 事件发布者，失败不影响主写入
type Publisher interface {
	Publish(ctx context.Context, evt *Event) error
}

// Handler 事件消费者
type Handler interface {
	HandleEvent(ctx context.Context, evt *Event) error
}
