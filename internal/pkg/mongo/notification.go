package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 通知类型
const (
	NotifyPostLike     int8 = 1
	NotifyPostComment  int8 = 2
	NotifyCommentReply int8 = 3
	NotifyCommentLike  int8 = 4
	NotifyNewFollower  int8 = 5
	NotifyNewMessage   int8 = 6
	NotifyMention      int8 = 7
	NotifyPostShared   int8 = 8
)

// Notification 用户通知模型
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReceiverID uint64             `bson:"receiver_id" json:"receiverId"`         // 接收者ID
	SenderID   uint64             `bson:"sender_id" json:"senderId"`             // 动作发起者ID
	SenderName string             `bson:"sender_name" json:"senderName"`         // 发起者昵称快照
	Type       int8               `bson:"type" json:"type"`                      // 通知类型
	PostID     uint64             `bson:"post_id,omitempty" json:"postId"`       // 关联帖子
	CommentID  uint64             `bson:"comment_id,omitempty" json:"commentId"` // 关联评论
	MessageID  string             `bson:"message_id,omitempty" json:"messageId"` // 关联私信
	Content    string             `bson:"content" json:"content"`                // 文案预览或内容片段
	DedupKey   string             `bson:"dedup_key" json:"-"`                    // 未读期间的去重键
	IsRead     bool               `bson:"is_read" json:"isRead"`                 // 是否已读
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`           // 最近一次触发时间
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}

// BuildDedupKey 接收者 + 类型 + 发起者 + 关联对象
func (n *Notification) BuildDedupKey() string {
	return fmt.Sprintf("%d:%d:%d:%d:%d:%s", n.ReceiverID, n.Type, n.SenderID, n.PostID, n.CommentID, n.MessageID)
}
