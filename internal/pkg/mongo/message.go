package mongo

import (
	"fmt"
	"time"
)

const (
	MsgTypeText  = 1
	MsgTypeVoice = 2
	MsgTypeImage = 3
)

// Message MongoDB 私信明细模型
type Message struct {
	ID                string     `bson:"_id" json:"id"`                             // 会话标识 + 序号，重复写入幂等
	ConversationID    uint64     `bson:"conversation_id" json:"conversationId"`     // 关联 MySQL 的会话 ID
	ConversationKey   string     `bson:"conversation_key" json:"conversationKey"`   // 会话标识 小ID_大ID
	SenderID          uint64     `bson:"sender_id" json:"senderId"`                 // 发送者 UID
	ReceiverID        uint64     `bson:"receiver_id" json:"receiverId"`             // 接收者 UID
	MsgType           int        `bson:"msg_type" json:"msgType"`                   // 1-文本, 2-语音, 3-图片
	Content           string     `bson:"content" json:"content"`                    // 文本内容或消息预览
	Payload           []Payload  `bson:"payload,omitempty" json:"payload"`          // 结构化附件
	Seq               uint64     `bson:"seq" json:"seq"`                            // 会话内序号 (来自 MySQL)
	IsFlagged         bool       `bson:"is_flagged" json:"-"`                       // 待人工复核
	IsShadowed        bool       `bson:"is_shadowed" json:"-"`                      // 仅发送者可见
	IsHidden          bool       `bson:"is_hidden" json:"-"`                        // 举报处理后隐藏
	ReportCount       int64      `bson:"report_count" json:"-"`                     // 有效举报数
	ReadAt            *time.Time `bson:"read_at,omitempty" json:"readAt,omitempty"` // 接收者已读时间
	DeletedBySender   bool       `bson:"deleted_by_sender" json:"-"`                // 发送者侧删除
	DeletedByReceiver bool       `bson:"deleted_by_receiver" json:"-"`              // 接收者侧删除
	CreatedAt         time.Time  `bson:"created_at" json:"createdAt"`               // 消息发送时间
}

// Payload 附件
type Payload struct {
	MimeType string  `bson:"mime_type" json:"mime_type"`
	MediaURL string  `bson:"url" json:"url"`
	Width    int     `bson:"width" json:"width"`
	Height   int     `bson:"height" json:"height"`
	Duration float64 `bson:"duration" json:"duration"`
}

// MessageID 生成消息主键
func MessageID(conversationKey string, seq uint64) string {
	return fmt.Sprintf("%s:%d", conversationKey, seq)
}

// IsParticipant 判断用户是否为消息双方之一
func (m *Message) IsParticipant(userID uint64) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}
