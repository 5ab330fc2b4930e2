package dto

import "time"

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	TargetUserID uint64       `json:"target_user_id" validate:"required"`
	MsgType      int          `json:"msg_type" validate:"required,oneof=1 2 3"` // 1-文本, 2-语音, 3-图片
	Content      string       `json:"content" validate:"max=4000"`
	Payload      []PayloadDTO `json:"payload" validate:"max=9,dive"`
}

// PayloadDTO 消息附件
type PayloadDTO struct {
	MimeType string  `json:"mime_type" validate:"required"`
	URL      string  `json:"url" validate:"required,max=512"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID              string       `json:"id"`
	ConversationID  uint64       `json:"conversation_id"`
	ConversationKey string       `json:"conversation_key"`
	SenderID        uint64       `json:"sender_id"`
	ReceiverID      uint64       `json:"receiver_id"`
	MsgType         int          `json:"msg_type"`
	Content         string       `json:"content"`
	Payload         []PayloadDTO `json:"payload"`
	Seq             uint64       `json:"seq"`
	ReadAt          *time.Time   `json:"read_at,omitempty"`
	Moderation      string       `json:"moderation,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	ConversationID  uint64    `json:"conversation_id"`
	ConversationKey string    `json:"conversation_key"`
	PeerID          uint64    `json:"peer_id"`
	PeerNickname    string    `json:"peer_nickname"`
	PeerAvatarURL   string    `json:"peer_avatar_url"`
	LastMsgContent  string    `json:"last_msg_content"`
	LastMsgType     int8      `json:"last_msg_type"`
	LastSenderID    uint64    `json:"last_sender_id"`
	LastMessageAt   time.Time `json:"last_message_at"`
	MaxMsgSeq       uint64    `json:"max_msg_seq"`
	UnreadCount     uint64    `json:"unread_count"`
	IsMuted         bool      `json:"is_muted"`
	IsBlocked       bool      `json:"is_blocked"`
}

// ReadReceiptDTO 已读回执推送
type ReadReceiptDTO struct {
	ConversationID uint64 `json:"conversation_id"`
	UserID         uint64 `json:"user_id"`
	ReadSeq        uint64 `json:"read_seq"`
	Type           string `json:"type"`
}

// MuteReq 免打扰开关
type MuteReq struct {
	Muted bool `json:"muted"`
}

// HistoryReq 历史消息分页，last_seq 为当前最旧一条的序号
type HistoryReq struct {
	LastSeq  uint64 `form:"last_seq"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}
