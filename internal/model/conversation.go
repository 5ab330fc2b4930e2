package model

import "time"

// Conversation 单聊会话主表
type Conversation struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PeerKey        string    `gorm:"uniqueIndex;type:varchar(64)" json:"peerKey"` // 小ID_大ID
	MaxMsgSeq      uint64    `gorm:"not null;default:0" json:"maxMsgSeq"`         // 序列号
	LastMsgContent string    `gorm:"type:varchar(255)" json:"lastMsgContent"`
	LastMsgType    int8      `gorm:"not null;default:1" json:"lastMsgType"`
	LastSenderID   uint64    `gorm:"not null;default:0" json:"lastSenderId"`
	LastMessageAt  time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }

// ConversationMember 会话成员，保存每个参与者自己的状态
type ConversationMember struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64     `gorm:"uniqueIndex:idx_conv_user" json:"conversationId"`
	UserID         uint64     `gorm:"uniqueIndex:idx_conv_user;index" json:"userId"`
	Nickname       string     `gorm:"type:varchar(64)" json:"nickname"`
	AvatarURL      string     `gorm:"type:varchar(512)" json:"avatarUrl"`
	UnreadCount    uint64     `gorm:"not null;default:0" json:"unreadCount"`
	ReadMsgSeq     uint64     `gorm:"not null;default:0" json:"readMsgSeq"` // 已读进度
	LastReadAt     *time.Time `json:"lastReadAt"`
	IsMuted        bool       `gorm:"type:tinyint(1);not null;default:0" json:"isMuted"`
	IsBlocked      bool       `gorm:"type:tinyint(1);not null;default:0" json:"isBlocked"` // 屏蔽关系的会话侧缓存
	JoinedAt       time.Time  `json:"joinedAt"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"conversation"`
}

func (ConversationMember) TableName() string { return "conversation_members" }
