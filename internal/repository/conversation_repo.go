package repository

import (
	"Agora/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppendParams 一条新私信对会话摘要的影响
type AppendParams struct {
	ConversationID uint64
	SenderID       uint64
	ReceiverID     uint64
	Preview        string
	MsgType        int8
	VisibleToPeer  bool // 被静默的消息只占用序号，不更新预览与对方未读
}

type ConversationRepo interface {
	CreateConversation(ctx context.Context, conv *model.Conversation, members []*model.ConversationMember) error
	GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error)
	GetConversationByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error)
	GetMember(ctx context.Context, convID uint64, userID uint64) (*model.ConversationMember, error)
	GetMembers(ctx context.Context, convID uint64) ([]*model.ConversationMember, error)

	AppendMessage(ctx context.Context, params *AppendParams) (uint64, error)
	RevertAppend(ctx context.Context, params *AppendParams) error
	MarkRead(ctx context.Context, convID uint64, readerID uint64) (uint64, error)
	SetMuted(ctx context.Context, convID uint64, userID uint64, muted bool) error
	SetBlocked(ctx context.Context, peerKey string, userID uint64, blocked bool) error

	GetUserConversationMemList(ctx context.Context, userID uint64, limit, offset int) ([]*model.ConversationMember, error)
	GetTotalUnreadCount(ctx context.Context, userID uint64) (int64, error)
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

// CreateConversation 开启事务创建会话及双方成员，peer_key 唯一索引保证同一对用户只有一个会话
func (s *conversationRepoImpl) CreateConversation(ctx context.Context, conv *model.Conversation, members []*model.ConversationMember) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, m := range members {
			m.ConversationID = conv.ID
			m.JoinedAt = time.Now()
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetConversation 根据会话 ID 获取会话
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, convID).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversationByPeerKey 根据会话标识获取会话
func (s *conversationRepoImpl) GetConversationByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("peer_key = ?", peerKey).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetMember 获取成员状态
func (s *conversationRepoImpl) GetMember(ctx context.Context, convID uint64, userID uint64) (*model.ConversationMember, error) {
	var m model.ConversationMember
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMembers 获取会话双方
func (s *conversationRepoImpl) GetMembers(ctx context.Context, convID uint64) ([]*model.ConversationMember, error) {
	var members []*model.ConversationMember
	err := s.db.WithContext(ctx).Where("conversation_id = ?", convID).Find(&members).Error
	return members, err
}

// AppendMessage 核心定序逻辑：利用行锁确保 Seq 递增，同时更新预览与接收方未读数
// 与屏蔽写入锁同一组档案行，双方存在屏蔽时回滚并返回 ErrRelationBlocked
func (s *conversationRepoImpl) AppendMessage(ctx context.Context, params *AppendParams) (uint64, error) {
	var maxSeq uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProfiles(tx, params.SenderID, params.ReceiverID); err != nil {
			return err
		}
		blocked, err := blockExists(tx, params.SenderID, params.ReceiverID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrRelationBlocked
		}

		updates := map[string]interface{}{
			"max_msg_seq": gorm.Expr("max_msg_seq + 1"),
			"updated_at":  time.Now(),
		}
		if params.VisibleToPeer {
			updates["last_msg_content"] = params.Preview
			updates["last_msg_type"] = params.MsgType
			updates["last_sender_id"] = params.SenderID
			updates["last_message_at"] = time.Now()
		}
		res := tx.Model(&model.Conversation{}).Where("id = ?", params.ConversationID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTargetGone
		}

		if params.VisibleToPeer {
			err = tx.Model(&model.ConversationMember{}).
				Where("conversation_id = ? AND user_id = ?", params.ConversationID, params.ReceiverID).
				UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
			if err != nil {
				return err
			}
		}

		// 读取并返回自增后的最新 Seq
		return tx.Model(&model.Conversation{}).Select("max_msg_seq").Where("id = ?", params.ConversationID).Scan(&maxSeq).Error
	})
	return maxSeq, err
}

// RevertAppend 消息正文最终未能落库时回退接收方未读，序号不回收
func (s *conversationRepoImpl) RevertAppend(ctx context.Context, params *AppendParams) error {
	if !params.VisibleToPeer {
		return nil
	}
	return s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", params.ConversationID, params.ReceiverID).
		UpdateColumn("unread_count", gorm.Expr(fmt.Sprintf(decrExpr, "unread_count"))).Error
}

// MarkRead 只清零 reader 自己的未读数并推进已读进度，返回写入的已读序号
func (s *conversationRepoImpl) MarkRead(ctx context.Context, convID uint64, readerID uint64) (uint64, error) {
	var maxSeq uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Conversation{}).Select("max_msg_seq").Where("id = ?", convID).Scan(&maxSeq).Error; err != nil {
			return err
		}
		now := time.Now()
		res := tx.Model(&model.ConversationMember{}).
			Where("conversation_id = ? AND user_id = ?", convID, readerID).
			Updates(map[string]interface{}{
				"unread_count": 0,
				"read_msg_seq": maxSeq,
				"last_read_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTargetGone
		}
		return nil
	})
	return maxSeq, err
}

// SetMuted 会话免打扰，仅影响自己
func (s *conversationRepoImpl) SetMuted(ctx context.Context, convID uint64, userID uint64, muted bool) error {
	res := s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Updates(map[string]interface{}{"is_muted": muted})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL 值未变化时影响行数为 0，再确认成员是否存在
		if _, err := s.GetMember(ctx, convID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTargetGone
			}
			return err
		}
	}
	return nil
}

// SetBlocked 同步屏蔽关系到会话侧缓存，会话不存在时忽略
func (s *conversationRepoImpl) SetBlocked(ctx context.Context, peerKey string, userID uint64, blocked bool) error {
	db := s.db.WithContext(ctx)
	return db.Model(&model.ConversationMember{}).
		Where("conversation_id = (?) AND user_id = ?",
			db.Model(&model.Conversation{}).Select("id").Where("peer_key = ?", peerKey), userID).
		Update("is_blocked", blocked).Error
}

// GetUserConversationMemList 用户的会话列表，按最后消息时间倒序
func (s *conversationRepoImpl) GetUserConversationMemList(ctx context.Context, userID uint64, limit, offset int) ([]*model.ConversationMember, error) {
	var members []*model.ConversationMember
	err := s.db.WithContext(ctx).
		Joins("Conversation").
		Where("conversation_members.user_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "Conversation", Name: "last_message_at"}, Desc: true}).
		Limit(limit).Offset(offset).
		Find(&members).Error
	return members, err
}

// GetTotalUnreadCount 计算全局未读数
func (s *conversationRepoImpl) GetTotalUnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(unread_count), 0)").
		Scan(&total).Error
	return total, err
}
