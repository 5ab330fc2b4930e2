package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/mongo"
	"Agora/internal/pkg/redis"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

// NotificationService 通知分发与收件箱，同时作为事件消费者
type NotificationService interface {
	event.Handler
	Notify(ctx context.Context, n *mongo.Notification) error
	GetNotificationList(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.NotificationDTO, error)
	GetUnreadCount(ctx context.Context, userID uint64) (*dto.UnreadDTO, error)
	MarkRead(ctx context.Context, userID uint64, id string) error
	MarkAllRead(ctx context.Context, userID uint64) error
}

type notificationServiceImpl struct {
	notificationRepo mongo.NotificationRepo
	convRepo         repository.ConversationRepo
	gate             *contentGate
	retry            RetryPolicy
}

func NewNotificationService(
	notificationRepo mongo.NotificationRepo,
	convRepo repository.ConversationRepo,
	followRepo repository.UserFollowRepo,
	blockRepo repository.UserBlockRepo,
	retry RetryPolicy,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		convRepo:         convRepo,
		gate:             &contentGate{followRepo: followRepo, blockRepo: blockRepo, retry: retry},
		retry:            retry,
	}
}

// HandleEvent 事件到通知的唯一分发规则
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	if evt.Shadowed() {
		return nil
	}

	base := mongo.Notification{
		SenderID:   evt.ActorID,
		SenderName: evt.ActorName,
		PostID:     evt.PostID,
		CommentID:  evt.CommentID,
		Content:    evt.Snippet,
	}
	var list []*mongo.Notification
	add := func(receiverID uint64, typ int8) {
		n := base
		n.ReceiverID = receiverID
		n.Type = typ
		list = append(list, &n)
	}

	switch evt.Type {
	case event.PostLiked:
		add(evt.TargetUserID, mongo.NotifyPostLike)
	case event.CommentLiked:
		add(evt.TargetUserID, mongo.NotifyCommentLike)
	case event.PostShared:
		add(evt.TargetUserID, mongo.NotifyPostShared)
	case event.Followed:
		add(evt.TargetUserID, mongo.NotifyNewFollower)
	case event.CommentCreated:
		if evt.ParentID == 0 {
			add(evt.TargetUserID, mongo.NotifyPostComment)
		} else {
			add(evt.TargetUserID, mongo.NotifyCommentReply)
		}
	case event.PostCreated:
		// 新帖只通知被提及的人
	case event.MessageSent:
		n, err := s.messageNotification(ctx, evt)
		if err != nil || n == nil {
			return err
		}
		list = append(list, n)
	default:
		log.WarnContext(ctx, "unknown event type", "event_id", evt.ID, "type", evt.Type)
		return nil
	}

	for _, uid := range util.DedupIDs(evt.Mentions, evt.ActorID) {
		add(uid, mongo.NotifyMention)
	}

	for _, n := range list {
		if err := s.Notify(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// messageNotification 任意一方免打扰或屏蔽了会话时不通知
func (s *notificationServiceImpl) messageNotification(ctx context.Context, evt *event.Event) (*mongo.Notification, error) {
	var suppressed bool
	err := s.retry.Do(ctx, "get conversation members", func(ctx context.Context) error {
		members, err := s.convRepo.GetMembers(ctx, evt.ConversationID)
		if err != nil {
			return err
		}
		suppressed = false
		for _, m := range members {
			if m.IsMuted || m.IsBlocked {
				suppressed = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if suppressed {
		return nil, nil
	}

	n := &mongo.Notification{
		ReceiverID: evt.TargetUserID,
		SenderID:   evt.ActorID,
		SenderName: evt.ActorName,
		Type:       mongo.NotifyNewMessage,
		MessageID:  evt.MessageID,
		Content:    evt.Snippet,
	}
	// 同一会话未读期间只保留一条私信通知
	n.DedupKey = fmt.Sprintf("%d:%d:%d:conv:%d", n.ReceiverID, n.Type, n.SenderID, evt.ConversationID)
	return n, nil
}

// Notify 写入一条通知，未读期间同一去重键的重复触发只刷新时间
func (s *notificationServiceImpl) Notify(ctx context.Context, n *mongo.Notification) error {
	if n.ReceiverID == 0 || n.ReceiverID == n.SenderID {
		return nil
	}
	if n.SenderID != 0 {
		blocked, err := s.gate.blocked(ctx, n.SenderID, n.ReceiverID)
		if err != nil {
			return err
		}
		if blocked {
			return nil
		}
	}

	var created bool
	err := s.retry.Do(ctx, "upsert notification", func(ctx context.Context) error {
		var err error
		created, err = s.notificationRepo.Upsert(ctx, n)
		return err
	})
	if err != nil {
		return err
	}
	log.DebugContext(ctx, "notification stored", "receiver_id", n.ReceiverID, "type", n.Type, "created", created)
	s.pushHint(ctx, n)
	return nil
}

// pushHint 通知实时通道有新通知，失败只记录
func (s *notificationServiceImpl) pushHint(ctx context.Context, n *mongo.Notification) {
	if redis.Rdb == nil {
		return
	}
	data, err := json.Marshal(map[string]any{
		"type":        "NOTIFICATION",
		"notify_type": n.Type,
		"sender_id":   n.SenderID,
		"sender_name": n.SenderName,
		"content":     n.Content,
		"post_id":     n.PostID,
		"comment_id":  n.CommentID,
		"message_id":  n.MessageID,
	})
	if err != nil {
		return
	}
	channel := consts.IMUserKey + strconv.FormatUint(n.ReceiverID, 10)
	if err = redis.Publish(context.WithoutCancel(ctx), channel, data); err != nil {
		log.WarnContext(ctx, "publish notification hint failed", "receiver_id", n.ReceiverID, "err", err)
	}
}

// GetNotificationList 获取通知列表
func (s *notificationServiceImpl) GetNotificationList(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.NotificationDTO, error) {
	limit, offset := util.NormalizePage(page, pageSize)

	var list []*mongo.Notification
	err := s.retry.Do(ctx, "list notifications", func(ctx context.Context) error {
		var err error
		list, err = s.notificationRepo.GetNotificationList(ctx, userID, int64(limit), int64(offset))
		return err
	})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.NotificationDTO, 0, len(list))
	for _, m := range list {
		d := &dto.NotificationDTO{}
		_ = copier.Copy(d, m)
		d.ID = m.ID.Hex()
		if m.SenderID == 0 {
			d.SenderName = "系统通知"
		}
		res = append(res, d)
	}
	return res, nil
}

// GetUnreadCount 获取未读数
func (s *notificationServiceImpl) GetUnreadCount(ctx context.Context, userID uint64) (*dto.UnreadDTO, error) {
	var count int64
	err := s.retry.Do(ctx, "notification unread count", func(ctx context.Context) error {
		var err error
		count, err = s.notificationRepo.GetUnreadCount(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dto.UnreadDTO{UnreadCount: count}, nil
}

// MarkRead 标记单条已读，只能操作自己的通知
func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID uint64, id string) error {
	err := s.retry.Do(ctx, "mark notification read", func(ctx context.Context) error {
		return s.notificationRepo.MarkAsRead(ctx, userID, id)
	})
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllRead 一键已读
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID uint64) error {
	return s.retry.Do(ctx, "mark all notifications read", func(ctx context.Context) error {
		_, err := s.notificationRepo.MarkAllAsRead(ctx, userID)
		return err
	})
}
