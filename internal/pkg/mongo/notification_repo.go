package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

//go:generate mockgen -destination=./mock/notification_repo_mock.go -package=mock -source=notification_repo.go

type NotificationRepo interface {
	Upsert(ctx context.Context, n *Notification) (bool, error)
	GetNotificationList(ctx context.Context, userID uint64, limit, offset int64) ([]*Notification, error)
	MarkAsRead(ctx context.Context, userID uint64, id string) error
	MarkAllAsRead(ctx context.Context, userID uint64) (int64, error)
	GetUnreadCount(ctx context.Context, userID uint64) (int64, error)
}

type notificationRepoImpl struct {
	col *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) NotificationRepo {
	return &notificationRepoImpl{
		col: db.Collection(NotificationCollection),
	}
}

// Upsert 未读期间同一 dedup_key 只保留一条，重复触发时刷新时间与文案
// 返回值表示是否新插入
func (s *notificationRepoImpl) Upsert(ctx context.Context, n *Notification) (bool, error) {
	now := time.Now()
	if n.DedupKey == "" {
		n.DedupKey = n.BuildDedupKey()
	}
	filter := bson.M{"dedup_key": n.DedupKey, "is_read": false}
	update := bson.M{
		"$set": bson.M{
			"sender_name": n.SenderName,
			"content":     n.Content,
			"created_at":  now,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{
			"receiver_id": n.ReceiverID,
			"sender_id":   n.SenderID,
			"type":        n.Type,
			"post_id":     n.PostID,
			"comment_id":  n.CommentID,
			"message_id":  n.MessageID,
		},
	}

	res, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return false, err
		}
		// 并发 upsert 撞上唯一索引，另一方已插入，再更新一次
		_, err = s.col.UpdateOne(ctx, filter, update)
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

// GetNotificationList 分页获取用户的通知列表 (按时间倒序)
func (s *notificationRepoImpl) GetNotificationList(ctx context.Context, userID uint64, limit, offset int64) ([]*Notification, error) {
	filter := bson.M{"receiver_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*Notification
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkAsRead 标记单条通知为已读
func (s *notificationRepoImpl) MarkAsRead(ctx context.Context, userID uint64, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}
	filter := bson.M{"_id": objectID, "receiver_id": userID}
	update := bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now()}}
	result, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkAllAsRead 一键清除未读
func (s *notificationRepoImpl) MarkAllAsRead(ctx context.Context, userID uint64) (int64, error) {
	filter := bson.M{"receiver_id": userID, "is_read": false}
	update := bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now()}}
	res, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// GetUnreadCount 获取用户的未读通知总数
func (s *notificationRepoImpl) GetUnreadCount(ctx context.Context, userID uint64) (int64, error) {
	filter := bson.M{"receiver_id": userID, "is_read": false}
	return s.col.CountDocuments(ctx, filter)
}
