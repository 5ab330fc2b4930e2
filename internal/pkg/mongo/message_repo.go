package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	GetHistory(ctx context.Context, convID uint64, viewerID uint64, lastSeq uint64, pageSize int) ([]*Message, error)
	GetByID(ctx context.Context, id string) (*Message, error)
	MarkRead(ctx context.Context, convID uint64, readerID uint64, readAt time.Time) (int64, error)
	MarkDeleted(ctx context.Context, id string, bySender bool) error
	SetHidden(ctx context.Context, id string) error
	IncrReportCount(ctx context.Context, id string, delta int64) error
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection(MessageCollection),
	}
}

// SaveMessage 将消息存入 MongoDB，主键冲突视为已写入
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	_, err := s.col.InsertOne(ctx, msg)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// GetHistory 按 viewer 视角查询历史消息
// lastSeq 为当前页面最旧一条消息的序号。如果是第一页，传 0。
func (s *messageRepoImpl) GetHistory(ctx context.Context, convID uint64, viewerID uint64, lastSeq uint64, pageSize int) ([]*Message, error) {
	filter := bson.M{
		"conversation_id": convID,
		"is_hidden":       bson.M{"$ne": true},
		"$nor": bson.A{
			bson.M{"sender_id": viewerID, "deleted_by_sender": true},
			bson.M{"receiver_id": viewerID, "deleted_by_receiver": true},
			bson.M{"receiver_id": viewerID, "is_shadowed": true},
		},
	}

	if lastSeq > 0 {
		filter["seq"] = bson.M{"$lt": lastSeq}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(int64(pageSize))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// GetByID 精确查询
func (s *messageRepoImpl) GetByID(ctx context.Context, id string) (*Message, error) {
	var msg Message
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead 为 reader 收到的未读消息打上已读时间
func (s *messageRepoImpl) MarkRead(ctx context.Context, convID uint64, readerID uint64, readAt time.Time) (int64, error) {
	filter := bson.M{
		"conversation_id": convID,
		"receiver_id":     readerID,
		"read_at":         nil,
	}
	res, err := s.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read_at": readAt}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MarkDeleted 单侧删除
func (s *messageRepoImpl) MarkDeleted(ctx context.Context, id string, bySender bool) error {
	field := "deleted_by_receiver"
	if bySender {
		field = "deleted_by_sender"
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{field: true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetHidden 举报成立后对双方隐藏
func (s *messageRepoImpl) SetHidden(ctx context.Context, id string) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_hidden": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrReportCount 调整举报计数，不会减到负数
func (s *messageRepoImpl) IncrReportCount(ctx context.Context, id string, delta int64) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["report_count"] = bson.M{"$gte": -delta}
	}
	_, err := s.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"report_count": delta}})
	return err
}
