package service

import (
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/identity"
	"Agora/internal/pkg/mongo"
	"Agora/internal/pkg/testutil"
	"Agora/internal/repository"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

var testRetry = RetryPolicy{Attempts: 2, Timeout: time.Second, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

type fakeResolver struct{}

func (fakeResolver) GetUser(_ context.Context, userID uint64) (*identity.UserInfo, error) {
	if userID >= 9000 {
		return nil, identity.ErrUserNotFound
	}
	return &identity.UserInfo{ID: userID, Nickname: fmt.Sprintf("user%d", userID)}, nil
}

// memMessageRepo 内存版私信存储
type memMessageRepo struct {
	mu   sync.Mutex
	msgs map[string]*mongo.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{msgs: make(map[string]*mongo.Message)}
}

func (r *memMessageRepo) SaveMessage(_ context.Context, msg *mongo.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.msgs[msg.ID]; ok {
		return nil
	}
	cp := *msg
	r.msgs[msg.ID] = &cp
	return nil
}

func (r *memMessageRepo) GetHistory(_ context.Context, convID, viewerID, lastSeq uint64, pageSize int) ([]*mongo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*mongo.Message
	for _, m := range r.msgs {
		if m.ConversationID != convID || m.IsHidden {
			continue
		}
		if (m.SenderID == viewerID && m.DeletedBySender) ||
			(m.ReceiverID == viewerID && (m.DeletedByReceiver || m.IsShadowed)) {
			continue
		}
		if lastSeq > 0 && m.Seq >= lastSeq {
			continue
		}
		cp := *m
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Seq > res[j].Seq })
	if len(res) > pageSize {
		res = res[:pageSize]
	}
	return res, nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id string) (*mongo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, mongodrv.ErrNoDocuments
	}
	cp := *m
	return &cp, nil
}

func (r *memMessageRepo) MarkRead(_ context.Context, convID, readerID uint64, readAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.msgs {
		if m.ConversationID == convID && m.ReceiverID == readerID && m.ReadAt == nil {
			t := readAt
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) update(id string, fn func(m *mongo.Message)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return mongodrv.ErrNoDocuments
	}
	fn(m)
	return nil
}

func (r *memMessageRepo) MarkDeleted(_ context.Context, id string, bySender bool) error {
	return r.update(id, func(m *mongo.Message) {
		if bySender {
			m.DeletedBySender = true
		} else {
			m.DeletedByReceiver = true
		}
	})
}

func (r *memMessageRepo) SetHidden(_ context.Context, id string) error {
	return r.update(id, func(m *mongo.Message) { m.IsHidden = true })
}

func (r *memMessageRepo) IncrReportCount(_ context.Context, id string, delta int64) error {
	err := r.update(id, func(m *mongo.Message) {
		if m.ReportCount+delta >= 0 {
			m.ReportCount += delta
		}
	})
	if err == mongodrv.ErrNoDocuments {
		return nil
	}
	return err
}

// memNotificationRepo 内存版通知存储，去重语义与 MongoDB 实现一致
type memNotificationRepo struct {
	mu   sync.Mutex
	list []*mongo.Notification
}

func (r *memNotificationRepo) Upsert(_ context.Context, n *mongo.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.DedupKey == "" {
		n.DedupKey = n.BuildDedupKey()
	}
	now := time.Now()
	for _, existing := range r.list {
		if existing.DedupKey == n.DedupKey && !existing.IsRead {
			existing.Content = n.Content
			existing.SenderName = n.SenderName
			existing.CreatedAt = now
			return false, nil
		}
	}
	cp := *n
	cp.ID = primitive.NewObjectID()
	cp.CreatedAt = now
	r.list = append(r.list, &cp)
	return true, nil
}

func (r *memNotificationRepo) GetNotificationList(_ context.Context, userID uint64, limit, offset int64) ([]*mongo.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*mongo.Notification
	for i := len(r.list) - 1; i >= 0; i-- {
		if r.list[i].ReceiverID == userID {
			res = append(res, r.list[i])
		}
	}
	if offset >= int64(len(res)) {
		return nil, nil
	}
	res = res[offset:]
	if int64(len(res)) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *memNotificationRepo) MarkAsRead(_ context.Context, userID uint64, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.list {
		if n.ID.Hex() == id && n.ReceiverID == userID {
			n.IsRead = true
			return nil
		}
	}
	return mongodrv.ErrNoDocuments
}

func (r *memNotificationRepo) MarkAllAsRead(_ context.Context, userID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.list {
		if item.ReceiverID == userID && !item.IsRead {
			item.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *memNotificationRepo) GetUnreadCount(_ context.Context, userID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.list {
		if item.ReceiverID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *memNotificationRepo) count(receiverID uint64, typ int8) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.list {
		if item.ReceiverID == receiverID && item.Type == typ {
			n++
		}
	}
	return n
}

// testEnv 装配完整服务，事件同步投递给通知服务
type testEnv struct {
	db            *gorm.DB
	redis         *miniredis.Miniredis
	ctx           context.Context
	messages      *memMessageRepo
	notifications *memNotificationRepo

	moderation   ModerationService
	graph        SocialGraphService
	engagement   EngagementService
	posts        PostService
	conversation ConversationService
	reports      ReportService
	notify       NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	mr := testutil.NewTestRedis(t)

	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepo(db)
	engagementRepo := repository.NewEngagementRepo(db)
	followRepo := repository.NewUserFollowRepo(db)
	blockRepo := repository.NewUserBlockRepo(db)
	profileRepo := repository.NewCommunityProfileRepo(db)
	convRepo := repository.NewConversationRepo(db)
	reportRepo := repository.NewContentReportRepo(db)
	keywordRepo := repository.NewBannedKeywordRepo(db)
	resolver := fakeResolver{}

	env := &testEnv{
		db:            db,
		redis:         mr,
		ctx:           context.Background(),
		messages:      newMemMessageRepo(),
		notifications: &memNotificationRepo{},
	}
	env.notify = NewNotificationService(env.notifications, convRepo, followRepo, blockRepo, testRetry)
	publisher := event.NewInlinePublisher(env.notify)

	env.moderation = NewModerationService(keywordRepo, testRetry, time.Minute)
	env.graph = NewSocialGraphService(followRepo, blockRepo, profileRepo, convRepo, resolver, publisher, testRetry)
	env.engagement = NewEngagementService(engagementRepo, postRepo, commentRepo, followRepo, blockRepo, profileRepo, resolver, publisher, testRetry)
	env.posts = NewPostService(postRepo, commentRepo, engagementRepo, followRepo, blockRepo, profileRepo, env.moderation, resolver, publisher, testRetry)
	env.conversation = NewConversationService(convRepo, env.messages, followRepo, blockRepo, profileRepo, env.moderation, resolver, publisher, testRetry)
	env.reports = NewReportService(reportRepo, postRepo, commentRepo, env.messages, profileRepo, resolver, testRetry, 3)
	t.Cleanup(env.conversation.Close)
	return env
}
