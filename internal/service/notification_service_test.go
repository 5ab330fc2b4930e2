package service

import (
	"Agora/internal/model"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/moderation"
	"Agora/internal/pkg/mongo"
	"Agora/internal/pkg/mongo/mock"
	"Agora/internal/pkg/testutil"
	"Agora/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

func newMockNotificationService(t *testing.T) (NotificationService, *mock.MockNotificationRepo, repository.UserBlockRepo) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockNotificationRepo(ctrl)
	db := testutil.NewTestDB(t)
	blockRepo := repository.NewUserBlockRepo(db)
	svc := NewNotificationService(repo, repository.NewConversationRepo(db), repository.NewUserFollowRepo(db), blockRepo, testRetry)
	return svc, repo, blockRepo
}

func blockOf(blocker, blocked uint64) *model.UserBlock {
	return &model.UserBlock{BlockerID: blocker, BlockedID: blocked, CreatedAt: time.Now()}
}

func TestNotification_ShadowSuppressesEverything(t *testing.T) {
	svc, repo, _ := newMockNotificationService(t)
	repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(0)

	evt := event.New(event.CommentCreated, 1, "user1")
	evt.TargetUserID = 2
	evt.PostID = 10
	evt.Mentions = []uint64{3, 4}
	evt.Verdict = moderation.ActionShadow
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
}

func TestNotification_FanOutRules(t *testing.T) {
	tests := []struct {
		name      string
		evt       func() *event.Event
		receivers []uint64
		types     []int8
	}{
		{
			name: "post like notifies author",
			evt: func() *event.Event {
				e := event.New(event.PostLiked, 1, "a")
				e.TargetUserID, e.PostID = 2, 10
				return e
			},
			receivers: []uint64{2},
			types:     []int8{mongo.NotifyPostLike},
		},
		{
			name: "self like is skipped",
			evt: func() *event.Event {
				e := event.New(event.PostLiked, 2, "a")
				e.TargetUserID, e.PostID = 2, 10
				return e
			},
		},
		{
			name: "top level comment notifies post author",
			evt: func() *event.Event {
				e := event.New(event.CommentCreated, 1, "a")
				e.TargetUserID, e.PostID, e.CommentID = 2, 10, 100
				return e
			},
			receivers: []uint64{2},
			types:     []int8{mongo.NotifyPostComment},
		},
		{
			name: "reply notifies parent author and mentions",
			evt: func() *event.Event {
				e := event.New(event.CommentCreated, 1, "a")
				e.TargetUserID, e.PostID, e.CommentID, e.ParentID = 3, 10, 101, 100
				e.Mentions = []uint64{4, 1, 4}
				return e
			},
			receivers: []uint64{3, 4},
			types:     []int8{mongo.NotifyCommentReply, mongo.NotifyMention},
		},
		{
			name: "follow",
			evt: func() *event.Event {
				e := event.New(event.Followed, 1, "a")
				e.TargetUserID = 5
				return e
			},
			receivers: []uint64{5},
			types:     []int8{mongo.NotifyNewFollower},
		},
		{
			name: "post without mentions",
			evt: func() *event.Event {
				e := event.New(event.PostCreated, 1, "a")
				e.PostID = 10
				return e
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newMockNotificationService(t)
			var got []*mongo.Notification
			repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, n *mongo.Notification) (bool, error) {
					got = append(got, n)
					return true, nil
				}).Times(len(tt.receivers))

			require.NoError(t, svc.HandleEvent(context.Background(), tt.evt()))
			require.Len(t, got, len(tt.receivers))
			for i, n := range got {
				assert.Equal(t, tt.receivers[i], n.ReceiverID)
				assert.Equal(t, tt.types[i], n.Type)
				assert.EqualValues(t, 1, n.SenderID)
			}
		})
	}
}

func TestNotification_BlockedPairSkipped(t *testing.T) {
	svc, repo, blockRepo := newMockNotificationService(t)
	_, err := blockRepo.CreateBlock(context.Background(), blockOf(2, 1))
	require.NoError(t, err)
	repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(0)

	evt := event.New(event.Followed, 1, "a")
	evt.TargetUserID = 2
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
}

func TestNotification_StoreFailureRetriedThenSurfaced(t *testing.T) {
	svc, repo, _ := newMockNotificationService(t)
	repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(false, context.DeadlineExceeded).Times(testRetry.Attempts)

	err := svc.Notify(context.Background(), &mongo.Notification{ReceiverID: 2, SenderID: 1, Type: mongo.NotifyPostLike, PostID: 1})
	assert.ErrorIs(t, err, ErrTransientStore)
}

func TestNotification_Inbox(t *testing.T) {
	svc, repo, _ := newMockNotificationService(t)
	ctx := context.Background()
	id := primitive.NewObjectID()

	repo.EXPECT().GetNotificationList(gomock.Any(), uint64(2), int64(20), int64(0)).Return([]*mongo.Notification{
		{ID: id, ReceiverID: 2, SenderID: 1, SenderName: "user1", Type: mongo.NotifyPostLike, PostID: 10},
		{ID: primitive.NewObjectID(), ReceiverID: 2, Type: mongo.NotifyMention},
	}, nil)
	list, err := svc.GetNotificationList(ctx, 2, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id.Hex(), list[0].ID)
	assert.Equal(t, "user1", list[0].SenderName)
	assert.EqualValues(t, 10, list[0].PostID)
	assert.Equal(t, "系统通知", list[1].SenderName)

	repo.EXPECT().GetUnreadCount(gomock.Any(), uint64(2)).Return(int64(5), nil)
	unread, err := svc.GetUnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, unread.UnreadCount)

	repo.EXPECT().MarkAsRead(gomock.Any(), uint64(2), "nope").Return(mongodrv.ErrNoDocuments)
	assert.ErrorIs(t, svc.MarkRead(ctx, 2, "nope"), ErrNotificationNotFound)

	repo.EXPECT().MarkAllAsRead(gomock.Any(), uint64(2)).Return(int64(0), errors.New("boom"))
	assert.Error(t, svc.MarkAllRead(ctx, 2))
}
