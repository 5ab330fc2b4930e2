package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/mongo"
	"Agora/internal/pkg/redis"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textMsg(to uint64, content string) *dto.SendMessageReq {
	return &dto.SendMessageReq{TargetUserID: to, MsgType: mongo.MsgTypeText, Content: content}
}

func TestConversation_SameForBothOrders(t *testing.T) {
	env := newTestEnv(t)

	ab, err := env.conversation.GetOrCreateConversation(env.ctx, 7, 3)
	require.NoError(t, err)
	ba, err := env.conversation.GetOrCreateConversation(env.ctx, 3, 7)
	require.NoError(t, err)

	assert.Equal(t, ab.ConversationID, ba.ConversationID)
	assert.Equal(t, "3_7", ab.ConversationKey)
	assert.Equal(t, util.PeerKey(7, 3), ba.ConversationKey)
	assert.EqualValues(t, 3, ab.PeerID)
	assert.EqualValues(t, 7, ba.PeerID)

	_, err = env.conversation.GetOrCreateConversation(env.ctx, 3, 3)
	assert.ErrorIs(t, err, ErrMessageSelf)
}

func TestConversation_SendAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	const a, b = 10, 20

	msg, err := env.conversation.SendMessage(env.ctx, a, textMsg(b, "hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, msg.Seq)
	assert.Equal(t, util.PeerKey(a, b), msg.ConversationKey)
	assert.Equal(t, "allow", msg.Moderation)

	unreadB, err := env.conversation.GetTotalUnread(env.ctx, b)
	require.NoError(t, err)
	unreadA, err := env.conversation.GetTotalUnread(env.ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unreadB)
	assert.EqualValues(t, 0, unreadA)
	assert.Equal(t, 1, env.notifications.count(b, mongo.NotifyNewMessage))

	_, err = env.conversation.SendMessage(env.ctx, b, textMsg(a, "hi back"))
	require.NoError(t, err)

	require.NoError(t, env.conversation.MarkRead(env.ctx, msg.ConversationKey, b))
	unreadB, err = env.conversation.GetTotalUnread(env.ctx, b)
	require.NoError(t, err)
	unreadA, err = env.conversation.GetTotalUnread(env.ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 0, unreadB)
	assert.EqualValues(t, 1, unreadA)

	history, err := env.conversation.GetChatHistory(env.ctx, b, msg.ConversationKey, 0, 20)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.EqualValues(t, 2, history[0].Seq)
	require.NotNil(t, history[1].ReadAt)

	// 非参与方
	assert.ErrorIs(t, env.conversation.MarkRead(env.ctx, msg.ConversationKey, 30), UnauthorizedError)
	_, err = env.conversation.GetChatHistory(env.ctx, 30, msg.ConversationKey, 0, 20)
	assert.ErrorIs(t, err, UnauthorizedError)
}

func TestConversation_MessageNotificationsCollapse(t *testing.T) {
	env := newTestEnv(t)

	for _, content := range []string{"one", "two", "three"} {
		_, err := env.conversation.SendMessage(env.ctx, 1, textMsg(2, content))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, env.notifications.count(2, mongo.NotifyNewMessage))

	list, err := env.notify.GetNotificationList(env.ctx, 2, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "three", list[0].Content)
}

func TestConversation_MutedSuppressesNotification(t *testing.T) {
	env := newTestEnv(t)

	conv, err := env.conversation.GetOrCreateConversation(env.ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, env.conversation.SetMuted(env.ctx, 2, conv.ConversationKey, true))

	_, err = env.conversation.SendMessage(env.ctx, 1, textMsg(2, "ping"))
	require.NoError(t, err)
	assert.Zero(t, env.notifications.count(2, mongo.NotifyNewMessage))

	// 免打扰不影响未读
	unread, err := env.conversation.GetTotalUnread(env.ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestConversation_ShadowedMessage(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.moderation.CreateKeyword(env.ctx, &dto.KeywordReq{Keyword: "casino", Severity: 2})
	require.NoError(t, err)

	msg, err := env.conversation.SendMessage(env.ctx, 1, textMsg(2, "visit my casino"))
	require.NoError(t, err)
	assert.Equal(t, "shadow", msg.Moderation)

	unread, err := env.conversation.GetTotalUnread(env.ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, unread)
	assert.Zero(t, env.notifications.count(2, mongo.NotifyNewMessage))

	senderView, err := env.conversation.GetChatHistory(env.ctx, 1, msg.ConversationKey, 0, 20)
	require.NoError(t, err)
	require.Len(t, senderView, 1)
	assert.Equal(t, "shadow", senderView[0].Moderation)

	receiverView, err := env.conversation.GetChatHistory(env.ctx, 2, msg.ConversationKey, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, receiverView)
}

func TestConversation_RejectedAndInvalid(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.moderation.CreateKeyword(env.ctx, &dto.KeywordReq{Keyword: "scam", Severity: 3})
	require.NoError(t, err)

	_, err = env.conversation.SendMessage(env.ctx, 1, textMsg(2, "this is a scam"))
	assert.ErrorIs(t, err, ErrContentRejected)
	assert.ErrorIs(t, err, ErrPolicyViolation)

	_, err = env.conversation.SendMessage(env.ctx, 1, textMsg(2, "   "))
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = env.conversation.SendMessage(env.ctx, 1, &dto.SendMessageReq{TargetUserID: 2, MsgType: mongo.MsgTypeImage})
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = env.conversation.SendMessage(env.ctx, 1, textMsg(1, "me"))
	assert.ErrorIs(t, err, ErrMessageSelf)

	// 被拒绝的消息不创建会话
	list, err := env.conversation.GetConversationList(env.ctx, 1, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConversation_ImagePreviewAndDelete(t *testing.T) {
	env := newTestEnv(t)

	msg, err := env.conversation.SendMessage(env.ctx, 1, &dto.SendMessageReq{
		TargetUserID: 2,
		MsgType:      mongo.MsgTypeImage,
		Payload:      []dto.PayloadDTO{{MimeType: "image/png", URL: "https://cdn.example.com/a.png", Width: 10, Height: 10}},
	})
	require.NoError(t, err)

	list, err := env.conversation.GetConversationList(env.ctx, 2, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "[图片]", list[0].LastMsgContent)
	assert.Equal(t, "user1", list[0].PeerNickname)

	assert.ErrorIs(t, env.conversation.DeleteForUser(env.ctx, msg.ID, 3), UnauthorizedError)
	require.NoError(t, env.conversation.DeleteForUser(env.ctx, msg.ID, 2))
	assert.ErrorIs(t, env.conversation.DeleteForUser(env.ctx, "missing:1", 2), ErrMessageNotFound)

	receiverView, err := env.conversation.GetChatHistory(env.ctx, 2, msg.ConversationKey, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, receiverView)
	senderView, err := env.conversation.GetChatHistory(env.ctx, 1, msg.ConversationKey, 0, 20)
	require.NoError(t, err)
	assert.Len(t, senderView, 1)
}

// flakyMessageRepo 前 failures 次写入失败，beforeFail 在失败前调用
type flakyMessageRepo struct {
	*memMessageRepo
	mu         sync.Mutex
	failures   int
	calls      int
	beforeFail func()
}

func (r *flakyMessageRepo) SaveMessage(ctx context.Context, msg *mongo.Message) error {
	r.mu.Lock()
	r.calls++
	fail := r.failures < 0 || r.calls <= r.failures
	hook := r.beforeFail
	r.mu.Unlock()
	if fail {
		if hook != nil {
			hook()
		}
		return context.DeadlineExceeded
	}
	return r.memMessageRepo.SaveMessage(ctx, msg)
}

func (r *flakyMessageRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newConversationWith(t *testing.T, env *testEnv, messages mongo.MessageRepo, blockRepo repository.UserBlockRepo) ConversationService {
	t.Helper()
	if blockRepo == nil {
		blockRepo = repository.NewUserBlockRepo(env.db)
	}
	svc := NewConversationService(
		repository.NewConversationRepo(env.db), messages,
		repository.NewUserFollowRepo(env.db), blockRepo, repository.NewCommunityProfileRepo(env.db),
		env.moderation, fakeResolver{}, event.NewInlinePublisher(env.notify), testRetry,
	)
	t.Cleanup(svc.Close)
	return svc
}

func TestConversation_SaveFailureSurfaced(t *testing.T) {
	env := newTestEnv(t)
	repo := &flakyMessageRepo{memMessageRepo: newMemMessageRepo(), failures: -1}
	svc := newConversationWith(t, env, repo, nil)

	_, err := svc.SendMessage(env.ctx, 10, textMsg(20, "lost"))
	assert.ErrorIs(t, err, ErrTransientStore)
	assert.Equal(t, testRetry.Attempts, repo.callCount())

	unread, err := svc.GetTotalUnread(env.ctx, 20)
	require.NoError(t, err)
	assert.Zero(t, unread)
	assert.Zero(t, env.notifications.count(20, mongo.NotifyNewMessage))
	_, err = repo.GetByID(env.ctx, mongo.MessageID(util.PeerKey(10, 20), 1))
	assert.Error(t, err)
}

func TestConversation_SaveRetriedThenDelivered(t *testing.T) {
	env := newTestEnv(t)
	repo := &flakyMessageRepo{memMessageRepo: newMemMessageRepo(), failures: 1}
	svc := newConversationWith(t, env, repo, nil)

	msg, err := svc.SendMessage(env.ctx, 10, textMsg(20, "eventually"))
	require.NoError(t, err)
	stored, err := repo.GetByID(env.ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "eventually", stored.Content)
	assert.Equal(t, 1, env.notifications.count(20, mongo.NotifyNewMessage))
}

func TestConversation_CallerGoneAfterSequencing(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(env.ctx)
	repo := &flakyMessageRepo{memMessageRepo: newMemMessageRepo(), failures: 1, beforeFail: cancel}
	svc := newConversationWith(t, env, repo, nil)

	_, err := svc.SendMessage(ctx, 10, textMsg(20, "late"))
	assert.ErrorIs(t, err, context.Canceled)

	id := mongo.MessageID(util.PeerKey(10, 20), 1)
	assert.Eventually(t, func() bool {
		_, err := repo.GetByID(env.ctx, id)
		return err == nil && env.notifications.count(20, mongo.NotifyNewMessage) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// staleBlockRepo 读路径看不到刚写入的屏蔽
type staleBlockRepo struct {
	repository.UserBlockRepo
}

func (staleBlockRepo) IsBlocked(context.Context, uint64, uint64) (bool, error) {
	return false, nil
}

func TestConversation_BlockCheckedWhenSequencing(t *testing.T) {
	env := newTestEnv(t)
	blockRepo := repository.NewUserBlockRepo(env.db)
	svc := newConversationWith(t, env, newMemMessageRepo(), staleBlockRepo{UserBlockRepo: blockRepo})

	_, err := svc.SendMessage(env.ctx, 1, textMsg(2, "before"))
	require.NoError(t, err)
	_, err = blockRepo.CreateBlock(env.ctx, &model.UserBlock{BlockerID: 2, BlockedID: 1})
	require.NoError(t, err)

	_, err = svc.SendMessage(env.ctx, 1, textMsg(2, "after"))
	assert.ErrorIs(t, err, ErrUserBlocked)
	unread, err := svc.GetTotalUnread(env.ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestConversation_ReadReceiptCarriesStoredSeq(t *testing.T) {
	env := newTestEnv(t)
	const a, b = 10, 20
	var key string
	for _, content := range []string{"one", "two"} {
		msg, err := env.conversation.SendMessage(env.ctx, a, textMsg(b, content))
		require.NoError(t, err)
		key = msg.ConversationKey
	}

	ps := redis.Subscribe(env.ctx, consts.IMUserKey+strconv.Itoa(a))
	defer ps.Close()
	_, err := ps.Receive(env.ctx)
	require.NoError(t, err)

	require.NoError(t, env.conversation.MarkRead(env.ctx, key, b))

	select {
	case m := <-ps.Channel():
		var receipt dto.ReadReceiptDTO
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &receipt))
		assert.Equal(t, "READ_RECEIPT", receipt.Type)
		assert.EqualValues(t, b, receipt.UserID)
		assert.EqualValues(t, 2, receipt.ReadSeq)
	case <-time.After(2 * time.Second):
		t.Fatal("read receipt not published")
	}
}
