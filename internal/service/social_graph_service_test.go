package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/mongo"
	"Agora/internal/pkg/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocialGraph_FollowIdempotent(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.graph.Follow(env.ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	res, err = env.graph.Follow(env.ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	a, err := env.graph.GetProfile(env.ctx, 0, 1)
	require.NoError(t, err)
	b, err := env.graph.GetProfile(env.ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, a.FollowingCount)
	assert.EqualValues(t, 1, b.FollowersCount)
	assert.True(t, b.IsFollowing)
	assert.Equal(t, "user2", b.Nickname)

	// 重复关注不产生第二条通知
	assert.Equal(t, 1, env.notifications.count(2, mongo.NotifyNewFollower))
}

func TestSocialGraph_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.graph.Follow(env.ctx, 1, 1)
	assert.ErrorIs(t, err, ErrFollowSelf)
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, env.graph.Block(env.ctx, 3, 3, ""), ErrBlockSelf)

	_, err = env.graph.Follow(env.ctx, 1, 9001)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSocialGraph_BlockSeversFollowsAndMessaging(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.graph.Follow(env.ctx, 1, 2)
	require.NoError(t, err)
	_, err = env.graph.Follow(env.ctx, 2, 1)
	require.NoError(t, err)
	_, err = env.conversation.SendMessage(env.ctx, 1, &dto.SendMessageReq{TargetUserID: 2, MsgType: mongo.MsgTypeText, Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, env.graph.Block(env.ctx, 1, 2, "spam"))

	for _, id := range []uint64{1, 2} {
		p, err := env.graph.GetProfile(env.ctx, 0, id)
		require.NoError(t, err)
		assert.Zero(t, p.FollowersCount)
		assert.Zero(t, p.FollowingCount)
	}
	following, err := env.graph.IsFollowing(env.ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, following)

	_, err = env.conversation.SendMessage(env.ctx, 1, &dto.SendMessageReq{TargetUserID: 2, MsgType: mongo.MsgTypeText, Content: "again"})
	assert.ErrorIs(t, err, ErrUserBlocked)
	_, err = env.conversation.SendMessage(env.ctx, 2, &dto.SendMessageReq{TargetUserID: 1, MsgType: mongo.MsgTypeText, Content: "reply"})
	assert.ErrorIs(t, err, ErrUserBlocked)
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = env.graph.Follow(env.ctx, 2, 1)
	assert.ErrorIs(t, err, ErrUserBlocked)

	// 会话侧的屏蔽标记同步
	list, err := env.conversation.GetConversationList(env.ctx, 1, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsBlocked)

	blocked, err := env.graph.ListBlocked(env.ctx, 1, 1, 20)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.EqualValues(t, 2, blocked[0].UserID)

	require.NoError(t, env.graph.Unblock(env.ctx, 1, 2))
	_, err = env.conversation.SendMessage(env.ctx, 2, &dto.SendMessageReq{TargetUserID: 1, MsgType: mongo.MsgTypeText, Content: "ok now"})
	require.NoError(t, err)

	conv, err := env.conversation.GetOrCreateConversation(env.ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, conv.IsBlocked)
	assert.Equal(t, util.PeerKey(1, 2), conv.ConversationKey)
}

func TestSocialGraph_ListFollowers(t *testing.T) {
	env := newTestEnv(t)
	for _, uid := range []uint64{2, 3, 4} {
		_, err := env.graph.Follow(env.ctx, uid, 1)
		require.NoError(t, err)
	}
	list, err := env.graph.ListFollowers(env.ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	following, err := env.graph.ListFollowing(env.ctx, 3, 1, 20)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "user1", following[0].Nickname)
}
