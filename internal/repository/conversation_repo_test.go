package repository

import (
	"Agora/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRepo_AppendAndMarkRead(t *testing.T) {
	db, ctx := newDB(t)
	repo := NewConversationRepo(db)

	conv := &model.Conversation{PeerKey: "1_2"}
	members := []*model.ConversationMember{{UserID: 1}, {UserID: 2}}
	require.NoError(t, repo.CreateConversation(ctx, conv, members))

	// 同一个 peer_key 不能重复创建
	err := repo.CreateConversation(ctx, &model.Conversation{PeerKey: "1_2"}, nil)
	assert.Error(t, err)

	seq, err := repo.AppendMessage(ctx, &AppendParams{
		ConversationID: conv.ID, SenderID: 1, ReceiverID: 2, Preview: "hello", MsgType: 1, VisibleToPeer: true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, seq)

	seq, err = repo.AppendMessage(ctx, &AppendParams{
		ConversationID: conv.ID, SenderID: 1, ReceiverID: 2, Preview: "hidden", MsgType: 1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)

	got, err := repo.GetConversationByPeerKey(ctx, "1_2")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.LastMsgContent)

	m2, err := repo.GetMember(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m2.UnreadCount)
	m1, err := repo.GetMember(ctx, conv.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, m1.UnreadCount)

	lost := &AppendParams{ConversationID: conv.ID, SenderID: 1, ReceiverID: 2, Preview: "lost", MsgType: 1, VisibleToPeer: true}
	seq, err = repo.AppendMessage(ctx, lost)
	require.NoError(t, err)
	assert.EqualValues(t, 3, seq)
	require.NoError(t, repo.RevertAppend(ctx, lost))
	m2, err = repo.GetMember(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m2.UnreadCount)

	readSeq, err := repo.MarkRead(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, readSeq)
	m2, err = repo.GetMember(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, m2.UnreadCount)
	assert.EqualValues(t, 3, m2.ReadMsgSeq)

	require.NoError(t, repo.SetMuted(ctx, conv.ID, 2, true))
	require.NoError(t, repo.SetMuted(ctx, conv.ID, 2, true))
	assert.ErrorIs(t, repo.SetMuted(ctx, conv.ID, 3, true), ErrTargetGone)

	require.NoError(t, repo.SetBlocked(ctx, "1_2", 1, true))
	m1, err = repo.GetMember(ctx, conv.ID, 1)
	require.NoError(t, err)
	assert.True(t, m1.IsBlocked)

	list, err := repo.GetUserConversationMemList(ctx, 2, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1_2", list[0].Conversation.PeerKey)
}

func TestConversationRepo_AppendRejectedAfterBlock(t *testing.T) {
	db, ctx := newDB(t)
	seedProfiles(t, db, 1, 2)
	repo := NewConversationRepo(db)

	conv := &model.Conversation{PeerKey: "1_2"}
	require.NoError(t, repo.CreateConversation(ctx, conv, []*model.ConversationMember{{UserID: 1}, {UserID: 2}}))

	_, err := NewUserBlockRepo(db).CreateBlock(ctx, &model.UserBlock{BlockerID: 2, BlockedID: 1})
	require.NoError(t, err)

	_, err = repo.AppendMessage(ctx, &AppendParams{
		ConversationID: conv.ID, SenderID: 1, ReceiverID: 2, Preview: "hi", MsgType: 1, VisibleToPeer: true,
	})
	assert.ErrorIs(t, err, ErrRelationBlocked)

	got, err := repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, got.MaxMsgSeq)
	m2, err := repo.GetMember(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.Zero(t, m2.UnreadCount)
}
