package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/mongo"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPost(t *testing.T, env *testEnv, userID uint64, caption string) *dto.PostDTO {
	t.Helper()
	post, err := env.posts.CreatePost(env.ctx, userID, &dto.CreatePostReq{Caption: caption})
	require.NoError(t, err)
	return post
}

func TestPost_CommentAndReplyCounters(t *testing.T) {
	env := newTestEnv(t)
	post := createPost(t, env, 1, "first post")

	c1, err := env.posts.CreateComment(env.ctx, 2, &dto.CreateCommentReq{PostID: post.ID, Content: "nice"})
	require.NoError(t, err)
	c2, err := env.posts.CreateComment(env.ctx, 3, &dto.CreateCommentReq{PostID: post.ID, ParentID: c1.ID, Content: "agreed"})
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ParentID)
	assert.EqualValues(t, 2, c2.ReplyToUserID)

	got, err := env.posts.GetPost(env.ctx, 4, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.CommentsCount)

	top, err := env.posts.ListComments(env.ctx, 4, post.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.EqualValues(t, 1, top[0].RepliesCount)

	// 评论通知帖子作者，回复通知被回复的评论作者
	assert.Equal(t, 1, env.notifications.count(1, mongo.NotifyPostComment))
	assert.Equal(t, 1, env.notifications.count(2, mongo.NotifyCommentReply))
	assert.Zero(t, env.notifications.count(1, mongo.NotifyCommentReply))

	assert.ErrorIs(t, env.posts.DeleteComment(env.ctx, 2, c2.ID), UnauthorizedError)
	require.NoError(t, env.posts.DeleteComment(env.ctx, 3, c2.ID))
	assert.ErrorIs(t, env.posts.DeleteComment(env.ctx, 3, c2.ID), ErrPostCommentNotFound)

	got, err = env.posts.GetPost(env.ctx, 4, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.CommentsCount)
	top, err = env.posts.ListComments(env.ctx, 4, post.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Zero(t, top[0].RepliesCount)
}

func TestPost_ReplyToReplyIsFlattened(t *testing.T) {
	env := newTestEnv(t)
	post := createPost(t, env, 1, "thread")

	c1, err := env.posts.CreateComment(env.ctx, 2, &dto.CreateCommentReq{PostID: post.ID, Content: "root"})
	require.NoError(t, err)
	c2, err := env.posts.CreateComment(env.ctx, 3, &dto.CreateCommentReq{PostID: post.ID, ParentID: c1.ID, Content: "reply"})
	require.NoError(t, err)
	c3, err := env.posts.CreateComment(env.ctx, 4, &dto.CreateCommentReq{PostID: post.ID, ParentID: c2.ID, Content: "reply to reply"})
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c3.ParentID)
	assert.EqualValues(t, 3, c3.ReplyToUserID)
	assert.Equal(t, 1, env.notifications.count(3, mongo.NotifyCommentReply))

	replies, err := env.posts.ListReplies(env.ctx, 1, c1.ID, 1, 20)
	require.NoError(t, err)
	assert.Len(t, replies, 2)
}

func TestPost_ModerationVerdicts(t *testing.T) {
	env := newTestEnv(t)
	for _, req := range []*dto.KeywordReq{
		{Keyword: "spam", Severity: 3},
		{Keyword: "dang", Severity: 1, WholeWord: true},
		{Keyword: "promo", Severity: 2},
	} {
		_, err := env.moderation.CreateKeyword(env.ctx, req)
		require.NoError(t, err)
	}

	_, err := env.posts.CreatePost(env.ctx, 1, &dto.CreatePostReq{Caption: "buy spam now"})
	assert.ErrorIs(t, err, ErrContentRejected)

	allowed := createPost(t, env, 1, "this is dangerous")
	assert.Equal(t, "allow", allowed.Moderation)

	flagged := createPost(t, env, 1, "dang it")
	assert.Equal(t, "flag", flagged.Moderation)
	// 待复核内容对他人仍然可见
	_, err = env.posts.GetPost(env.ctx, 2, flagged.ID)
	require.NoError(t, err)

	shadowed := createPost(t, env, 1, "big promo today")
	assert.Equal(t, "shadow", shadowed.Moderation)
	_, err = env.posts.GetPost(env.ctx, 2, shadowed.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	own, err := env.posts.GetPost(env.ctx, 1, shadowed.ID)
	require.NoError(t, err)
	assert.Equal(t, "shadow", own.Moderation)

	var stored model.Post
	require.NoError(t, env.db.First(&stored, flagged.ID).Error)
	assert.True(t, stored.NeedsReview)
}

func TestPost_ValidationAndVisibility(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.posts.CreatePost(env.ctx, 1, &dto.CreatePostReq{Caption: "  "})
	assert.ErrorIs(t, err, ErrEmptyContent)
	_, err = env.posts.CreatePost(env.ctx, 1, &dto.CreatePostReq{Caption: "x", Visibility: 9})
	assert.ErrorIs(t, err, ErrValidation)

	followersOnly, err := env.posts.CreatePost(env.ctx, 1, &dto.CreatePostReq{Caption: "friends", Visibility: model.VisibilityFollowers})
	require.NoError(t, err)
	_, err = env.posts.GetPost(env.ctx, 2, followersOnly.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = env.graph.Follow(env.ctx, 2, 1)
	require.NoError(t, err)
	_, err = env.posts.GetPost(env.ctx, 2, followersOnly.ID)
	require.NoError(t, err)

	list, err := env.posts.ListUserPosts(env.ctx, 3, 1, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = env.posts.ListUserPosts(env.ctx, 2, 1, 1, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, env.graph.Block(env.ctx, 1, 2, ""))
	_, err = env.posts.CreateComment(env.ctx, 2, &dto.CreateCommentReq{PostID: followersOnly.ID, Content: "hey"})
	assert.ErrorIs(t, err, ErrUserBlocked)

	assert.ErrorIs(t, env.posts.DeletePost(env.ctx, 2, followersOnly.ID), UnauthorizedError)
	require.NoError(t, env.posts.DeletePost(env.ctx, 1, followersOnly.ID))
	_, err = env.posts.GetPost(env.ctx, 1, followersOnly.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPost_MentionNotifications(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.posts.CreatePost(env.ctx, 1, &dto.CreatePostReq{Caption: "hi friends", MentionUserIDs: []uint64{2, 3, 3, 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, env.notifications.count(2, mongo.NotifyMention))
	assert.Equal(t, 1, env.notifications.count(3, mongo.NotifyMention))
	assert.Zero(t, env.notifications.count(1, mongo.NotifyMention))

	_, err = env.posts.CreatePost(env.ctx, 1, &dto.CreatePostReq{Caption: "secret", Visibility: model.VisibilityPrivate, MentionUserIDs: []uint64{4}})
	require.NoError(t, err)
	assert.Zero(t, env.notifications.count(4, mongo.NotifyMention))
}
