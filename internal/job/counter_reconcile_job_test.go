package job

import (
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/testutil"
	"Agora/internal/repository"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterReconcileJob(t *testing.T) {
	db := testutil.NewTestDB(t)
	mr := testutil.NewTestRedis(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.CommunityProfile{UserID: 1, FollowersCount: 9}).Error)
	require.NoError(t, db.Create(&model.CommunityProfile{UserID: 2, FollowingCount: 5}).Error)
	require.NoError(t, db.Create(&model.UserFollow{FollowerID: 2, FollowingID: 1}).Error)

	post := &model.Post{UserID: 1, Caption: "p", LikesCount: 7, CommentsCount: 4}
	require.NoError(t, db.Create(post).Error)
	require.NoError(t, db.Create(&model.Like{PostID: post.ID, UserID: 2}).Error)
	comment := &model.PostComment{PostID: post.ID, UserID: 2, Content: "c", RepliesCount: 3}
	require.NoError(t, db.Create(comment).Error)

	_, err := mr.SAdd(consts.CounterDirtyKey, "post:1", "comment:1", "user:1", "user:2", "bogus")
	require.NoError(t, err)

	j := NewCounterReconcileJob(repository.NewEngagementRepo(db), repository.NewCommunityProfileRepo(db))
	require.NoError(t, j.Reconcile(ctx))

	var gotPost model.Post
	require.NoError(t, db.First(&gotPost, post.ID).Error)
	assert.EqualValues(t, 1, gotPost.LikesCount)
	assert.EqualValues(t, 1, gotPost.CommentsCount)

	var gotComment model.PostComment
	require.NoError(t, db.First(&gotComment, comment.ID).Error)
	assert.Zero(t, gotComment.RepliesCount)

	var p1, p2 model.CommunityProfile
	require.NoError(t, db.First(&p1, "user_id = ?", 1).Error)
	require.NoError(t, db.First(&p2, "user_id = ?", 2).Error)
	assert.EqualValues(t, 1, p1.FollowersCount)
	assert.EqualValues(t, 1, p2.FollowingCount)

	assert.False(t, mr.Exists(consts.CounterDirtyKey))
	assert.False(t, mr.Exists(consts.CounterDirtyKey+":processing"))
	assert.False(t, mr.Exists(consts.ReconcileLock))

	// 没有脏数据时什么都不做
	require.NoError(t, j.Reconcile(ctx))
}
