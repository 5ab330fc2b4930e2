package repository

import (
	"Agora/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepo_CreateWithMediaAndRead(t *testing.T) {
	db, ctx := newDB(t)
	seedProfiles(t, db, 1)
	repo := NewPostRepository(db)

	post := &model.Post{
		UserID:     1,
		Caption:    "two pictures",
		Visibility: model.VisibilityPublic,
		Media: []model.PostMedia{
			{MediaType: "image", MediaURL: "https://cdn.example.com/a.png", Width: 10, Height: 20},
			{MediaType: "video", MediaURL: "https://cdn.example.com/b.mp4", Duration: 15},
		},
	}
	require.NoError(t, repo.CreatePost(ctx, post))
	assert.EqualValues(t, 1, getProfile(t, db, 1).PostsCount)

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "two pictures", got.Caption)
	require.Len(t, got.Media, 2)
	assert.Equal(t, "https://cdn.example.com/a.png", got.Media[0].MediaURL)
	assert.EqualValues(t, 0, got.Media[0].SortOrder)
	assert.Equal(t, "video", got.Media[1].MediaType)
	assert.EqualValues(t, 1, got.Media[1].SortOrder)

	list, err := repo.GetPostsByUser(ctx, PostListFilter{AuthorID: 1, Visibilities: []int8{model.VisibilityPublic}}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Media, 2)

	ok, err := repo.SoftDeletePost(ctx, post.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.SoftDeletePost(ctx, post.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 0, getProfile(t, db, 1).PostsCount)

	got, err = repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}
