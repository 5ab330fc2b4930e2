package repository

import (
	"Agora/internal/model"
	"Agora/internal/pkg/testutil"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedProfiles(t *testing.T, db *gorm.DB, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, db.Create(&model.CommunityProfile{UserID: id}).Error)
	}
}

func getProfile(t *testing.T, db *gorm.DB, id uint64) *model.CommunityProfile {
	t.Helper()
	var p model.CommunityProfile
	require.NoError(t, db.First(&p, "user_id = ?", id).Error)
	return &p
}

func newDB(t *testing.T) (*gorm.DB, context.Context) {
	return testutil.NewTestDB(t), context.Background()
}
