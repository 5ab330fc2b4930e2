package repository

import (
	"Agora/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityProfileRepo interface {
	EnsureProfile(ctx context.Context, profile *model.CommunityProfile) error
	GetProfile(ctx context.Context, userID uint64) (*model.CommunityProfile, error)
	GetProfiles(ctx context.Context, userIDs []uint64) ([]*model.CommunityProfile, error)
	ReconcileFollowCounters(ctx context.Context, userID uint64) error
}

type communityProfileRepoImpl struct {
	db *gorm.DB
}

func NewCommunityProfileRepo(db *gorm.DB) CommunityProfileRepo {
	return &communityProfileRepoImpl{db: db}
}

// EnsureProfile 不存在则创建，已存在时刷新昵称头像
func (s *communityProfileRepoImpl) EnsureProfile(ctx context.Context, profile *model.CommunityProfile) error {
	onConflict := clause.OnConflict{DoNothing: true}
	if profile.Nickname != "" {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"nickname", "avatar_url", "updated_at"}),
		}
	}
	return s.db.WithContext(ctx).Clauses(onConflict).Create(profile).Error
}

// GetProfile 获取社区档案
func (s *communityProfileRepoImpl) GetProfile(ctx context.Context, userID uint64) (*model.CommunityProfile, error) {
	var profile model.CommunityProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfiles 批量获取
func (s *communityProfileRepoImpl) GetProfiles(ctx context.Context, userIDs []uint64) ([]*model.CommunityProfile, error) {
	var profiles []*model.CommunityProfile
	if len(userIDs) == 0 {
		return profiles, nil
	}
	err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error
	return profiles, err
}

// ReconcileFollowCounters 按关注行重算粉丝数与关注数
func (s *communityProfileRepoImpl) ReconcileFollowCounters(ctx context.Context, userID uint64) error {
	db := s.db.WithContext(ctx)
	return db.Model(&model.CommunityProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"followers_count": db.Model(&model.UserFollow{}).Select("COUNT(*)").Where("following_id = ?", userID),
			"following_count": db.Model(&model.UserFollow{}).Select("COUNT(*)").Where("follower_id = ?", userID),
			"updated_at":      time.Now(),
		}).Error
}

// lockProfiles 更新双方档案行，在事务内对同一对用户的关注/屏蔽操作串行化
func lockProfiles(tx *gorm.DB, a, b uint64) error {
	return tx.Model(&model.CommunityProfile{}).
		Where("user_id IN ?", []uint64{a, b}).
		Update("updated_at", time.Now()).Error
}

func blockExists(tx *gorm.DB, a, b uint64) (bool, error) {
	var count int64
	err := tx.Model(&model.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}
