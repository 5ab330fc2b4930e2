package repository

import (
	"Agora/internal/model"
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserFollowRepo interface {
	GetUserFollowers(ctx context.Context, userID uint64, limit, offset int) ([]*model.UserFollow, error)
	GetUserFollowing(ctx context.Context, userID uint64, limit, offset int) ([]*model.UserFollow, error)
	IsFollowing(ctx context.Context, followerID uint64, followingID uint64) (bool, error)
	CreateUserFollow(ctx context.Context, followerID uint64, followingID uint64) (bool, error)
	DeleteUserFollow(ctx context.Context, followerID uint64, followingID uint64) (bool, error)
}

type UserFollowRepoImpl struct {
	db *gorm.DB
}

func NewUserFollowRepo(db *gorm.DB) UserFollowRepo {
	return &UserFollowRepoImpl{db: db}
}

// GetUserFollowers 获取用户的粉丝列表
func (s *UserFollowRepoImpl) GetUserFollowers(ctx context.Context, userID uint64, limit, offset int) ([]*model.UserFollow, error) {
	var userFollows []*model.UserFollow
	result := s.db.WithContext(ctx).
		Where("following_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&userFollows)

	if result.Error != nil {
		return nil, result.Error
	}
	return userFollows, nil
}

// GetUserFollowing 获取用户的关注列表
func (s *UserFollowRepoImpl) GetUserFollowing(ctx context.Context, userID uint64, limit, offset int) ([]*model.UserFollow, error) {
	var userFollows []*model.UserFollow
	result := s.db.WithContext(ctx).
		Where("follower_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&userFollows)

	if result.Error != nil {
		return nil, result.Error
	}
	return userFollows, nil
}

// IsFollowing 是否存在关注行
func (s *UserFollowRepoImpl) IsFollowing(ctx context.Context, followerID uint64, followingID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UserFollow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// CreateUserFollow 插入关注行并同步双方计数，重复关注返回 false
// 调用前双方档案需已存在
func (s *UserFollowRepoImpl) CreateUserFollow(ctx context.Context, followerID uint64, followingID uint64) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProfiles(tx, followerID, followingID); err != nil {
			return err
		}
		blocked, err := blockExists(tx, followerID, followingID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrRelationBlocked
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.UserFollow{FollowerID: followerID, FollowingID: followingID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return adjustFollowCounters(tx, followerID, followingID, 1)
	})
	return created, err
}

// DeleteUserFollow 删除关注行并同步双方计数，未关注返回 false
func (s *UserFollowRepoImpl) DeleteUserFollow(ctx context.Context, followerID uint64, followingID uint64) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := deleteFollow(tx, followerID, followingID)
		deleted = ok
		return err
	})
	return deleted, err
}

func deleteFollow(tx *gorm.DB, followerID uint64, followingID uint64) (bool, error) {
	res := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&model.UserFollow{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, adjustFollowCounters(tx, followerID, followingID, -1)
}

func adjustFollowCounters(tx *gorm.DB, followerID uint64, followingID uint64, delta int) error {
	following := gorm.Expr("following_count + 1")
	followers := gorm.Expr("followers_count + 1")
	if delta < 0 {
		following = gorm.Expr(fmt.Sprintf(decrExpr, "following_count"))
		followers = gorm.Expr(fmt.Sprintf(decrExpr, "followers_count"))
	}
	if err := tx.Model(&model.CommunityProfile{}).Where("user_id = ?", followerID).
		UpdateColumn("following_count", following).Error; err != nil {
		return err
	}
	return tx.Model(&model.CommunityProfile{}).Where("user_id = ?", followingID).
		UpdateColumn("followers_count", followers).Error
}
