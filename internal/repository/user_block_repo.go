package repository

import (
	"Agora/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlockResult 屏蔽操作的结果，记录被连带移除的关注
type BlockResult struct {
	Created         bool
	RemovedForward  bool // blocker -> blocked 的关注被移除
	RemovedBackward bool // blocked -> blocker 的关注被移除
}

type UserBlockRepo interface {
	CreateBlock(ctx context.Context, block *model.UserBlock) (*BlockResult, error)
	DeleteBlock(ctx context.Context, blockerID uint64, blockedID uint64) (bool, error)
	IsBlocked(ctx context.Context, a uint64, b uint64) (bool, error)
	GetBlockedList(ctx context.Context, blockerID uint64, limit, offset int) ([]*model.UserBlock, error)
}

type userBlockRepoImpl struct {
	db *gorm.DB
}

func NewUserBlockRepo(db *gorm.DB) UserBlockRepo {
	return &userBlockRepoImpl{db: db}
}

// CreateBlock 写入屏蔽行，同时移除双向关注并回退计数
func (s *userBlockRepoImpl) CreateBlock(ctx context.Context, block *model.UserBlock) (*BlockResult, error) {
	result := &BlockResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProfiles(tx, block.BlockerID, block.BlockedID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(block)
		if res.Error != nil {
			return res.Error
		}
		result.Created = res.RowsAffected > 0

		var err error
		if result.RemovedForward, err = deleteFollow(tx, block.BlockerID, block.BlockedID); err != nil {
			return err
		}
		result.RemovedBackward, err = deleteFollow(tx, block.BlockedID, block.BlockerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteBlock 解除单向屏蔽
func (s *userBlockRepoImpl) DeleteBlock(ctx context.Context, blockerID uint64, blockedID uint64) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.UserBlock{})
	return res.RowsAffected > 0, res.Error
}

// IsBlocked 任一方向存在屏蔽即为 true
func (s *userBlockRepoImpl) IsBlocked(ctx context.Context, a uint64, b uint64) (bool, error) {
	return blockExists(s.db.WithContext(ctx), a, b)
}

// GetBlockedList 获取屏蔽列表
func (s *userBlockRepoImpl) GetBlockedList(ctx context.Context, blockerID uint64, limit, offset int) ([]*model.UserBlock, error) {
	var list []*model.UserBlock
	err := s.db.WithContext(ctx).
		Where("blocker_id = ?", blockerID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, err
}
