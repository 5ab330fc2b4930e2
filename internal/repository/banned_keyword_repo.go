package repository

import (
	"Agora/internal/model"
	"context"

	"gorm.io/gorm"
)

type BannedKeywordRepo interface {
	CreateKeyword(ctx context.Context, kw *model.BannedKeyword) error
	GetActiveKeywords(ctx context.Context) ([]*model.BannedKeyword, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	ListKeywords(ctx context.Context, limit, offset int) ([]*model.BannedKeyword, error)
}

type bannedKeywordRepoImpl struct {
	db *gorm.DB
}

func NewBannedKeywordRepo(db *gorm.DB) BannedKeywordRepo {
	return &bannedKeywordRepoImpl{db: db}
}

// CreateKeyword 新增规则，默认启用
func (s *bannedKeywordRepoImpl) CreateKeyword(ctx context.Context, kw *model.BannedKeyword) error {
	kw.IsActive = true
	return s.db.WithContext(ctx).Create(kw).Error
}

// GetActiveKeywords 当前生效的规则集，按创建顺序
func (s *bannedKeywordRepoImpl) GetActiveKeywords(ctx context.Context) ([]*model.BannedKeyword, error) {
	var list []*model.BannedKeyword
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").Order("id ASC").
		Find(&list).Error
	return list, err
}

// SetActive 启用/停用规则
func (s *bannedKeywordRepoImpl) SetActive(ctx context.Context, id uint64, active bool) error {
	db := s.db.WithContext(ctx)
	var kw model.BannedKeyword
	if err := db.Select("id").First(&kw, id).Error; err != nil {
		return err
	}
	return db.Model(&model.BannedKeyword{}).Where("id = ?", id).Update("is_active", active).Error
}

// ListKeywords 后台分页列表
func (s *bannedKeywordRepoImpl) ListKeywords(ctx context.Context, limit, offset int) ([]*model.BannedKeyword, error) {
	var list []*model.BannedKeyword
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
