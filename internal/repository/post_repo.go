package repository

import (
	"Agora/internal/model"
	"context"
	"fmt"

	"gorm.io/gorm"
)

// PostListFilter 列表查询条件
type PostListFilter struct {
	AuthorID     uint64
	OwnerView    bool   // 作者本人查看，包含被隐藏/静默的帖子
	Visibilities []int8 // 非作者可见的范围
}

type PostRepo interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id uint64) (*model.Post, error)
	GetPostsByUser(ctx context.Context, filter PostListFilter, limit, offset int) ([]*model.Post, error)
	SoftDeletePost(ctx context.Context, id uint64, userID uint64) (bool, error)
}

type PostRepoImpl struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepo {
	return &PostRepoImpl{
		db: db,
	}
}

// CreatePost 写入帖子与媒体，并累加作者发帖数
func (s *PostRepoImpl) CreatePost(ctx context.Context, post *model.Post) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range post.Media {
			post.Media[i].SortOrder = int8(i)
		}
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return tx.Model(&model.CommunityProfile{}).Where("user_id = ?", post.UserID).
			UpdateColumn("posts_count", gorm.Expr("posts_count + 1")).Error
	})
}

// GetPost 获取帖子（含已删除），可见性由调用方判断
func (s *PostRepoImpl) GetPost(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := s.db.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPostsByUser 分页获取用户帖子
func (s *PostRepoImpl) GetPostsByUser(ctx context.Context, filter PostListFilter, limit, offset int) ([]*model.Post, error) {
	var posts []*model.Post
	q := s.db.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("user_id = ? AND is_deleted = ?", filter.AuthorID, false)
	if !filter.OwnerView {
		if len(filter.Visibilities) == 0 {
			return posts, nil
		}
		q = q.Where("is_hidden = ? AND is_shadowed = ? AND visibility IN ?", false, false, filter.Visibilities)
	}
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, err
}

// SoftDeletePost 作者软删除帖子，重复删除返回 false
func (s *PostRepoImpl) SoftDeletePost(ctx context.Context, id uint64, userID uint64) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Post{}).
			Where("id = ? AND user_id = ? AND is_deleted = ?", id, userID, false).
			Update("is_deleted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Model(&model.CommunityProfile{}).Where("user_id = ?", userID).
			UpdateColumn("posts_count", gorm.Expr(fmt.Sprintf(decrExpr, "posts_count"))).Error
	})
	return deleted, err
}
