package repository

import (
	"Agora/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type CommentRepo interface {
	CreateComment(ctx context.Context, comment *model.PostComment) error
	GetComment(ctx context.Context, id uint64) (*model.PostComment, error)
	SoftDeleteComment(ctx context.Context, id uint64) (int64, error)
	GetComments(ctx context.Context, postID uint64, parentID uint64, viewerID uint64, limit, offset int) ([]*model.PostComment, error)
}

type commentRepoImpl struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) CommentRepo {
	return &commentRepoImpl{db: db}
}

// CreateComment 写入评论并累加帖子评论数，回复同时累加所属一级评论的回复数
// 帖子或一级评论已删除时回滚并返回 ErrTargetGone
func (s *commentRepoImpl) CreateComment(ctx context.Context, comment *model.PostComment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		res := tx.Model(&model.Post{}).
			Where("id = ? AND is_deleted = ?", comment.PostID, false).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTargetGone
		}
		if !comment.IsReply() {
			return nil
		}
		res = tx.Model(&model.PostComment{}).
			Where("id = ? AND post_id = ? AND is_deleted = ?", comment.ParentID, comment.PostID, false).
			UpdateColumn("replies_count", gorm.Expr("replies_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTargetGone
		}
		return nil
	})
}

// GetComment 获取评论（含已删除）
func (s *commentRepoImpl) GetComment(ctx context.Context, id uint64) (*model.PostComment, error) {
	var comment model.PostComment
	err := s.db.WithContext(ctx).First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// SoftDeleteComment 软删除评论并回退计数，返回实际被删除的行数
// 删除一级评论时其下未删除的回复一并删除
func (s *commentRepoImpl) SoftDeleteComment(ctx context.Context, id uint64) (int64, error) {
	var flipped int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment model.PostComment
		if err := tx.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTargetGone
			}
			return err
		}
		if comment.IsDeleted {
			return nil
		}

		q := tx.Model(&model.PostComment{}).Where("is_deleted = ?", false)
		if comment.IsReply() {
			q = q.Where("id = ?", id)
		} else {
			q = q.Where("id = ? OR parent_id = ?", id, id)
		}
		res := q.Update("is_deleted", true)
		if res.Error != nil {
			return res.Error
		}
		flipped = res.RowsAffected
		if flipped == 0 {
			return nil
		}

		err := tx.Model(&model.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count",
				gorm.Expr("CASE WHEN comments_count >= ? THEN comments_count - ? ELSE 0 END", flipped, flipped)).Error
		if err != nil {
			return err
		}

		if comment.IsReply() {
			return tx.Model(&model.PostComment{}).Where("id = ?", comment.ParentID).
				UpdateColumn("replies_count", gorm.Expr("CASE WHEN replies_count > 0 THEN replies_count - 1 ELSE 0 END")).Error
		}
		return tx.Model(&model.PostComment{}).Where("id = ?", id).UpdateColumn("replies_count", 0).Error
	})
	return flipped, err
}

// GetComments parentID 为 0 时获取一级评论，否则获取该评论下的回复
// 被静默的评论只对作者本人可见
func (s *commentRepoImpl) GetComments(ctx context.Context, postID uint64, parentID uint64, viewerID uint64, limit, offset int) ([]*model.PostComment, error) {
	var comments []*model.PostComment
	order := "created_at DESC"
	if parentID != 0 {
		order = "created_at ASC"
	}
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND parent_id = ? AND is_deleted = ? AND is_hidden = ?", postID, parentID, false, false).
		Where("is_shadowed = ? OR user_id = ?", false, viewerID).
		Order(order).Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	return comments, err
}
