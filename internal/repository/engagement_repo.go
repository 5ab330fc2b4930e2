package repository

import (
	"Agora/internal/model"
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 点赞/分享目标
const (
	TargetPost    = "post"
	TargetComment = "comment"
)

// ToggleResult 一次点赞/取消的结果
type ToggleResult struct {
	Changed bool
	Count   int64
}

type EngagementRepo interface {
	Like(ctx context.Context, kind string, targetID uint64, userID uint64) (*ToggleResult, error)
	Unlike(ctx context.Context, kind string, targetID uint64, userID uint64) (*ToggleResult, error)
	IsLiked(ctx context.Context, kind string, targetID uint64, userID uint64) (bool, error)
	GetLikesCount(ctx context.Context, kind string, targetID uint64) (int64, error)
	Share(ctx context.Context, postID uint64, userID uint64) (*ToggleResult, error)
	ReconcilePostCounters(ctx context.Context, postID uint64) error
	ReconcileCommentCounters(ctx context.Context, commentID uint64) error
}

type engagementRepoImpl struct {
	db *gorm.DB
}

func NewEngagementRepo(db *gorm.DB) EngagementRepo {
	return &engagementRepoImpl{db: db}
}

type likeTable struct {
	row     func(targetID, userID uint64) any
	where   string
	parent  any
	counter string
}

func likeTableOf(kind string) (*likeTable, error) {
	switch kind {
	case TargetPost:
		return &likeTable{
			row:     func(targetID, userID uint64) any { return &model.Like{UserID: userID, PostID: targetID} },
			where:   "user_id = ? AND post_id = ?",
			parent:  &model.Post{},
			counter: "likes_count",
		}, nil
	case TargetComment:
		return &likeTable{
			row:     func(targetID, userID uint64) any { return &model.CommentLike{UserID: userID, CommentID: targetID} },
			where:   "user_id = ? AND comment_id = ?",
			parent:  &model.PostComment{},
			counter: "likes_count",
		}, nil
	}
	return nil, fmt.Errorf("unknown like target %q", kind)
}

// Like 插入点赞行并累加计数，已点赞时只返回当前计数
// 目标已删除时回滚并返回 ErrTargetGone
func (s *engagementRepoImpl) Like(ctx context.Context, kind string, targetID uint64, userID uint64) (*ToggleResult, error) {
	t, err := likeTableOf(kind)
	if err != nil {
		return nil, err
	}
	result := &ToggleResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(t.row(targetID, userID))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			upd := tx.Model(t.parent).
				Where("id = ? AND is_deleted = ?", targetID, false).
				UpdateColumn(t.counter, gorm.Expr(t.counter+" + 1"))
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return ErrTargetGone
			}
			result.Changed = true
		}
		return readCounter(tx, t.parent, t.counter, targetID, &result.Count)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Unlike 删除点赞行并回退计数，未点赞时只返回当前计数
func (s *engagementRepoImpl) Unlike(ctx context.Context, kind string, targetID uint64, userID uint64) (*ToggleResult, error) {
	t, err := likeTableOf(kind)
	if err != nil {
		return nil, err
	}
	result := &ToggleResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where(t.where, userID, targetID).Delete(t.row(targetID, userID))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			err := tx.Model(t.parent).Where("id = ?", targetID).
				UpdateColumn(t.counter, gorm.Expr(fmt.Sprintf(decrExpr, t.counter))).Error
			if err != nil {
				return err
			}
			result.Changed = true
		}
		return readCounter(tx, t.parent, t.counter, targetID, &result.Count)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsLiked 是否已点赞
func (s *engagementRepoImpl) IsLiked(ctx context.Context, kind string, targetID uint64, userID uint64) (bool, error) {
	t, err := likeTableOf(kind)
	if err != nil {
		return false, err
	}
	var count int64
	err = s.db.WithContext(ctx).Model(t.row(targetID, userID)).Where(t.where, userID, targetID).Count(&count).Error
	return count > 0, err
}

// GetLikesCount 读取冗余计数
func (s *engagementRepoImpl) GetLikesCount(ctx context.Context, kind string, targetID uint64) (int64, error) {
	t, err := likeTableOf(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = readCounter(s.db.WithContext(ctx), t.parent, t.counter, targetID, &count)
	return count, err
}

// Share 每个用户对同一帖子只记一次分享
func (s *engagementRepoImpl) Share(ctx context.Context, postID uint64, userID uint64) (*ToggleResult, error) {
	result := &ToggleResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.PostShare{UserID: userID, PostID: postID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			upd := tx.Model(&model.Post{}).
				Where("id = ? AND is_deleted = ?", postID, false).
				UpdateColumn("shares_count", gorm.Expr("shares_count + 1"))
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return ErrTargetGone
			}
			result.Changed = true
		}
		return readCounter(tx, &model.Post{}, "shares_count", postID, &result.Count)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReconcilePostCounters 按明细行重算帖子的点赞/评论/分享数
func (s *engagementRepoImpl) ReconcilePostCounters(ctx context.Context, postID uint64) error {
	db := s.db.WithContext(ctx)
	return db.Model(&model.Post{}).Where("id = ?", postID).Updates(map[string]interface{}{
		"likes_count":    db.Model(&model.Like{}).Select("COUNT(*)").Where("post_id = ?", postID),
		"comments_count": db.Model(&model.PostComment{}).Select("COUNT(*)").Where("post_id = ? AND is_deleted = ?", postID, false),
		"shares_count":   db.Model(&model.PostShare{}).Select("COUNT(*)").Where("post_id = ?", postID),
	}).Error
}

// ReconcileCommentCounters 按明细行重算评论的点赞/回复数
func (s *engagementRepoImpl) ReconcileCommentCounters(ctx context.Context, commentID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// MySQL 不允许在更新 post_comments 时子查询同一张表，回复数先单独统计
		var replies int64
		err := tx.Model(&model.PostComment{}).
			Where("parent_id = ? AND is_deleted = ?", commentID, false).
			Count(&replies).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.PostComment{}).Where("id = ?", commentID).Updates(map[string]interface{}{
			"likes_count":   tx.Model(&model.CommentLike{}).Select("COUNT(*)").Where("comment_id = ?", commentID),
			"replies_count": replies,
		}).Error
	})
}

func readCounter(tx *gorm.DB, parent any, counter string, id uint64, out *int64) error {
	res := tx.Model(parent).Select(counter).Where("id = ?", id).Scan(out)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTargetGone
	}
	return nil
}
