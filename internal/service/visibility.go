package service

import (
	"Agora/internal/model"
	"Agora/internal/repository"
	"context"
	"errors"

	"gorm.io/gorm"
)

// contentGate 基于关注/屏蔽关系的可见性判断，屏蔽表是唯一依据
type contentGate struct {
	followRepo  repository.UserFollowRepo
	blockRepo   repository.UserBlockRepo
	profileRepo repository.CommunityProfileRepo
	retry       RetryPolicy
}

// blocked 任一方向屏蔽即为 true，超时不会被当作未屏蔽
func (g *contentGate) blocked(ctx context.Context, a, b uint64) (bool, error) {
	if a == 0 || b == 0 || a == b {
		return false, nil
	}
	var blocked bool
	err := g.retry.Do(ctx, "check block", func(ctx context.Context) error {
		var err error
		blocked, err = g.blockRepo.IsBlocked(ctx, a, b)
		return err
	})
	return blocked, err
}

// suspended 作者是否已被处罚，未配置档案仓库时视为正常
func (g *contentGate) suspended(ctx context.Context, userID uint64) (bool, error) {
	if g.profileRepo == nil || userID == 0 {
		return false, nil
	}
	var suspended bool
	err := g.retry.Do(ctx, "check suspended", func(ctx context.Context) error {
		p, err := g.profileRepo.GetProfile(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		suspended = p.IsSuspended
		return nil
	})
	return suspended, err
}

// hiddenAuthor 屏蔽或已处罚的作者对查看者不可见
func (g *contentGate) hiddenAuthor(ctx context.Context, viewerID, authorID uint64) (bool, error) {
	blocked, err := g.blocked(ctx, viewerID, authorID)
	if err != nil || blocked {
		return blocked, err
	}
	return g.suspended(ctx, authorID)
}

func (g *contentGate) following(ctx context.Context, followerID, followingID uint64) (bool, error) {
	if followerID == 0 || followerID == followingID {
		return false, nil
	}
	var following bool
	err := g.retry.Do(ctx, "check follow", func(ctx context.Context) error {
		var err error
		following, err = g.followRepo.IsFollowing(ctx, followerID, followingID)
		return err
	})
	return following, err
}

// canViewPost 作者可见自己未删除的全部内容；他人不可见删除/隐藏/静默/私密内容
// 以及被处罚作者的内容，仅关注可见的帖子要求已关注且无屏蔽
func (g *contentGate) canViewPost(ctx context.Context, viewerID uint64, post *model.Post) (bool, error) {
	if post.IsDeleted {
		return false, nil
	}
	if viewerID != 0 && viewerID == post.UserID {
		return true, nil
	}
	if !post.VisibleToOthers() {
		return false, nil
	}
	hidden, err := g.hiddenAuthor(ctx, viewerID, post.UserID)
	if err != nil || hidden {
		return false, err
	}
	if post.Visibility == model.VisibilityFollowers {
		return g.following(ctx, viewerID, post.UserID)
	}
	return true, nil
}

// canViewComment 评论本身的可见性，不含所属帖子
func (g *contentGate) canViewComment(ctx context.Context, viewerID uint64, comment *model.PostComment) (bool, error) {
	if comment.IsDeleted {
		return false, nil
	}
	if viewerID != 0 && viewerID == comment.UserID {
		return true, nil
	}
	if comment.IsHidden || comment.IsShadowed {
		return false, nil
	}
	hidden, err := g.hiddenAuthor(ctx, viewerID, comment.UserID)
	return !hidden, err
}
