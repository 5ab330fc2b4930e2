package service

import (
	"Agora/internal/model"
	"Agora/internal/pkg/identity"
	"Agora/internal/repository"
	"context"
	"errors"
	log "log/slog"

	"gorm.io/gorm"
)

// profileLoader 社区档案懒加载，昵称头像取自身份服务
type profileLoader struct {
	profileRepo repository.CommunityProfileRepo
	resolver    identity.Resolver
	retry       RetryPolicy
}

func (l *profileLoader) get(ctx context.Context, userID uint64) (*model.CommunityProfile, error) {
	var profile *model.CommunityProfile
	err := l.retry.Do(ctx, "get profile", func(ctx context.Context) error {
		p, err := l.profileRepo.GetProfile(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		profile = p
		return err
	})
	return profile, err
}

// ensure 档案不存在时创建，身份服务不可用时先建空档案
func (l *profileLoader) ensure(ctx context.Context, userID uint64) (*model.CommunityProfile, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}
	profile, err := l.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	fresh := &model.CommunityProfile{UserID: userID}
	if l.resolver != nil {
		info, err := l.resolver.GetUser(ctx, userID)
		switch {
		case errors.Is(err, identity.ErrUserNotFound):
			return nil, ErrUserNotFound
		case err != nil:
			log.WarnContext(ctx, "resolve identity failed, create bare profile", "user_id", userID, "err", err)
		default:
			fresh.Nickname = info.Nickname
			fresh.AvatarURL = info.AvatarURL
		}
	}

	err = l.retry.Do(ctx, "ensure profile", func(ctx context.Context) error {
		return l.profileRepo.EnsureProfile(ctx, fresh)
	})
	if err != nil {
		return nil, err
	}
	profile, err = l.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return fresh, nil
	}
	return profile, nil
}

// active 发帖、评论、点赞、私信前调用，被处罚的用户返回 ErrUserSuspended
func (l *profileLoader) active(ctx context.Context, userID uint64) (*model.CommunityProfile, error) {
	profile, err := l.ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.IsSuspended {
		return nil, ErrUserSuspended
	}
	return profile, nil
}

// displayName 事件中的发起者昵称，取不到时返回空串
func (l *profileLoader) displayName(ctx context.Context, userID uint64) string {
	profile, err := l.ensure(ctx, userID)
	if err != nil {
		log.WarnContext(ctx, "load display name failed", "user_id", userID, "err", err)
		return ""
	}
	return profile.Nickname
}
