package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/identity"
	"Agora/internal/pkg/moderation"
	"Agora/internal/pkg/redis"
	"Agora/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"
)

const (
	countCacheExpiration = time.Minute
	// countGuardExpiration 计数变更后禁止回写缓存的时长，需大于一次回源读的耗时
	countGuardExpiration = 5 * time.Second
)

type EngagementService interface {
	LikePost(ctx context.Context, userID, postID uint64) (*dto.LikeStateDTO, error)
	UnlikePost(ctx context.Context, userID, postID uint64) (*dto.LikeStateDTO, error)
	LikeComment(ctx context.Context, userID, commentID uint64) (*dto.LikeStateDTO, error)
	UnlikeComment(ctx context.Context, userID, commentID uint64) (*dto.LikeStateDTO, error)
	CurrentCount(ctx context.Context, kind string, targetID uint64) (int64, error)
	IsLiked(ctx context.Context, kind string, targetID, userID uint64) (bool, error)
	SharePost(ctx context.Context, userID, postID uint64) (*dto.ShareDTO, error)
}

type engagementServiceImpl struct {
	engagementRepo repository.EngagementRepo
	postRepo       repository.PostRepo
	commentRepo    repository.CommentRepo
	profiles       *profileLoader
	gate           *contentGate
	publisher      event.Publisher
	retry          RetryPolicy
}

func NewEngagementService(
	engagementRepo repository.EngagementRepo,
	postRepo repository.PostRepo,
	commentRepo repository.CommentRepo,
	followRepo repository.UserFollowRepo,
	blockRepo repository.UserBlockRepo,
	profileRepo repository.CommunityProfileRepo,
	resolver identity.Resolver,
	publisher event.Publisher,
	retry RetryPolicy,
) EngagementService {
	return &engagementServiceImpl{
		engagementRepo: engagementRepo,
		postRepo:       postRepo,
		commentRepo:    commentRepo,
		profiles:       &profileLoader{profileRepo: profileRepo, resolver: resolver, retry: retry},
		gate:           &contentGate{followRepo: followRepo, blockRepo: blockRepo, profileRepo: profileRepo, retry: retry},
		publisher:      publisher,
		retry:          retry,
	}
}

func (s *engagementServiceImpl) LikePost(ctx context.Context, userID, postID uint64) (*dto.LikeStateDTO, error) {
	if _, err := s.profiles.active(ctx, userID); err != nil {
		return nil, err
	}
	post, err := s.getVisiblePost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	res, err := s.toggle(ctx, "like post", repository.TargetPost, postID, userID, true)
	if err != nil {
		return nil, err
	}
	if res.Changed {
		evt := event.New(event.PostLiked, userID, s.profiles.displayName(ctx, userID))
		evt.TargetUserID = post.UserID
		evt.PostID = post.ID
		if post.IsShadowed {
			evt.Verdict = moderation.ActionShadow
		}
		publishEvent(ctx, s.publisher, evt)
	}
	return &dto.LikeStateDTO{Liked: true, Changed: res.Changed, Count: res.Count}, nil
}

func (s *engagementServiceImpl) UnlikePost(ctx context.Context, userID, postID uint64) (*dto.LikeStateDTO, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}
	res, err := s.toggle(ctx, "unlike post", repository.TargetPost, postID, userID, false)
	if err != nil {
		return nil, err
	}
	return &dto.LikeStateDTO{Liked: false, Changed: res.Changed, Count: res.Count}, nil
}

func (s *engagementServiceImpl) LikeComment(ctx context.Context, userID, commentID uint64) (*dto.LikeStateDTO, error) {
	if _, err := s.profiles.active(ctx, userID); err != nil {
		return nil, err
	}
	comment, err := s.getVisibleComment(ctx, userID, commentID)
	if err != nil {
		return nil, err
	}
	res, err := s.toggle(ctx, "like comment", repository.TargetComment, commentID, userID, true)
	if err != nil {
		return nil, err
	}
	if res.Changed {
		evt := event.New(event.CommentLiked, userID, s.profiles.displayName(ctx, userID))
		evt.TargetUserID = comment.UserID
		evt.PostID = comment.PostID
		evt.CommentID = comment.ID
		if comment.IsShadowed {
			evt.Verdict = moderation.ActionShadow
		}
		publishEvent(ctx, s.publisher, evt)
	}
	return &dto.LikeStateDTO{Liked: true, Changed: res.Changed, Count: res.Count}, nil
}

func (s *engagementServiceImpl) UnlikeComment(ctx context.Context, userID, commentID uint64) (*dto.LikeStateDTO, error) {
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.IsDeleted {
		return nil, ErrPostCommentNotFound
	}
	res, err := s.toggle(ctx, "unlike comment", repository.TargetComment, commentID, userID, false)
	if err != nil {
		return nil, err
	}
	return &dto.LikeStateDTO{Liked: false, Changed: res.Changed, Count: res.Count}, nil
}

// toggle 点赞/取消是幂等的，可以安全重试
func (s *engagementServiceImpl) toggle(ctx context.Context, op, kind string, targetID, userID uint64, like bool) (*repository.ToggleResult, error) {
	var res *repository.ToggleResult
	err := s.retry.Do(ctx, op, func(ctx context.Context) error {
		var err error
		if like {
			res, err = s.engagementRepo.Like(ctx, kind, targetID, userID)
		} else {
			res, err = s.engagementRepo.Unlike(ctx, kind, targetID, userID)
		}
		return err
	})
	if errors.Is(err, repository.ErrTargetGone) {
		return nil, notFoundOf(kind)
	}
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.invalidateCount(ctx, kind, targetID)
	}
	return res, nil
}

// CurrentCount 读冗余计数，缓存未命中时回源
func (s *engagementServiceImpl) CurrentCount(ctx context.Context, kind string, targetID uint64) (int64, error) {
	key := countCacheKey(kind, targetID)
	if key == "" {
		return 0, ErrParamInvalid
	}
	if redis.Rdb != nil {
		if cached, err := redis.GetValue(ctx, key); err == nil && cached != "" {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := s.retry.Do(ctx, "get like count", func(ctx context.Context) error {
		var err error
		count, err = s.engagementRepo.GetLikesCount(ctx, kind, targetID)
		return err
	})
	if errors.Is(err, repository.ErrTargetGone) {
		return 0, notFoundOf(kind)
	}
	if err != nil {
		return 0, err
	}
	if redis.Rdb != nil {
		if _, err = redis.SetUnlessGuarded(ctx, key, key+consts.CountGuardSuffix, count, countCacheExpiration); err != nil {
			log.WarnContext(ctx, "cache like count failed", "key", key, "err", err)
		}
	}
	return count, nil
}

func (s *engagementServiceImpl) IsLiked(ctx context.Context, kind string, targetID, userID uint64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var liked bool
	err := s.retry.Do(ctx, "is liked", func(ctx context.Context) error {
		var err error
		liked, err = s.engagementRepo.IsLiked(ctx, kind, targetID, userID)
		return err
	})
	return liked, err
}

// SharePost 每个用户对同一帖子只计一次分享
func (s *engagementServiceImpl) SharePost(ctx context.Context, userID, postID uint64) (*dto.ShareDTO, error) {
	if _, err := s.profiles.active(ctx, userID); err != nil {
		return nil, err
	}
	post, err := s.getVisiblePost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Visibility == model.VisibilityPrivate {
		return nil, ErrParamInvalid
	}

	var res *repository.ToggleResult
	err = s.retry.Do(ctx, "share post", func(ctx context.Context) error {
		var err error
		res, err = s.engagementRepo.Share(ctx, postID, userID)
		return err
	})
	if errors.Is(err, repository.ErrTargetGone) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	if res.Changed {
		markDirty(ctx, dirtyPost(postID))
		evt := event.New(event.PostShared, userID, s.profiles.displayName(ctx, userID))
		evt.TargetUserID = post.UserID
		evt.PostID = post.ID
		if post.IsShadowed {
			evt.Verdict = moderation.ActionShadow
		}
		publishEvent(ctx, s.publisher, evt)
	}
	return &dto.ShareDTO{Changed: res.Changed, Count: res.Count}, nil
}

func (s *engagementServiceImpl) getPost(ctx context.Context, postID uint64) (*model.Post, error) {
	var post *model.Post
	err := s.retry.Do(ctx, "get post", func(ctx context.Context) error {
		var err error
		post, err = s.postRepo.GetPost(ctx, postID)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// getVisiblePost 看不到的帖子按不存在处理；能看到但与作者存在屏蔽时拒绝
func (s *engagementServiceImpl) getVisiblePost(ctx context.Context, userID, postID uint64) (*model.Post, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.gate.blocked(ctx, userID, post.UserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserBlocked
	}
	visible, err := s.gate.canViewPost(ctx, userID, post)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *engagementServiceImpl) getComment(ctx context.Context, commentID uint64) (*model.PostComment, error) {
	var comment *model.PostComment
	err := s.retry.Do(ctx, "get comment", func(ctx context.Context) error {
		var err error
		comment, err = s.commentRepo.GetComment(ctx, commentID)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostCommentNotFound
	}
	return comment, err
}

func (s *engagementServiceImpl) getVisibleComment(ctx context.Context, userID, commentID uint64) (*model.PostComment, error) {
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if _, err = s.getVisiblePost(ctx, userID, comment.PostID); err != nil {
		return nil, err
	}
	blocked, err := s.gate.blocked(ctx, userID, comment.UserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserBlocked
	}
	visible, err := s.gate.canViewComment(ctx, userID, comment)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrPostCommentNotFound
	}
	return comment, nil
}

// invalidateCount 计数变更后删除缓存，并登记到对账集合
func (s *engagementServiceImpl) invalidateCount(ctx context.Context, kind string, targetID uint64) {
	if kind == repository.TargetPost {
		markDirty(ctx, dirtyPost(targetID))
	} else {
		markDirty(ctx, dirtyComment(targetID))
	}
	if redis.Rdb == nil {
		return
	}
	key := countCacheKey(kind, targetID)
	// 先写保护键再删缓存，变更前回源的读请求不能再把旧值写回
	if err := redis.SetWithExpiration(context.WithoutCancel(ctx), key+consts.CountGuardSuffix, 1, countGuardExpiration); err != nil {
		log.WarnContext(ctx, "set like count guard failed", "key", key, "err", err)
	}
	if err := redis.DeleteKey(context.WithoutCancel(ctx), key); err != nil {
		log.WarnContext(ctx, "invalidate like count failed", "key", key, "err", err)
	}
}

func countCacheKey(kind string, targetID uint64) string {
	switch kind {
	case repository.TargetPost:
		return consts.PostLikeKey + strconv.FormatUint(targetID, 10)
	case repository.TargetComment:
		return consts.PostCommentLikeKey + strconv.FormatUint(targetID, 10)
	}
	return ""
}

func notFoundOf(kind string) error {
	if kind == repository.TargetComment {
		return ErrPostCommentNotFound
	}
	return ErrPostNotFound
}
