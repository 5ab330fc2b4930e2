package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/identity"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"
)

type SocialGraphService interface {
	Follow(ctx context.Context, followerID, followingID uint64) (*dto.FollowDTO, error)
	Unfollow(ctx context.Context, followerID, followingID uint64) (*dto.FollowDTO, error)
	Block(ctx context.Context, blockerID, blockedID uint64, reason string) error
	Unblock(ctx context.Context, blockerID, blockedID uint64) error
	IsBlocked(ctx context.Context, a, b uint64) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint64) (bool, error)
	GetProfile(ctx context.Context, viewerID, userID uint64) (*dto.ProfileDTO, error)
	ListFollowers(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.RelationUserDTO, error)
	ListFollowing(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.RelationUserDTO, error)
	ListBlocked(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.RelationUserDTO, error)
}

type socialGraphServiceImpl struct {
	followRepo  repository.UserFollowRepo
	blockRepo   repository.UserBlockRepo
	profileRepo repository.CommunityProfileRepo
	convRepo    repository.ConversationRepo
	profiles    *profileLoader
	gate        *contentGate
	publisher   event.Publisher
	retry       RetryPolicy
}

func NewSocialGraphService(
	followRepo repository.UserFollowRepo,
	blockRepo repository.UserBlockRepo,
	profileRepo repository.CommunityProfileRepo,
	convRepo repository.ConversationRepo,
	resolver identity.Resolver,
	publisher event.Publisher,
	retry RetryPolicy,
) SocialGraphService {
	return &socialGraphServiceImpl{
		followRepo:  followRepo,
		blockRepo:   blockRepo,
		profileRepo: profileRepo,
		convRepo:    convRepo,
		profiles:    &profileLoader{profileRepo: profileRepo, resolver: resolver, retry: retry},
		gate:        &contentGate{followRepo: followRepo, blockRepo: blockRepo, profileRepo: profileRepo, retry: retry},
		publisher:   publisher,
		retry:       retry,
	}
}

// Follow 关注，重复关注不报错；双方存在屏蔽时拒绝
func (s *socialGraphServiceImpl) Follow(ctx context.Context, followerID, followingID uint64) (*dto.FollowDTO, error) {
	if followerID == followingID {
		return nil, ErrFollowSelf
	}
	follower, err := s.profiles.ensure(ctx, followerID)
	if err != nil {
		return nil, err
	}
	if _, err = s.profiles.ensure(ctx, followingID); err != nil {
		return nil, err
	}

	var created bool
	err = s.retry.Do(ctx, "follow", func(ctx context.Context) error {
		var err error
		created, err = s.followRepo.CreateUserFollow(ctx, followerID, followingID)
		return err
	})
	if errors.Is(err, repository.ErrRelationBlocked) {
		return nil, ErrUserBlocked
	}
	if err != nil {
		return nil, err
	}

	if created {
		markDirty(ctx, dirtyUser(followerID), dirtyUser(followingID))
		evt := event.New(event.Followed, followerID, follower.Nickname)
		evt.TargetUserID = followingID
		publishEvent(ctx, s.publisher, evt)
	}
	return &dto.FollowDTO{Following: true, Changed: created}, nil
}

// Unfollow 取消关注，未关注时不报错
func (s *socialGraphServiceImpl) Unfollow(ctx context.Context, followerID, followingID uint64) (*dto.FollowDTO, error) {
	if followerID == followingID {
		return nil, ErrFollowSelf
	}
	var deleted bool
	err := s.retry.Do(ctx, "unfollow", func(ctx context.Context) error {
		var err error
		deleted, err = s.followRepo.DeleteUserFollow(ctx, followerID, followingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if deleted {
		markDirty(ctx, dirtyUser(followerID), dirtyUser(followingID))
	}
	return &dto.FollowDTO{Following: false, Changed: deleted}, nil
}

// Block 屏蔽并移除双向关注，之后同步会话侧的屏蔽标记
func (s *socialGraphServiceImpl) Block(ctx context.Context, blockerID, blockedID uint64, reason string) error {
	if blockerID == blockedID {
		return ErrBlockSelf
	}
	if _, err := s.profiles.ensure(ctx, blockerID); err != nil {
		return err
	}
	if _, err := s.profiles.ensure(ctx, blockedID); err != nil {
		return err
	}

	var res *repository.BlockResult
	err := s.retry.Do(ctx, "block", func(ctx context.Context) error {
		var err error
		res, err = s.blockRepo.CreateBlock(ctx, &model.UserBlock{
			BlockerID: blockerID,
			BlockedID: blockedID,
			Reason:    util.Snippet(reason, 250),
			CreatedAt: time.Now(),
		})
		return err
	})
	if err != nil {
		return err
	}
	if res.RemovedForward || res.RemovedBackward {
		markDirty(ctx, dirtyUser(blockerID), dirtyUser(blockedID))
		log.InfoContext(ctx, "follows removed by block",
			"blocker_id", blockerID, "blocked_id", blockedID,
			"forward", res.RemovedForward, "backward", res.RemovedBackward)
	}
	s.syncConversationBlock(ctx, blockerID, blockedID, true)
	return nil
}

// Unblock 解除屏蔽
func (s *socialGraphServiceImpl) Unblock(ctx context.Context, blockerID, blockedID uint64) error {
	if blockerID == blockedID {
		return ErrBlockSelf
	}
	err := s.retry.Do(ctx, "unblock", func(ctx context.Context) error {
		_, err := s.blockRepo.DeleteBlock(ctx, blockerID, blockedID)
		return err
	})
	if err != nil {
		return err
	}
	s.syncConversationBlock(ctx, blockerID, blockedID, false)
	return nil
}

// syncConversationBlock 会话成员上的屏蔽标记只是展示缓存，失败不回滚
func (s *socialGraphServiceImpl) syncConversationBlock(ctx context.Context, blockerID, blockedID uint64, blocked bool) {
	if s.convRepo == nil {
		return
	}
	peerKey := util.PeerKey(blockerID, blockedID)
	err := s.retry.Do(context.WithoutCancel(ctx), "sync conversation block", func(ctx context.Context) error {
		return s.convRepo.SetBlocked(ctx, peerKey, blockerID, blocked)
	})
	if err != nil {
		log.WarnContext(ctx, "sync conversation block flag failed", "peer_key", peerKey, "err", err)
	}
}

func (s *socialGraphServiceImpl) IsBlocked(ctx context.Context, a, b uint64) (bool, error) {
	return s.gate.blocked(ctx, a, b)
}

func (s *socialGraphServiceImpl) IsFollowing(ctx context.Context, followerID, followingID uint64) (bool, error) {
	return s.gate.following(ctx, followerID, followingID)
}

// GetProfile 获取社区档案，带上查看者与对方的关系
func (s *socialGraphServiceImpl) GetProfile(ctx context.Context, viewerID, userID uint64) (*dto.ProfileDTO, error) {
	profile, err := s.profiles.ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &dto.ProfileDTO{
		UserID:         profile.UserID,
		Nickname:       profile.Nickname,
		AvatarURL:      profile.AvatarURL,
		FollowersCount: profile.FollowersCount,
		FollowingCount: profile.FollowingCount,
		PostsCount:     profile.PostsCount,
	}
	if viewerID == 0 || viewerID == userID {
		return res, nil
	}
	if res.IsBlocked, err = s.gate.blocked(ctx, viewerID, userID); err != nil {
		return nil, err
	}
	if res.IsFollowing, err = s.gate.following(ctx, viewerID, userID); err != nil {
		return nil, err
	}
	return res, nil
}

type fetchRelationFunc func(ctx context.Context, userID uint64, limit, offset int) ([]*dto.RelationUserDTO, error)

func (s *socialGraphServiceImpl) ListFollowers(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.RelationUserDTO, error) {
	return s.listRelationCommon(ctx, "list followers", userID, page, pageSize,
		func(ctx context.Context, userID uint64, limit, offset int) ([]*dto.RelationUserDTO, error) {
			rows, err := s.followRepo.GetUserFollowers(ctx, userID, limit, offset)
			if err != nil {
				return nil, err
			}
			res := make([]*dto.RelationUserDTO, 0, len(rows))
			for _, r := range rows {
				res = append(res, &dto.RelationUserDTO{UserID: r.FollowerID, CreatedAt: r.CreatedAt})
			}
			return res, nil
		})
}

func (s *socialGraphServiceImpl) ListFollowing(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.RelationUserDTO, error) {
	return s.listRelationCommon(ctx, "list following", userID, page, pageSize,
		func(ctx context.Context, userID uint64, limit, offset int) ([]*dto.RelationUserDTO, error) {
			rows, err := s.followRepo.GetUserFollowing(ctx, userID, limit, offset)
			if err != nil {
				return nil, err
			}
			res := make([]*dto.RelationUserDTO, 0, len(rows))
			for _, r := range rows {
				res = append(res, &dto.RelationUserDTO{UserID: r.FollowingID, CreatedAt: r.CreatedAt})
			}
			return res, nil
		})
}

func (s *socialGraphServiceImpl) ListBlocked(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.RelationUserDTO, error) {
	return s.listRelationCommon(ctx, "list blocked", userID, page, pageSize,
		func(ctx context.Context, userID uint64, limit, offset int) ([]*dto.RelationUserDTO, error) {
			rows, err := s.blockRepo.GetBlockedList(ctx, userID, limit, offset)
			if err != nil {
				return nil, err
			}
			res := make([]*dto.RelationUserDTO, 0, len(rows))
			for _, r := range rows {
				res = append(res, &dto.RelationUserDTO{UserID: r.BlockedID, CreatedAt: r.CreatedAt})
			}
			return res, nil
		})
}

// listRelationCommon 分页查询关系并批量补齐昵称头像
func (s *socialGraphServiceImpl) listRelationCommon(ctx context.Context, op string, userID uint64, page, pageSize int, fetch fetchRelationFunc) ([]*dto.RelationUserDTO, error) {
	limit, offset := util.NormalizePage(page, pageSize)
	var list []*dto.RelationUserDTO
	err := s.retry.Do(ctx, op, func(ctx context.Context) error {
		var err error
		list, err = fetch(ctx, userID, limit, offset)
		return err
	})
	if err != nil || len(list) == 0 {
		return list, err
	}

	ids := make([]uint64, 0, len(list))
	for _, item := range list {
		ids = append(ids, item.UserID)
	}
	var profiles []*model.CommunityProfile
	err = s.retry.Do(ctx, "get profiles", func(ctx context.Context) error {
		var err error
		profiles, err = s.profileRepo.GetProfiles(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.CommunityProfile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}
	for _, item := range list {
		if p, ok := byID[item.UserID]; ok {
			item.Nickname = p.Nickname
			item.AvatarURL = p.AvatarURL
		}
	}
	return list, nil
}
