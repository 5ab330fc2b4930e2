package job

import (
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/logger"
	"Agora/internal/pkg/redis"
	"Agora/internal/repository"
	"context"
	log "log/slog"
	"strconv"
	"strings"
	"time"
)

const reconcileLockTTL = 2 * time.Minute

// CounterReconcileJob 按明细行重算被标记为脏的冗余计数
type CounterReconcileJob struct {
	engagementRepo repository.EngagementRepo
	profileRepo    repository.CommunityProfileRepo
}

func NewCounterReconcileJob(engagementRepo repository.EngagementRepo, profileRepo repository.CommunityProfileRepo) *CounterReconcileJob {
	return &CounterReconcileJob{
		engagementRepo: engagementRepo,
		profileRepo:    profileRepo,
	}
}

func (s *CounterReconcileJob) Run() {
	ctx := logger.WithTraceID(context.Background(), "job-reconcile")
	if err := s.Reconcile(ctx); err != nil {
		log.ErrorContext(ctx, "reconcile counters error", "err", err)
	}
}

// Reconcile 多实例部署时只有拿到锁的实例执行
func (s *CounterReconcileJob) Reconcile(ctx context.Context) error {
	owner := logger.TraceID(ctx)
	if owner == "" {
		owner = "reconcile"
	}
	ok, err := redis.TryLock(ctx, consts.ReconcileLock, owner, reconcileLockTTL, 1)
	if err != nil || !ok {
		return err
	}
	defer redis.UnLock(ctx, consts.ReconcileLock, owner)

	processingKey := consts.CounterDirtyKey + ":processing"
	// 上一轮中断时 processing 集合还在，先把它处理完
	pending, err := redis.Exists(ctx, processingKey)
	if err != nil {
		return err
	}
	if !pending {
		renamed, err := redis.Rename(ctx, consts.CounterDirtyKey, processingKey)
		if err != nil || !renamed {
			return err
		}
	}

	members, err := redis.GetSet(ctx, processingKey)
	if err != nil {
		return err
	}

	var posts, comments, users, failed int
	for _, member := range members {
		kind, rawID, found := strings.Cut(member, ":")
		id, parseErr := strconv.ParseUint(rawID, 10, 64)
		if !found || parseErr != nil {
			log.WarnContext(ctx, "skip malformed dirty member", "member", member)
			continue
		}

		switch kind + ":" {
		case consts.DirtyPostPrefix:
			err = s.engagementRepo.ReconcilePostCounters(ctx, id)
			posts++
		case consts.DirtyCommentPrefix:
			err = s.engagementRepo.ReconcileCommentCounters(ctx, id)
			comments++
		case consts.DirtyUserPrefix:
			err = s.profileRepo.ReconcileFollowCounters(ctx, id)
			users++
		default:
			log.WarnContext(ctx, "skip unknown dirty member", "member", member)
			continue
		}
		if err != nil {
			failed++
			log.ErrorContext(ctx, "reconcile counter error", "member", member, "err", err)
			// 失败的成员放回脏集合，下一轮重试
			if addErr := redis.AddToSet(ctx, consts.CounterDirtyKey, member); addErr != nil {
				log.ErrorContext(ctx, "requeue dirty member error", "member", member, "err", addErr)
			}
		}
	}

	if err = redis.DeleteKey(ctx, processingKey); err != nil {
		log.ErrorContext(ctx, "delete processing set error", "err", err)
	}

	log.InfoContext(ctx, "reconcile counters success",
		"post_count", posts,
		"comment_count", comments,
		"user_count", users,
		"failed", failed)
	return nil
}
