package service

import (
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/moderation"
	"Agora/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"
)

// publishEvent 通知是尽力而为的，发布失败只记录日志，不影响主写入
func publishEvent(ctx context.Context, pub event.Publisher, evt *event.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(context.WithoutCancel(ctx), evt); err != nil {
		log.WarnContext(ctx, "publish event failed", "event_id", evt.ID, "type", evt.Type, "err", err)
	}
}

// markDirty 记录计数可能漂移的对象，由对账任务重算
func markDirty(ctx context.Context, members ...string) {
	if redis.Rdb == nil {
		return
	}
	if err := redis.AddToSet(context.WithoutCancel(ctx), consts.CounterDirtyKey, members...); err != nil {
		log.WarnContext(ctx, "mark counter dirty failed", "members", members, "err", err)
	}
}

func dirtyPost(id uint64) string    { return consts.DirtyPostPrefix + strconv.FormatUint(id, 10) }
func dirtyComment(id uint64) string { return consts.DirtyCommentPrefix + strconv.FormatUint(id, 10) }
func dirtyUser(id uint64) string    { return consts.DirtyUserPrefix + strconv.FormatUint(id, 10) }

// contentFlags 审核结论落到内容上的标记
type contentFlags struct {
	Flagged     bool
	Shadowed    bool
	NeedsReview bool
}

// applyVerdict Block 直接拒绝，Flag 待复核，Shadow 仅作者可见
func applyVerdict(ctx context.Context, v moderation.Verdict) (contentFlags, error) {
	var flags contentFlags
	switch v.Action {
	case moderation.ActionBlock:
		log.InfoContext(ctx, "content rejected by moderation", "rule_id", v.Rule.ID, "keyword", v.Rule.Keyword)
		return flags, ErrContentRejected
	case moderation.ActionFlag:
		flags.Flagged = true
		flags.NeedsReview = true
	case moderation.ActionShadow:
		flags.Shadowed = true
	}
	if !v.IsAllow() {
		log.InfoContext(ctx, "content moderated", "action", v.Action.String(), "rule_id", v.Rule.ID)
	}
	return flags, nil
}
