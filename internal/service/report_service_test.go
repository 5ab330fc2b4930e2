package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/repository"
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postReport(id uint64) *dto.FileReportReq {
	return &dto.FileReportReq{TargetType: model.ReportTargetPost, TargetID: strconv.FormatUint(id, 10), Reason: model.ReportReasonSpam}
}

func TestReport_CountsAndSingleReview(t *testing.T) {
	env := newTestEnv(t)
	post := createPost(t, env, 1, "reported")

	var reports []*dto.ReportDTO
	for _, reporter := range []uint64{2, 3, 2} {
		r, err := env.reports.FileReport(env.ctx, reporter, postReport(post.ID))
		require.NoError(t, err)
		reports = append(reports, r)
	}
	assert.EqualValues(t, 3, reports[2].ReportCount)

	var stored model.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.EqualValues(t, 3, stored.ReportCount)
	assert.True(t, stored.NeedsReview)

	require.NoError(t, env.reports.StartReview(env.ctx, reports[0].ID, 99))
	assert.ErrorIs(t, env.reports.StartReview(env.ctx, reports[0].ID, 98), ErrReportReviewed)

	dismissed, err := env.reports.Review(env.ctx, reports[1].ID, 99, &dto.ReviewReq{Outcome: model.ReportStatusDismissed})
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusDismissed, dismissed.Status)

	_, err = env.reports.Review(env.ctx, reports[1].ID, 99, &dto.ReviewReq{Outcome: model.ReportStatusActionTaken})
	assert.ErrorIs(t, err, ErrReportTerminal)
	assert.ErrorIs(t, err, ErrInvalidState)

	taken, err := env.reports.Review(env.ctx, reports[0].ID, 99, &dto.ReviewReq{Outcome: model.ReportStatusActionTaken, Note: "spam"})
	require.NoError(t, err)
	assert.Equal(t, "spam", taken.ReviewNote)

	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.EqualValues(t, 2, stored.ReportCount)
	assert.True(t, stored.IsHidden)
	_, err = env.posts.GetPost(env.ctx, 4, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	pending, err := env.reports.ListReports(env.ctx, &dto.ReportListReq{Status: model.ReportStatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Total)
	assert.Equal(t, reports[2].ID, pending.List[0].ID)

	_, err = env.reports.GetReport(env.ctx, 12345)
	assert.ErrorIs(t, err, ErrReportNotFound)
	assert.ErrorIs(t, env.reports.StartReview(env.ctx, 12345, 99), ErrReportNotFound)
}

func TestReport_Targets(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reports.FileReport(env.ctx, 1, &dto.FileReportReq{TargetType: model.ReportTargetUser, TargetID: "1", Reason: model.ReportReasonOther})
	assert.ErrorIs(t, err, ErrReportSelf)

	_, err = env.reports.FileReport(env.ctx, 1, &dto.FileReportReq{TargetType: model.ReportTargetUser, TargetID: "9001", Reason: model.ReportReasonOther})
	assert.ErrorIs(t, err, ErrReportTargetNotFound)

	user, err := env.reports.FileReport(env.ctx, 1, &dto.FileReportReq{TargetType: model.ReportTargetUser, TargetID: "2", Reason: model.ReportReasonHarassment})
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.ReportCount)

	_, err = env.reports.FileReport(env.ctx, 1, postReport(404))
	assert.ErrorIs(t, err, ErrReportTargetNotFound)

	_, err = env.reports.FileReport(env.ctx, 1, &dto.FileReportReq{TargetType: model.ReportTargetComment, TargetID: "abc", Reason: model.ReportReasonSpam})
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = env.reports.FileReport(env.ctx, 1, &dto.FileReportReq{TargetType: 9, TargetID: "1", Reason: model.ReportReasonSpam})
	assert.ErrorIs(t, err, ErrValidation)

	// 屏蔽关系不影响举报
	post := createPost(t, env, 3, "p")
	require.NoError(t, env.graph.Block(env.ctx, 3, 1, ""))
	_, err = env.reports.FileReport(env.ctx, 1, postReport(post.ID))
	require.NoError(t, err)
}

func TestReport_Message(t *testing.T) {
	env := newTestEnv(t)
	msg, err := env.conversation.SendMessage(env.ctx, 1, textMsg(2, "rude words"))
	require.NoError(t, err)

	req := &dto.FileReportReq{TargetType: model.ReportTargetMessage, TargetID: msg.ID, Reason: model.ReportReasonHarassment}
	_, err = env.reports.FileReport(env.ctx, 3, req)
	assert.ErrorIs(t, err, UnauthorizedError)

	report, err := env.reports.FileReport(env.ctx, 2, req)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.ReportCount)

	_, err = env.reports.Review(env.ctx, report.ID, 99, &dto.ReviewReq{Outcome: model.ReportStatusActionTaken})
	require.NoError(t, err)

	stored, err := env.messages.GetByID(env.ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsHidden)
	history, err := env.conversation.GetChatHistory(env.ctx, 1, msg.ConversationKey, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, history)
}

// lostAckReportRepo 第一次审核已提交，但调用方只收到超时
type lostAckReportRepo struct {
	repository.ContentReportRepo
	calls int
}

func (r *lostAckReportRepo) ApplyReview(ctx context.Context, params *repository.ReviewParams) (*model.ContentReport, error) {
	r.calls++
	report, err := r.ContentReportRepo.ApplyReview(ctx, params)
	if err == nil && r.calls == 1 {
		return nil, context.DeadlineExceeded
	}
	return report, err
}

func TestReport_ReviewRetryAfterLostCommit(t *testing.T) {
	env := newTestEnv(t)
	post := createPost(t, env, 1, "reported")
	filed, err := env.reports.FileReport(env.ctx, 2, postReport(post.ID))
	require.NoError(t, err)

	repo := &lostAckReportRepo{ContentReportRepo: repository.NewContentReportRepo(env.db)}
	svc := NewReportService(repo, repository.NewPostRepository(env.db), repository.NewCommentRepo(env.db),
		env.messages, repository.NewCommunityProfileRepo(env.db), fakeResolver{}, testRetry, 3)

	res, err := svc.Review(env.ctx, filed.ID, 99, &dto.ReviewReq{Outcome: model.ReportStatusActionTaken, Note: "spam"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
	assert.Equal(t, model.ReportStatusActionTaken, res.Status)
	assert.EqualValues(t, 99, res.ReviewerID)

	var stored model.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.True(t, stored.IsHidden)

	// 另一次独立请求仍然不能重复处理
	_, err = svc.Review(env.ctx, filed.ID, 99, &dto.ReviewReq{Outcome: model.ReportStatusActionTaken})
	assert.ErrorIs(t, err, ErrReportTerminal)
}

func TestReport_SuspendedUserCannotInteract(t *testing.T) {
	env := newTestEnv(t)
	const offender = 2
	ownPost := createPost(t, env, offender, "before suspension")
	victimPost := createPost(t, env, 1, "victim")
	_, err := env.posts.CreateComment(env.ctx, offender, &dto.CreateCommentReq{PostID: victimPost.ID, Content: "rude"})
	require.NoError(t, err)

	filed, err := env.reports.FileReport(env.ctx, 1, &dto.FileReportReq{
		TargetType: model.ReportTargetUser, TargetID: strconv.Itoa(offender), Reason: model.ReportReasonHarassment,
	})
	require.NoError(t, err)
	_, err = env.reports.Review(env.ctx, filed.ID, 99, &dto.ReviewReq{Outcome: model.ReportStatusActionTaken})
	require.NoError(t, err)

	_, err = env.posts.CreatePost(env.ctx, offender, &dto.CreatePostReq{Caption: "again"})
	assert.ErrorIs(t, err, ErrUserSuspended)
	assert.ErrorIs(t, err, ErrBlocked)
	_, err = env.posts.CreateComment(env.ctx, offender, &dto.CreateCommentReq{PostID: victimPost.ID, Content: "more"})
	assert.ErrorIs(t, err, ErrUserSuspended)
	_, err = env.engagement.LikePost(env.ctx, offender, victimPost.ID)
	assert.ErrorIs(t, err, ErrUserSuspended)
	_, err = env.engagement.SharePost(env.ctx, offender, victimPost.ID)
	assert.ErrorIs(t, err, ErrUserSuspended)
	_, err = env.conversation.SendMessage(env.ctx, offender, textMsg(1, "hello"))
	assert.ErrorIs(t, err, ErrUserSuspended)

	// 已有内容对他人不可见，作者本人仍能看到
	_, err = env.posts.GetPost(env.ctx, 3, ownPost.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	list, err := env.posts.ListUserPosts(env.ctx, 3, offender, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = env.posts.ListUserPosts(env.ctx, offender, offender, 1, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	comments, err := env.posts.ListComments(env.ctx, 3, victimPost.ID, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
