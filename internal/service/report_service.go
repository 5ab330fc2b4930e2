package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/identity"
	"Agora/internal/pkg/mongo"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ReportService 举报与审核
type ReportService interface {
	FileReport(ctx context.Context, reporterID uint64, req *dto.FileReportReq) (*dto.ReportDTO, error)
	StartReview(ctx context.Context, reportID, reviewerID uint64) error
	Review(ctx context.Context, reportID, reviewerID uint64, req *dto.ReviewReq) (*dto.ReportDTO, error)
	ListReports(ctx context.Context, req *dto.ReportListReq) (*dto.ReportListDTO, error)
	GetReport(ctx context.Context, reportID uint64) (*dto.ReportDTO, error)
}

type reportServiceImpl struct {
	reportRepo  repository.ContentReportRepo
	postRepo    repository.PostRepo
	commentRepo repository.CommentRepo
	messageRepo mongo.MessageRepo
	profiles    *profileLoader
	retry       RetryPolicy
	threshold   int64
}

func NewReportService(
	reportRepo repository.ContentReportRepo,
	postRepo repository.PostRepo,
	commentRepo repository.CommentRepo,
	messageRepo mongo.MessageRepo,
	profileRepo repository.CommunityProfileRepo,
	resolver identity.Resolver,
	retry RetryPolicy,
	threshold int64,
) ReportService {
	return &reportServiceImpl{
		reportRepo:  reportRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		messageRepo: messageRepo,
		profiles:    &profileLoader{profileRepo: profileRepo, resolver: resolver, retry: retry},
		retry:       retry,
		threshold:   threshold,
	}
}

// FileReport 举报只追加，不做去重；屏蔽关系不影响举报
func (s *reportServiceImpl) FileReport(ctx context.Context, reporterID uint64, req *dto.FileReportReq) (*dto.ReportDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, invalidParam(err)
	}
	targetID := strings.TrimSpace(req.TargetID)

	var msg *mongo.Message
	switch req.TargetType {
	case model.ReportTargetMessage:
		var err error
		if msg, err = s.getMessage(ctx, targetID); err != nil {
			return nil, err
		}
		if !msg.IsParticipant(reporterID) {
			return nil, UnauthorizedError
		}
	default:
		if err := s.checkTarget(ctx, reporterID, req.TargetType, targetID); err != nil {
			return nil, err
		}
	}

	report := &model.ContentReport{
		ReporterID: reporterID,
		TargetType: req.TargetType,
		TargetID:   targetID,
		Reason:     req.Reason,
		Details:    strings.TrimSpace(req.Details),
		Status:     model.ReportStatusPending,
	}
	var count int64
	err := s.retry.Once(ctx, "create report", func(ctx context.Context) error {
		var err error
		count, err = s.reportRepo.CreateReport(ctx, report, s.threshold)
		return err
	})
	if errors.Is(err, repository.ErrTargetGone) {
		return nil, ErrReportTargetNotFound
	}
	if err != nil {
		return nil, err
	}

	if msg != nil {
		// 私信计数在 MongoDB，举报已落库，计数失败只记录
		err = s.retry.Do(ctx, "incr message report count", func(ctx context.Context) error {
			return s.messageRepo.IncrReportCount(ctx, msg.ID, 1)
		})
		if err != nil {
			log.WarnContext(ctx, "incr message report count failed", "message_id", msg.ID, "err", err)
		} else {
			count = msg.ReportCount + 1
		}
	}

	log.InfoContext(ctx, "report filed", "report_id", report.ID, "target_type", report.TargetType,
		"target_id", report.TargetID, "report_count", count)
	res := s.toReportDTO(report)
	res.ReportCount = count
	return res, nil
}

func (s *reportServiceImpl) checkTarget(ctx context.Context, reporterID uint64, targetType int8, targetID string) error {
	id, err := strconv.ParseUint(targetID, 10, 64)
	if err != nil || id == 0 {
		return ErrParamInvalid
	}
	switch targetType {
	case model.ReportTargetPost:
		var post *model.Post
		err = s.retry.Do(ctx, "get post", func(ctx context.Context) error {
			var err error
			post, err = s.postRepo.GetPost(ctx, id)
			return err
		})
		if err == nil && post.IsDeleted {
			return ErrReportTargetNotFound
		}
	case model.ReportTargetComment:
		var comment *model.PostComment
		err = s.retry.Do(ctx, "get comment", func(ctx context.Context) error {
			var err error
			comment, err = s.commentRepo.GetComment(ctx, id)
			return err
		})
		if err == nil && comment.IsDeleted {
			return ErrReportTargetNotFound
		}
	case model.ReportTargetUser:
		if id == reporterID {
			return ErrReportSelf
		}
		_, err = s.profiles.ensure(ctx, id)
		if errors.Is(err, ErrUserNotFound) {
			return ErrReportTargetNotFound
		}
	default:
		return ErrParamInvalid
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReportTargetNotFound
	}
	return err
}

func (s *reportServiceImpl) getMessage(ctx context.Context, id string) (*mongo.Message, error) {
	var msg *mongo.Message
	err := s.retry.Do(ctx, "get message", func(ctx context.Context) error {
		var err error
		msg, err = s.messageRepo.GetByID(ctx, id)
		return err
	})
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return nil, ErrReportTargetNotFound
	}
	return msg, err
}

// StartReview Pending -> UnderReview
func (s *reportServiceImpl) StartReview(ctx context.Context, reportID, reviewerID uint64) error {
	err := s.retry.Do(ctx, "start review", func(ctx context.Context) error {
		return s.reportRepo.StartReview(ctx, reportID, reviewerID)
	})
	if errors.Is(err, repository.ErrStateChanged) {
		return s.stateError(ctx, reportID)
	}
	return err
}

// Review 终态的举报不能再次处理
func (s *reportServiceImpl) Review(ctx context.Context, reportID, reviewerID uint64, req *dto.ReviewReq) (*dto.ReportDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, invalidParam(err)
	}

	// 条件更新本身幂等，重试时若上一次已提交会得到 ErrStateChanged
	var (
		report   *model.ContentReport
		attempts int
	)
	err := s.retry.Do(ctx, "apply review", func(ctx context.Context) error {
		attempts++
		var err error
		report, err = s.reportRepo.ApplyReview(ctx, &repository.ReviewParams{
			ReportID:   reportID,
			ReviewerID: reviewerID,
			Outcome:    req.Outcome,
			Note:       strings.TrimSpace(req.Note),
		})
		return err
	})
	if errors.Is(err, repository.ErrStateChanged) {
		if attempts == 1 {
			return nil, s.stateError(ctx, reportID)
		}
		if report, err = s.ownCommittedReview(ctx, reportID, reviewerID, req.Outcome); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if report.TargetType == model.ReportTargetMessage {
		s.applyMessageOutcome(ctx, report)
	}
	log.InfoContext(ctx, "report reviewed", "report_id", report.ID, "reviewer_id", reviewerID, "status", report.Status)
	return s.toReportDTO(report), nil
}

func (s *reportServiceImpl) applyMessageOutcome(ctx context.Context, report *model.ContentReport) {
	var err error
	switch report.Status {
	case model.ReportStatusActionTaken:
		err = s.retry.Do(ctx, "hide message", func(ctx context.Context) error {
			return s.messageRepo.SetHidden(ctx, report.TargetID)
		})
	case model.ReportStatusDismissed:
		err = s.retry.Do(ctx, "decr message report count", func(ctx context.Context) error {
			return s.messageRepo.IncrReportCount(ctx, report.TargetID, -1)
		})
	}
	if err != nil {
		log.ErrorContext(ctx, "apply review to message failed", "report_id", report.ID, "message_id", report.TargetID, "err", err)
	}
}

// ownCommittedReview 重试命中 ErrStateChanged 时，结论与本次请求一致说明是自己之前那次已提交
func (s *reportServiceImpl) ownCommittedReview(ctx context.Context, reportID, reviewerID uint64, outcome int8) (*model.ContentReport, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.IsTerminal() && report.ReviewerID == reviewerID && report.Status == outcome {
		log.WarnContext(ctx, "review committed by earlier attempt", "report_id", reportID, "reviewer_id", reviewerID)
		return report, nil
	}
	if report.IsTerminal() {
		return nil, ErrReportTerminal
	}
	return nil, ErrReportReviewed
}

// stateError 条件更新未命中时区分不存在、已处理与已在审核中
func (s *reportServiceImpl) stateError(ctx context.Context, reportID uint64) error {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	if report.IsTerminal() {
		return ErrReportTerminal
	}
	return ErrReportReviewed
}

func (s *reportServiceImpl) getReport(ctx context.Context, reportID uint64) (*model.ContentReport, error) {
	var report *model.ContentReport
	err := s.retry.Do(ctx, "get report", func(ctx context.Context) error {
		var err error
		report, err = s.reportRepo.GetReport(ctx, reportID)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	return report, err
}

// GetReport 获取举报详情
func (s *reportServiceImpl) GetReport(ctx context.Context, reportID uint64) (*dto.ReportDTO, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.toReportDTO(report), nil
}

// ListReports 后台举报列表
func (s *reportServiceImpl) ListReports(ctx context.Context, req *dto.ReportListReq) (*dto.ReportListDTO, error) {
	limit, offset := util.NormalizePage(req.Page, req.PageSize)
	filter := repository.ReportFilter{Status: req.Status, TargetType: req.TargetType}

	var (
		reports []*model.ContentReport
		total   int64
	)
	err := s.retry.Do(ctx, "list reports", func(ctx context.Context) error {
		var err error
		reports, total, err = s.reportRepo.ListReports(ctx, filter, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &dto.ReportListDTO{Total: total, List: make([]*dto.ReportDTO, 0, len(reports))}
	for _, r := range reports {
		res.List = append(res.List, s.toReportDTO(r))
	}
	return res, nil
}

func (s *reportServiceImpl) toReportDTO(report *model.ContentReport) *dto.ReportDTO {
	res := &dto.ReportDTO{}
	if err := copier.Copy(res, report); err != nil {
		log.Error("copy report failed", "report_id", report.ID, "err", err)
	}
	return res
}
