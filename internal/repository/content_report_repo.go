package repository

import (
	"Agora/internal/model"
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// ReportFilter 后台列表筛选，0 表示不限
type ReportFilter struct {
	Status     int8
	TargetType int8
	ReporterID uint64
}

// ReviewParams 审核结论
type ReviewParams struct {
	ReportID   uint64
	ReviewerID uint64
	Outcome    int8 // ReportStatusActionTaken / ReportStatusDismissed
	Note       string
}

type ContentReportRepo interface {
	CreateReport(ctx context.Context, report *model.ContentReport, reviewThreshold int64) (int64, error)
	GetReport(ctx context.Context, id uint64) (*model.ContentReport, error)
	StartReview(ctx context.Context, id uint64, reviewerID uint64) error
	ApplyReview(ctx context.Context, params *ReviewParams) (*model.ContentReport, error)
	ListReports(ctx context.Context, filter ReportFilter, limit, offset int) ([]*model.ContentReport, int64, error)
}

type contentReportRepoImpl struct {
	db *gorm.DB
}

func NewContentReportRepo(db *gorm.DB) ContentReportRepo {
	return &contentReportRepoImpl{db: db}
}

// reportTarget 关系库中可计数的举报目标，私信在 Mongo 中单独处理
type reportTarget struct {
	model  any
	where  string
	hidden string
}

func reportTargetOf(targetType int8, targetID string) (*reportTarget, uint64, bool) {
	id, err := strconv.ParseUint(targetID, 10, 64)
	if err != nil {
		return nil, 0, false
	}
	switch targetType {
	case model.ReportTargetPost:
		return &reportTarget{model: &model.Post{}, where: "id = ?", hidden: "is_hidden"}, id, true
	case model.ReportTargetComment:
		return &reportTarget{model: &model.PostComment{}, where: "id = ?", hidden: "is_hidden"}, id, true
	case model.ReportTargetUser:
		return &reportTarget{model: &model.CommunityProfile{}, where: "user_id = ?", hidden: "is_suspended"}, id, true
	}
	return nil, 0, false
}

// CreateReport 追加举报并累加目标的举报计数，达到阈值时标记待复核
// 返回累加后的计数，私信目标返回 0 由调用方处理
func (s *contentReportRepoImpl) CreateReport(ctx context.Context, report *model.ContentReport, reviewThreshold int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		target, id, ok := reportTargetOf(report.TargetType, report.TargetID)
		if !ok {
			return nil
		}
		res := tx.Model(target.model).Where(target.where, id).
			UpdateColumn("report_count", gorm.Expr("report_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTargetGone
		}
		if err := tx.Model(target.model).Select("report_count").Where(target.where, id).Scan(&count).Error; err != nil {
			return err
		}
		if reviewThreshold > 0 && count >= reviewThreshold {
			return tx.Model(target.model).Where(target.where, id).UpdateColumn("needs_review", true).Error
		}
		return nil
	})
	return count, err
}

// GetReport 获取举报
func (s *contentReportRepoImpl) GetReport(ctx context.Context, id uint64) (*model.ContentReport, error) {
	var report model.ContentReport
	err := s.db.WithContext(ctx).First(&report, id).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// StartReview Pending -> UnderReview
func (s *contentReportRepoImpl) StartReview(ctx context.Context, id uint64, reviewerID uint64) error {
	res := s.db.WithContext(ctx).Model(&model.ContentReport{}).
		Where("id = ? AND status = ?", id, model.ReportStatusPending).
		Updates(map[string]interface{}{
			"status":      model.ReportStatusUnderReview,
			"reviewer_id": reviewerID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

// ApplyReview 以状态为条件更新，保证每条举报只被处理一次
// 成立时隐藏目标，驳回时回退目标的举报计数
func (s *contentReportRepoImpl) ApplyReview(ctx context.Context, params *ReviewParams) (*model.ContentReport, error) {
	var report model.ContentReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.ContentReport{}).
			Where("id = ? AND status IN ?", params.ReportID,
				[]int8{model.ReportStatusPending, model.ReportStatusUnderReview}).
			Updates(map[string]interface{}{
				"status":      params.Outcome,
				"reviewer_id": params.ReviewerID,
				"review_note": params.Note,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}
		if err := tx.First(&report, params.ReportID).Error; err != nil {
			return err
		}

		target, id, ok := reportTargetOf(report.TargetType, report.TargetID)
		if !ok {
			return nil
		}
		switch params.Outcome {
		case model.ReportStatusActionTaken:
			return tx.Model(target.model).Where(target.where, id).
				Updates(map[string]interface{}{target.hidden: true, "needs_review": false}).Error
		case model.ReportStatusDismissed:
			return tx.Model(target.model).Where(target.where, id).
				UpdateColumn("report_count", gorm.Expr(fmt.Sprintf(decrExpr, "report_count"))).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports 后台分页列表，返回总数
func (s *contentReportRepoImpl) ListReports(ctx context.Context, filter ReportFilter, limit, offset int) ([]*model.ContentReport, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.ContentReport{})
	if filter.Status != 0 {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TargetType != 0 {
		q = q.Where("target_type = ?", filter.TargetType)
	}
	if filter.ReporterID != 0 {
		q = q.Where("reporter_id = ?", filter.ReporterID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var reports []*model.ContentReport
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&reports).Error
	return reports, total, err
}
