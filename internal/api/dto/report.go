package dto

import "time"

// FileReportReq 举报请求
type FileReportReq struct {
	TargetType int8   `json:"target_type" validate:"required,oneof=1 2 3 4"` // 1-帖子, 2-评论, 3-用户, 4-私信
	TargetID   string `json:"target_id" validate:"required,max=64"`
	Reason     int8   `json:"reason" validate:"required,min=1,max=7"`
	Details    string `json:"details" validate:"max=500"`
}

// ReviewReq 审核请求
type ReviewReq struct {
	Outcome int8   `json:"outcome" validate:"required,oneof=3 4"` // 3-处理, 4-驳回
	Note    string `json:"note" validate:"max=500"`
}

// ReportListReq 后台举报列表筛选
type ReportListReq struct {
	Status     int8 `form:"status" binding:"omitempty,min=1,max=4"`
	TargetType int8 `form:"target_type" binding:"omitempty,min=1,max=4"`
	Page       int  `form:"page" binding:"omitempty,min=1"`
	PageSize   int  `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ReportDTO 举报详情
type ReportDTO struct {
	ID          uint64     `json:"id"`
	ReporterID  uint64     `json:"reporter_id"`
	TargetType  int8       `json:"target_type"`
	TargetID    string     `json:"target_id"`
	Reason      int8       `json:"reason"`
	Details     string     `json:"details"`
	Status      int8       `json:"status"`
	ReviewerID  uint64     `json:"reviewer_id"`
	ReviewNote  string     `json:"review_note"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	ReportCount int64      `json:"report_count"` // 提交后目标的累计举报数
	CreatedAt   time.Time  `json:"created_at"`
}

// ReportListDTO 举报分页列表
type ReportListDTO struct {
	Total int64        `json:"total"`
	List  []*ReportDTO `json:"list"`
}
