package model

import "time"

// 举报目标类型
const (
	ReportTargetPost    int8 = 1
	ReportTargetComment int8 = 2
	ReportTargetUser    int8 = 3
	ReportTargetMessage int8 = 4
)

// 举报原因
const (
	ReportReasonSpam           int8 = 1
	ReportReasonHarassment     int8 = 2
	ReportReasonHateSpeech     int8 = 3
	ReportReasonNudity         int8 = 4
	ReportReasonViolence       int8 = 5
	ReportReasonMisinformation int8 = 6
	ReportReasonOther          int8 = 7
)

// 举报状态
const (
	ReportStatusPending     int8 = 1
	ReportStatusUnderReview int8 = 2
	ReportStatusActionTaken int8 = 3
	ReportStatusDismissed   int8 = 4
)

type ContentReport struct {
	ID         uint64     `gorm:"primaryKey" json:"id"`
	ReporterID uint64     `gorm:"not null;index" json:"reporterId"`
	TargetType int8       `gorm:"not null;index:idx_target" json:"targetType"`
	TargetID   string     `gorm:"type:varchar(64);not null;index:idx_target" json:"targetId"`
	Reason     int8       `gorm:"not null" json:"reason"`
	Details    string     `gorm:"type:varchar(500)" json:"details"`
	Status     int8       `gorm:"not null;default:1;index" json:"status"`
	ReviewerID uint64     `gorm:"not null;default:0" json:"reviewerId"`
	ReviewNote string     `gorm:"type:varchar(500)" json:"reviewNote"`
	ReviewedAt *time.Time `json:"reviewedAt"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (ContentReport) TableName() string {
	return "content_reports"
}

// IsTerminal 已处理或已驳回
func (r *ContentReport) IsTerminal() bool {
	return r.Status == ReportStatusActionTaken || r.Status == ReportStatusDismissed
}
