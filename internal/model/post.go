package model

import (
	"time"
)

// 帖子可见范围
const (
	VisibilityPublic    int8 = 1
	VisibilityFollowers int8 = 2
	VisibilityPrivate   int8 = 3
)

type Post struct {
	ID            uint64    `gorm:"primaryKey"`
	UserID        uint64    `gorm:"not null;index:idx_post_user_id" json:"userId"`
	AuthorName    string    `gorm:"type:varchar(64)" json:"authorName"`
	AuthorAvatar  string    `gorm:"type:varchar(512)" json:"authorAvatar"`
	Caption       string    `gorm:"type:text" json:"caption"`
	LikesCount    int64     `gorm:"not null;default:0" json:"likesCount"`
	CommentsCount int64     `gorm:"not null;default:0" json:"commentsCount"`
	SharesCount   int64     `gorm:"not null;default:0" json:"sharesCount"`
	ReportCount   int64     `gorm:"not null;default:0" json:"reportCount"`
	Visibility    int8      `gorm:"not null;default:1" json:"visibility"`
	IsDeleted     bool      `gorm:"type:tinyint(1);not null;default:0" json:"isDeleted"`
	IsHidden      bool      `gorm:"type:tinyint(1);not null;default:0" json:"isHidden"`    // 举报处理后隐藏
	IsFlagged     bool      `gorm:"type:tinyint(1);not null;default:0" json:"isFlagged"`   // 命中 Flag 规则
	IsShadowed    bool      `gorm:"type:tinyint(1);not null;default:0" json:"isShadowed"`  // 仅作者可见
	NeedsReview   bool      `gorm:"type:tinyint(1);not null;default:0" json:"needsReview"` // 待人工复核
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Media []PostMedia `gorm:"foreignKey:PostID;references:ID" json:"media"`
}

func (Post) TableName() string {
	return "posts"
}

// VisibleToOthers 非作者是否可能看到，不含关注/屏蔽判断
func (p *Post) VisibleToOthers() bool {
	return !p.IsDeleted && !p.IsHidden && !p.IsShadowed && p.Visibility != VisibilityPrivate
}
