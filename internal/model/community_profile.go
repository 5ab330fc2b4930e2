package model

import "time"

// CommunityProfile 社区侧的用户档案，账号本身由身份服务维护
type CommunityProfile struct {
	UserID         uint64    `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Nickname       string    `gorm:"type:varchar(64)" json:"nickname"`
	AvatarURL      string    `gorm:"type:varchar(512)" json:"avatarUrl"`
	FollowersCount int64     `gorm:"not null;default:0" json:"followersCount"`
	FollowingCount int64     `gorm:"not null;default:0" json:"followingCount"`
	PostsCount     int64     `gorm:"not null;default:0" json:"postsCount"`
	ReportCount    int64     `gorm:"not null;default:0" json:"reportCount"`
	IsSuspended    bool      `gorm:"type:tinyint(1);not null;default:0" json:"isSuspended"`
	NeedsReview    bool      `gorm:"type:tinyint(1);not null;default:0" json:"needsReview"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (CommunityProfile) TableName() string {
	return "community_profiles"
}
