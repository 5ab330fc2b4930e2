package model

import "time"

// UserFollow 关注边，follower -> following
type UserFollow struct {
	FollowerID  uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_follow_follower_created,priority:1" json:"followerId"`
	FollowingID uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_follow_following_created,priority:1" json:"followingId"`
	CreatedAt   time.Time `gorm:"index:idx_follow_follower_created,priority:2;index:idx_follow_following_created,priority:2" json:"createdAt"`
}

func (UserFollow) TableName() string {
	return "user_follows"
}
