package dto

import "time"

// ProfileDTO 社区档案
type ProfileDTO struct {
	UserID         uint64 `json:"user_id"`
	Nickname       string `json:"nickname"`
	AvatarURL      string `json:"avatar_url"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
	PostsCount     int64  `json:"posts_count"`
	IsFollowing    bool   `json:"is_following"`
	IsBlocked      bool   `json:"is_blocked"`
}

// RelationUserDTO 关注/粉丝/屏蔽列表项
type RelationUserDTO struct {
	UserID    uint64    `json:"user_id"`
	Nickname  string    `json:"nickname"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// FollowDTO 关注结果
type FollowDTO struct {
	Following bool `json:"following"`
	Changed   bool `json:"changed"`
}

// BlockReq 屏蔽请求
type BlockReq struct {
	Reason string `json:"reason" binding:"max=255"`
}
