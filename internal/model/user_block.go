package model

import "time"

type UserBlock struct {
	BlockerID uint64    `gorm:"primaryKey" json:"blockerId"`
	BlockedID uint64    `gorm:"primaryKey;index:idx_blocked_id" json:"blockedId"`
	Reason    string    `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

func (UserBlock) TableName() string {
	return "user_blocks"
}
