package model

import "time"

type BannedKeyword struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	Keyword       string    `gorm:"type:varchar(128);not null" json:"keyword"`
	WholeWord     bool      `gorm:"type:tinyint(1);not null;default:0" json:"wholeWord"`
	CaseSensitive bool      `gorm:"type:tinyint(1);not null;default:0" json:"caseSensitive"`
	Severity      int8      `gorm:"not null" json:"severity"` // 1-Flag, 2-Shadow, 3-Block
	IsActive      bool      `gorm:"type:tinyint(1);not null;default:1;index" json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (BannedKeyword) TableName() string {
	return "banned_keywords"
}
