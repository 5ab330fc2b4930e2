package dto

import "time"

// KeywordReq 新增违禁词
type KeywordReq struct {
	Keyword       string `json:"keyword" validate:"required,max=128"`
	WholeWord     bool   `json:"whole_word"`
	CaseSensitive bool   `json:"case_sensitive"`
	Severity      int8   `json:"severity" validate:"required,oneof=1 2 3"` // 1-Flag, 2-Shadow, 3-Block
}

// KeywordActiveReq 启用/停用
type KeywordActiveReq struct {
	Active bool `json:"active"`
}

// KeywordDTO 违禁词
type KeywordDTO struct {
	ID            uint64    `json:"id"`
	Keyword       string    `json:"keyword"`
	WholeWord     bool      `json:"whole_word"`
	CaseSensitive bool      `json:"case_sensitive"`
	Severity      int8      `json:"severity"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}
