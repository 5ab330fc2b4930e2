package dto

// LikeStateDTO 点赞/取消后的状态
type LikeStateDTO struct {
	Liked   bool  `json:"liked"`
	Changed bool  `json:"changed"` // false 表示重复操作，状态未变化
	Count   int64 `json:"count"`
}

// ShareDTO 分享结果
type ShareDTO struct {
	Changed bool  `json:"changed"`
	Count   int64 `json:"count"`
}

// LikeReq 点赞/取消
type LikeReq struct {
	Action int `json:"action" binding:"required,oneof=1 2"` // 1:点赞, 2:取消
}
