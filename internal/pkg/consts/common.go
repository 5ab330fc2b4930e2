package consts

type ctxKey string

// UserIDKey 请求上下文中的调用者 ID
const UserIDKey ctxKey = "user_id"

const (
	MaxPageSize     = 100
	DefaultPageSize = 20
)
