package consts

const (
	IdentityUserKey    = "identity:user:"
	ModerationRulesKey = "moderation:rules:active:"
	ModerationRulesVer = "moderation:rules:version"
	PostLikeKey        = "post:like:"
	PostCommentLikeKey = "post:comment:like:"
	CounterDirtyKey    = "community:counter:dirty"
	IMUserKey          = "im:user:"
	TokenRevokedKey    = "identity:token:revoked:"
	CountGuardSuffix   = ":guard"
)

const (
	ReconcileLock = "community:reconcile:lock"
)

// 脏计数成员前缀，格式为 前缀 + id
const (
	DirtyPostPrefix    = "post:"
	DirtyCommentPrefix = "comment:"
	DirtyUserPrefix    = "user:"
)
