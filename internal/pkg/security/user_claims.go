package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
)

const JWTExpirationTime = time.Hour * 24

// UserClaims 身份服务签发的 Token 中携带的调用者信息
type UserClaims struct {
	UserID   uint64   `json:"user_id"`
	Nickname string   `json:"nickname"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole 是否具备任一角色
func (c *UserClaims) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
