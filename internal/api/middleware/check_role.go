package middleware

import (
	"Agora/internal/pkg/response"
	"slices"

	"github.com/gin-gonic/gin"
)

// CheckRoles 当前用户至少拥有一个指定角色才放行
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := c.GetStringSlice("roles")
		for _, required := range requiredRoles {
			if slices.Contains(roles, required) {
				c.Next()
				return
			}
		}
		response.Fail(c, response.Forbidden, "权限不足：无权访问该资源")
		c.Abort()
	}
}
