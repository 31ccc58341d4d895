package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/logger"
	"github.com/nsxzhou1114/shock-api/pkg/auth"
	"github.com/nsxzhou1114/shock-api/pkg/response"
)

// 上下文键
const (
	ctxUsername = "username"
	ctxUserRole = "userRole"
)

// AdminAuth 管理员认证中间件，cfg 返回当前JWT配置以支持热更新
func AdminAuth(cfg func() config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从请求头获取token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录", nil)
			return
		}

		// 检查格式
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			response.Unauthorized(c, "Authorization格式错误", nil)
			return
		}

		claims, err := auth.ParseToken(cfg(), parts[1])
		if err != nil {
			logger.Warnf("无效的令牌: %v", err)
			response.Unauthorized(c, "无效的令牌", err)
			return
		}

		if claims.Role != auth.RoleAdmin {
			response.Forbidden(c, "需要管理员权限", nil)
			return
		}

		c.Set(ctxUsername, claims.Username)
		c.Set(ctxUserRole, claims.Role)
		c.Next()
	}
}

// GetUsername 从上下文中获取管理员用户名
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(ctxUsername)
	if !exists {
		return "", false
	}
	return username.(string), true
}
