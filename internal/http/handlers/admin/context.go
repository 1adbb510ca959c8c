package admin

import (
	"strings"

	handlershared "github.com/kamishop/internal/http/handlers/shared"
	"github.com/kamishop/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

// getAdminUsername 读取当前登录管理员用户名，卡密写操作以它对照白名单
func getAdminUsername(c *gin.Context) (string, bool) {
	value, exists := c.Get("admin_username")
	if !exists {
		respondError(c, response.CodeUnauthorized, "未登录", nil)
		return "", false
	}
	username, ok := value.(string)
	if !ok || strings.TrimSpace(username) == "" {
		respondError(c, response.CodeInternal, "上下文数据类型错误", nil)
		return "", false
	}
	return username, true
}
