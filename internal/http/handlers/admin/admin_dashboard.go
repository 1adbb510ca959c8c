package admin

import (
	"strconv"
	"strings"

	"github.com/kamishop/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 获取后台仪表盘总览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	forceRefresh := false
	if raw := strings.TrimSpace(c.Query("force_refresh")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "参数无效", err)
			return
		}
		forceRefresh = parsed
	}

	data, err := h.DashboardService.GetOverview(c.Request.Context(), forceRefresh)
	if err != nil {
		respondError(c, response.CodeInternal, "仪表盘数据获取失败", err)
		return
	}

	response.Success(c, data)
}
