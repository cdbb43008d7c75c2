package admin

import (
	"strings"
	"time"

	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 仪表盘总览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	input, ok := parseDashboardQuery(c)
	if !ok {
		return
	}
	overview, err := h.DashboardService.GetOverview(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "获取仪表盘数据失败")
		return
	}
	response.Success(c, overview)
}

// GetDashboardTrends 仪表盘趋势
func (h *Handler) GetDashboardTrends(c *gin.Context) {
	input, ok := parseDashboardQuery(c)
	if !ok {
		return
	}
	trends, err := h.DashboardService.GetTrends(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "获取趋势数据失败")
		return
	}
	response.Success(c, trends)
}

// GetDashboardRankings 仪表盘榜单
func (h *Handler) GetDashboardRankings(c *gin.Context) {
	input, ok := parseDashboardQuery(c)
	if !ok {
		return
	}
	rankings, err := h.DashboardService.GetRankings(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "获取榜单数据失败")
		return
	}
	response.Success(c, rankings)
}

func parseDashboardQuery(c *gin.Context) (service.DashboardQueryInput, bool) {
	input := service.DashboardQueryInput{
		Range:        strings.TrimSpace(c.Query("range")),
		Timezone:     strings.TrimSpace(c.Query("timezone")),
		ForceRefresh: strings.TrimSpace(c.Query("force_refresh")) == "true",
	}
	from, ok := parseDashboardTime(c, "from")
	if !ok {
		return input, false
	}
	to, ok := parseDashboardTime(c, "to")
	if !ok {
		return input, false
	}
	input.From = from
	input.To = to
	return input, true
}

func parseDashboardTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed, true
		}
	}
	response.BadRequest(c, "统计时间参数不合法")
	return nil, false
}
