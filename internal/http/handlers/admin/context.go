package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/haoche-next/internal/http/handlers/shared"
	"github.com/haoche-next/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		response.BadRequest(c, "路径参数不合法")
		return 0, false
	}
	return uint(parsed), true
}
