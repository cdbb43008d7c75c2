package shared

import (
	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// ServiceErrorCode 将业务错误类别映射为响应码。
func ServiceErrorCode(err error) int {
	switch service.KindOf(err) {
	case service.KindNotFound:
		return response.CodeNotFound
	case service.KindInvalidState, service.KindInvalidArgument, service.KindInvalidSignatureOrReplay:
		return response.CodeBadRequest
	case service.KindConflict:
		return response.CodeConflict
	case service.KindUnauthorized:
		return response.CodeUnauthorized
	default:
		return response.CodeInternal
	}
}

// RespondServiceError 按业务错误类别返回响应。
// 已知类别直接透出哨兵错误的文案，未知错误只落日志不外泄细节。
func RespondServiceError(c *gin.Context, err error, fallbackMsg string) {
	code := ServiceErrorCode(err)
	if code == response.CodeInternal {
		RespondError(c, code, fallbackMsg, err)
		return
	}
	response.Error(c, code, err.Error())
}
