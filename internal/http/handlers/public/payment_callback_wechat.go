package public

import (
	"errors"
	"io"
	"net/http"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/payment/wechatpay"
	"github.com/haoche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// HandleWechatCallback 处理微信支付异步通知。
// 验签与解密交给渠道包，落账交给支付服务；应答语义遵循微信回调协议。
func (h *Handler) HandleWechatCallback(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("wechat_callback_body_read_failed", "error", err)
		respondWechatCallback(c, false)
		return
	}

	cfg, err := wechatpay.ParseConfig(h.Config.Payment.Wechat)
	if err != nil {
		log.Errorw("wechat_callback_config_invalid", "error", err)
		respondWechatCallback(c, false)
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	result, err := wechatpay.VerifyAndDecodeWebhook(c.Request.Context(), cfg, headers, body)
	if err != nil {
		log.Warnw("wechat_callback_verify_failed",
			"client_ip", c.ClientIP(),
			"body_size", len(body),
			"error", err,
		)
		respondWechatCallback(c, false)
		return
	}

	log.Infow("wechat_callback_received",
		"payment_no", result.PaymentNo,
		"transaction_id", result.TransactionID,
		"status", result.Status,
		"client_ip", c.ClientIP(),
	)

	payment, err := h.PaymentService.ApplyChannelNotification(service.ChannelNotificationInput{
		Channel:        constants.PaymentChannelWechat,
		PaymentNo:      result.PaymentNo,
		ChannelTradeNo: result.TransactionID,
		Status:         result.Status,
		Amount:         result.Amount,
		PaidAt:         result.PaidAt,
		Raw:            models.JSON(result.Raw),
		ClientIP:       c.ClientIP(),
	})
	if err != nil {
		log.Warnw("wechat_callback_handle_failed",
			"payment_no", result.PaymentNo,
			"transaction_id", result.TransactionID,
			"error", err,
		)
		respondWechatCallback(c, !callbackShouldRetry(err))
		return
	}

	log.Infow("wechat_callback_processed",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"status", payment.Status,
	)
	respondWechatCallback(c, true)
}

// callbackShouldRetry 判断渠道是否需要重试通知。
// 重放与金额异常已留痕，再投递也不会成功，直接确认避免渠道重试风暴。
func callbackShouldRetry(err error) bool {
	if errors.Is(err, service.ErrChannelReplay) || errors.Is(err, service.ErrChannelAmountMismatch) {
		return false
	}
	return true
}

func respondWechatCallback(c *gin.Context, success bool) {
	if success {
		c.JSON(http.StatusOK, gin.H{
			"code":    "SUCCESS",
			"message": "成功",
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "FAIL",
		"message": "失败",
	})
}
