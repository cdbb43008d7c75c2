package public

import (
	"strings"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/payment/alipay"
	"github.com/haoche-next/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	alipayCallbackSuccess = "success"
	alipayCallbackFail    = "fail"
)

// HandleAlipayCallback 处理支付宝异步通知。
// 支付宝以表单投递并要求纯文本应答，success 之外的应答都会触发重试。
func (h *Handler) HandleAlipayCallback(c *gin.Context) {
	log := requestLog(c)
	if err := c.Request.ParseForm(); err != nil {
		log.Warnw("alipay_callback_form_parse_failed", "error", err)
		c.String(200, alipayCallbackFail)
		return
	}
	form := map[string][]string(c.Request.PostForm)
	if len(form) == 0 {
		form = map[string][]string(c.Request.Form)
	}

	cfg, err := alipay.ParseConfig(h.Config.Payment.Alipay)
	if err != nil {
		log.Errorw("alipay_callback_config_invalid", "error", err)
		c.String(200, alipayCallbackFail)
		return
	}

	notification, err := alipay.ParseNotification(cfg, form)
	if err != nil {
		log.Warnw("alipay_callback_verify_failed",
			"client_ip", c.ClientIP(),
			"out_trade_no", strings.TrimSpace(firstFormValue(form, "out_trade_no")),
			"error", err,
		)
		c.String(200, alipayCallbackFail)
		return
	}

	log.Infow("alipay_callback_received",
		"payment_no", notification.PaymentNo,
		"trade_no", notification.TradeNo,
		"trade_status", notification.TradeStatus,
		"client_ip", c.ClientIP(),
	)

	raw := make(models.JSON, len(notification.Raw))
	for key, value := range notification.Raw {
		raw[key] = value
	}

	payment, err := h.PaymentService.ApplyChannelNotification(service.ChannelNotificationInput{
		Channel:        constants.PaymentChannelAlipay,
		PaymentNo:      notification.PaymentNo,
		ChannelTradeNo: notification.TradeNo,
		Status:         notification.Status,
		Amount:         notification.Amount,
		PaidAt:         parseAlipayPaidAt(notification.Raw["gmt_payment"], notification.Raw["notify_time"]),
		Raw:            raw,
		ClientIP:       c.ClientIP(),
	})
	if err != nil {
		log.Warnw("alipay_callback_handle_failed",
			"payment_no", notification.PaymentNo,
			"trade_no", notification.TradeNo,
			"error", err,
		)
		if callbackShouldRetry(err) {
			c.String(200, alipayCallbackFail)
		} else {
			c.String(200, alipayCallbackSuccess)
		}
		return
	}

	log.Infow("alipay_callback_processed",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"status", payment.Status,
	)
	c.String(200, alipayCallbackSuccess)
}

func parseAlipayPaidAt(values ...string) *time.Time {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if parsed, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, value); err == nil {
			return &parsed
		}
	}
	return nil
}

func firstFormValue(form map[string][]string, key string) string {
	if values, ok := form[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
