package service

import (
	"errors"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/models"

	"gorm.io/gorm"
)

// ChannelNotificationInput 渠道回调通知。
// 签名验证由渠道包完成，这里只处理已验签的业务内容。
type ChannelNotificationInput struct {
	Channel        string
	PaymentNo      string
	ChannelTradeNo string
	Status         string
	Amount         string
	PaidAt         *time.Time
	Raw            models.JSON
	ClientIP       string
}

// ApplyChannelNotification 落账渠道回调，幂等键为（支付单号, 渠道交易号）。
// 重复的成功通知只追加流水并返回成功；终态后出现不同交易号视为重放异常。
func (s *PaymentService) ApplyChannelNotification(input ChannelNotificationInput) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByPaymentNo(input.PaymentNo)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if input.Amount != "" && input.Amount != payment.Amount.StringFixed(2) {
		s.appendLogQuiet(&models.PaymentLog{
			PaymentID:      payment.ID,
			Action:         constants.PaymentLogActionNotify,
			Status:         payment.Status,
			NewStatus:      payment.Status,
			RequestPayload: input.Raw,
			ErrorText:      "渠道通知金额与支付单金额不一致",
			ClientIP:       input.ClientIP,
		})
		logger.Warnw("payment_notify_amount_mismatch",
			"payment_id", payment.ID,
			"payment_no", payment.PaymentNo,
			"channel", input.Channel,
			"notify_amount", input.Amount,
			"payment_amount", payment.Amount.StringFixed(2),
		)
		return nil, ErrChannelAmountMismatch
	}

	if input.Status != constants.PaymentStatusPaid {
		s.appendLogQuiet(&models.PaymentLog{
			PaymentID:      payment.ID,
			Action:         constants.PaymentLogActionNotify,
			Status:         payment.Status,
			NewStatus:      payment.Status,
			RequestPayload: input.Raw,
			ClientIP:       input.ClientIP,
		})
		return payment, nil
	}

	switch payment.Status {
	case constants.PaymentStatusPaid, constants.PaymentStatusRefunded:
		if payment.ChannelTradeNo == input.ChannelTradeNo {
			// 重复成功通知，幂等确认，不产生副作用
			s.appendLogQuiet(&models.PaymentLog{
				PaymentID:      payment.ID,
				Action:         constants.PaymentLogActionNotify,
				Status:         payment.Status,
				NewStatus:      payment.Status,
				RequestPayload: input.Raw,
				ClientIP:       input.ClientIP,
			})
			logger.Infow("payment_notify_duplicate",
				"payment_id", payment.ID,
				"payment_no", payment.PaymentNo,
				"channel_trade_no", input.ChannelTradeNo,
			)
			return payment, nil
		}
		return nil, s.recordReplayAnomaly(payment, input)
	case constants.PaymentStatusClosed:
		return nil, s.recordReplayAnomaly(payment, input)
	}

	paidAt := time.Now()
	if input.PaidAt != nil {
		paidAt = *input.PaidAt
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		ok, err := s.paymentRepo.WithTx(tx).UpdateStatusIf(payment.ID,
			[]string{constants.PaymentStatusPending},
			constants.PaymentStatusPaid,
			map[string]interface{}{
				"paid_at":          paidAt,
				"channel_trade_no": input.ChannelTradeNo,
			})
		if err != nil {
			return err
		}
		if !ok {
			return ErrPaymentStatusConflict
		}

		ok, err = s.orderRepo.WithTx(tx).UpdateStatusIf(payment.OrderID,
			[]string{constants.OrderStatusPending},
			constants.OrderStatusPaid,
			map[string]interface{}{"paid_at": paidAt})
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStatusConflict
		}

		return s.paymentLogRepo.WithTx(tx).Append(&models.PaymentLog{
			PaymentID:      payment.ID,
			Action:         constants.PaymentLogActionPaid,
			Status:         constants.PaymentStatusPending,
			NewStatus:      constants.PaymentStatusPaid,
			RequestPayload: input.Raw,
			ClientIP:       input.ClientIP,
		})
	})
	if errors.Is(err, ErrPaymentStatusConflict) {
		// 与过期扫描或并发通知竞争失败，重读现状再裁决
		current, readErr := s.paymentRepo.GetByPaymentNo(input.PaymentNo)
		if readErr != nil {
			return nil, readErr
		}
		if current != nil && current.Status == constants.PaymentStatusPaid && current.ChannelTradeNo == input.ChannelTradeNo {
			return current, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	logger.Infow("payment_paid",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"order_id", payment.OrderID,
		"channel", input.Channel,
		"channel_trade_no", input.ChannelTradeNo,
	)
	return s.paymentRepo.GetByPaymentNo(input.PaymentNo)
}

// recordReplayAnomaly 记录终态后出现的异常通知，流水永不丢弃
func (s *PaymentService) recordReplayAnomaly(payment *models.Payment, input ChannelNotificationInput) error {
	s.appendLogQuiet(&models.PaymentLog{
		PaymentID:      payment.ID,
		Action:         constants.PaymentLogActionReplay,
		Status:         payment.Status,
		NewStatus:      payment.Status,
		RequestPayload: input.Raw,
		ErrorText:      "支付单已处于终态，渠道交易号与原记录不一致",
		ClientIP:       input.ClientIP,
	})
	logger.Warnw("payment_notify_replay",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"payment_status", payment.Status,
		"channel", input.Channel,
		"channel_trade_no", input.ChannelTradeNo,
	)
	return ErrChannelReplay
}
