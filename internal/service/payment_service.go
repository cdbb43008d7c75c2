package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/queue"
	"github.com/haoche-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ChannelCreateResult 渠道下单返回
type ChannelCreateResult struct {
	QRCode string
	Raw    map[string]interface{}
}

// ChannelGateway 支付渠道网关。按渠道下单与退款，测试可替换。
type ChannelGateway interface {
	CreateChannelPayment(ctx context.Context, channel string, payment *models.Payment, clientIP string) (*ChannelCreateResult, error)
	RefundChannelPayment(ctx context.Context, channel string, payment *models.Payment, refundNo, amount, reason string) error
}

// PaymentService 支付服务，承载支付状态机与渠道对账
type PaymentService struct {
	paymentRepo    repository.PaymentRepository
	paymentLogRepo repository.PaymentLogRepository
	orderRepo      repository.OrderRepository
	queueClient    *queue.Client
	gateway        ChannelGateway
	expireMinutes  int
}

// NewPaymentService 创建支付服务
func NewPaymentService(paymentRepo repository.PaymentRepository, paymentLogRepo repository.PaymentLogRepository, orderRepo repository.OrderRepository, queueClient *queue.Client, gateway ChannelGateway, expireMinutes int) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		paymentLogRepo: paymentLogRepo,
		orderRepo:      orderRepo,
		queueClient:    queueClient,
		gateway:        gateway,
		expireMinutes:  expireMinutes,
	}
}

// CreatePaymentInput 创建支付单输入
type CreatePaymentInput struct {
	OrderID  uint
	UserID   uint
	Channel  string
	ClientIP string
	Context  context.Context
}

// CreatePaymentResult 创建支付单结果
type CreatePaymentResult struct {
	Payment *models.Payment
	QRCode  string
}

// CreatePayment 对待支付订单创建定金支付单。
// 同一订单同一时刻至多一条非关闭支付单，金额取订单定金。
func (s *PaymentService) CreatePayment(input CreatePaymentInput) (*CreatePaymentResult, error) {
	if input.Channel != constants.PaymentChannelWechat && input.Channel != constants.PaymentChannelAlipay {
		return nil, ErrPaymentChannelInvalid
	}

	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.BuyerID != input.UserID {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrOrderStatusInvalid
	}

	if active, err := s.paymentRepo.GetActiveByOrderID(order.ID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, ErrPaymentConflict
	}

	expireTime := time.Now().Add(time.Duration(s.resolveExpireMinutes()) * time.Minute)
	if order.ExpiresAt != nil && order.ExpiresAt.Before(expireTime) {
		expireTime = *order.ExpiresAt
	}
	payment := &models.Payment{
		PaymentNo:  generatePaymentNo(),
		OrderID:    order.ID,
		UserID:     input.UserID,
		Channel:    input.Channel,
		Amount:     order.DepositAmount,
		Status:     constants.PaymentStatusPending,
		ExpireTime: &expireTime,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		if active, err := paymentRepo.GetActiveByOrderID(order.ID); err != nil {
			return err
		} else if active != nil {
			return ErrPaymentConflict
		}
		if err := paymentRepo.Create(payment); err != nil {
			// 并发窗口内另一事务先插入活跃支付单，唯一索引兜底
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrPaymentConflict
			}
			return err
		}
		return s.paymentLogRepo.WithTx(tx).Append(&models.PaymentLog{
			PaymentID: payment.ID,
			Action:    constants.PaymentLogActionCreate,
			Status:    "",
			NewStatus: constants.PaymentStatusPending,
			RequestPayload: models.JSON{
				"order_no": order.OrderNo,
				"channel":  input.Channel,
				"amount":   payment.Amount.String(),
			},
			ClientIP: input.ClientIP,
		})
	})
	if err != nil {
		return nil, err
	}

	result := &CreatePaymentResult{Payment: payment}
	if s.gateway != nil {
		channelResult, err := s.gateway.CreateChannelPayment(s.resolveContext(input.Context), input.Channel, payment, input.ClientIP)
		if err != nil {
			s.appendLogQuiet(&models.PaymentLog{
				PaymentID: payment.ID,
				Action:    constants.PaymentLogActionCreate,
				Status:    constants.PaymentStatusPending,
				NewStatus: constants.PaymentStatusPending,
				ErrorText: err.Error(),
				ClientIP:  input.ClientIP,
			})
			return nil, err
		}
		result.QRCode = channelResult.QRCode
	}

	if s.queueClient != nil {
		if err := s.queueClient.EnqueuePaymentExpire(payment.ID, expireTime); err != nil {
			logger.Warnw("payment_enqueue_expire_failed",
				"payment_id", payment.ID,
				"error", err,
			)
		}
	}

	logger.Infow("payment_created",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"order_id", order.ID,
		"channel", input.Channel,
		"amount", payment.Amount.String(),
	)
	return result, nil
}

// ExpirePayment 过期关闭待支付的支付单。
// 条件写输给并发支付成功回调时返回 ErrPaymentStatusConflict，调用方忽略即可。
func (s *PaymentService) ExpirePayment(paymentID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.PaymentStatusPending {
		return payment, nil
	}
	if payment.ExpireTime == nil || payment.ExpireTime.After(time.Now()) {
		return payment, nil
	}

	now := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		ok, err := s.paymentRepo.WithTx(tx).UpdateStatusIf(payment.ID,
			[]string{constants.PaymentStatusPending},
			constants.PaymentStatusClosed,
			map[string]interface{}{"closed_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return ErrPaymentStatusConflict
		}
		return s.paymentLogRepo.WithTx(tx).Append(&models.PaymentLog{
			PaymentID: payment.ID,
			Action:    constants.PaymentLogActionExpire,
			Status:    constants.PaymentStatusPending,
			NewStatus: constants.PaymentStatusClosed,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("payment_expired",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
	)
	return s.paymentRepo.GetByID(payment.ID)
}

// RefundInput 退款输入
type RefundInput struct {
	PaymentID  uint
	Amount     *decimal.Decimal
	Reason     string
	OperatorID uint
	ClientIP   string
	Context    context.Context
}

// Refund 对已支付的支付单退款，订单在同一事务内转入 refunded
func (s *PaymentService) Refund(input RefundInput) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.PaymentStatusPaid {
		return nil, ErrPaymentStatusInvalid
	}

	refundAmount := payment.Amount.Decimal
	if input.Amount != nil {
		refundAmount = input.Amount.Round(2)
	}
	if refundAmount.LessThanOrEqual(decimal.Zero) || refundAmount.GreaterThan(payment.Amount.Decimal) {
		return nil, ErrRefundAmountInvalid
	}

	refundNo := generateRefundNo()
	if s.gateway != nil {
		if err := s.gateway.RefundChannelPayment(s.resolveContext(input.Context), payment.Channel, payment, refundNo, refundAmount.StringFixed(2), input.Reason); err != nil {
			s.appendLogQuiet(&models.PaymentLog{
				PaymentID:  payment.ID,
				Action:     constants.PaymentLogActionRefund,
				Status:     constants.PaymentStatusPaid,
				NewStatus:  constants.PaymentStatusPaid,
				ErrorText:  err.Error(),
				OperatorID: input.OperatorID,
				ClientIP:   input.ClientIP,
			})
			return nil, err
		}
	}

	now := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		ok, err := s.paymentRepo.WithTx(tx).UpdateStatusIf(payment.ID,
			[]string{constants.PaymentStatusPaid},
			constants.PaymentStatusRefunded,
			map[string]interface{}{
				"refunded_at":   now,
				"refund_amount": refundAmount,
				"refund_reason": input.Reason,
			})
		if err != nil {
			return err
		}
		if !ok {
			return ErrPaymentStatusConflict
		}

		ok, err = s.orderRepo.WithTx(tx).UpdateStatusIf(payment.OrderID,
			[]string{constants.OrderStatusPaid},
			constants.OrderStatusRefunded,
			map[string]interface{}{"refunded_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStatusConflict
		}

		return s.paymentLogRepo.WithTx(tx).Append(&models.PaymentLog{
			PaymentID: payment.ID,
			Action:    constants.PaymentLogActionRefund,
			Status:    constants.PaymentStatusPaid,
			NewStatus: constants.PaymentStatusRefunded,
			RequestPayload: models.JSON{
				"refund_no":     refundNo,
				"refund_amount": refundAmount.StringFixed(2),
				"reason":        input.Reason,
			},
			OperatorID: input.OperatorID,
			ClientIP:   input.ClientIP,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("payment_refunded",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"refund_amount", refundAmount.StringFixed(2),
		"operator_id", input.OperatorID,
	)
	return s.paymentRepo.GetByID(payment.ID)
}

// RefundOrder 按订单退款：定位订单当前已支付的支付单后走支付退款流程
func (s *PaymentService) RefundOrder(orderID uint, input RefundInput) (*models.Payment, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPaid {
		return nil, ErrOrderStatusInvalid
	}

	payment, err := s.paymentRepo.GetActiveByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.Status != constants.PaymentStatusPaid {
		return nil, ErrPaymentNotFound
	}

	input.PaymentID = payment.ID
	return s.Refund(input)
}

// GetPaymentByUser 用户查询自己的支付单
func (s *PaymentService) GetPaymentByUser(paymentID, userID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// GetPayment 管理端支付单详情
func (s *PaymentService) GetPayment(paymentID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments 管理端支付单列表
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.ListAdmin(filter)
}

// ListPaymentLogs 按支付单查询流水
func (s *PaymentService) ListPaymentLogs(paymentID uint) ([]models.PaymentLog, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return s.paymentLogRepo.ListByPaymentID(paymentID)
}

// appendLogQuiet 追加流水，失败只记日志不影响主流程
func (s *PaymentService) appendLogQuiet(log *models.PaymentLog) {
	if err := s.paymentLogRepo.Append(log); err != nil {
		logger.Warnw("payment_log_append_failed",
			"payment_id", log.PaymentID,
			"action", log.Action,
			"error", err,
		)
	}
}

func (s *PaymentService) resolveExpireMinutes() int {
	if s.expireMinutes <= 0 {
		return 15
	}
	return s.expireMinutes
}

func (s *PaymentService) resolveContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func generateRefundNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("HCR%s%s", now, randNumeric(6))
}
