package queue

import (
	"encoding/json"

	"github.com/haoche-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentExpire 支付单过期关闭任务
	TaskPaymentExpire = constants.TaskPaymentExpire
	// TaskOrderTimeoutCancel 订单超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
)

// PaymentExpirePayload 支付过期任务载荷
type PaymentExpirePayload struct {
	PaymentID uint `json:"payment_id"`
}

// OrderTimeoutCancelPayload 订单超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// NewPaymentExpireTask 创建支付过期任务
func NewPaymentExpireTask(payload PaymentExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentExpire, body), nil
}

// NewOrderTimeoutCancelTask 创建订单超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}
