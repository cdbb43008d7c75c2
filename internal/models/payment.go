package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录表
type Payment struct {
	ID             uint           `gorm:"primarykey" json:"id"`                             // 主键
	PaymentNo      string         `gorm:"uniqueIndex;not null" json:"payment_no"`           // 支付单号（对外）
	OrderID        uint           `gorm:"index;not null" json:"order_id"`                   // 订单ID
	UserID         uint           `gorm:"index;not null" json:"user_id"`                    // 付款用户ID
	Channel        string         `gorm:"index;not null" json:"channel"`                    // 支付渠道（wechat/alipay）
	Amount         Money          `gorm:"type:decimal(20,2);not null" json:"amount"`        // 支付金额
	Status         string         `gorm:"index;not null" json:"status"`                     // 支付状态
	ChannelTradeNo string         `gorm:"index" json:"channel_trade_no"`                    // 渠道交易流水号
	ExpireTime     *time.Time     `gorm:"index" json:"expire_time"`                         // 支付有效期
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`                             // 支付时间
	ClosedAt       *time.Time     `gorm:"index" json:"closed_at"`                           // 关闭时间
	RefundedAt     *time.Time     `gorm:"index" json:"refunded_at"`                         // 退款时间
	RefundAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"refund_amount"` // 退款金额
	RefundReason   string         `gorm:"type:varchar(500)" json:"refund_reason,omitempty"` // 退款原因
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
