package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 定金订单表
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                              // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"`              // 订单编号（对外）
	CarID         uint           `gorm:"index;not null" json:"car_id"`                      // 车源ID
	BuyerID       uint           `gorm:"index;not null" json:"buyer_id"`                    // 买家用户ID
	SellerID      uint           `gorm:"index;not null" json:"seller_id"`                   // 卖家用户ID
	DepositAmount Money          `gorm:"type:decimal(20,2);not null" json:"deposit_amount"` // 定金金额
	Status        string         `gorm:"index;not null" json:"status"`                      // 订单状态
	ClientIP      string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`       // 下单客户端IP
	ExpiresAt     *time.Time     `gorm:"index" json:"expires_at"`                           // 未支付超时时间
	PaidAt        *time.Time     `gorm:"index" json:"paid_at"`                              // 支付时间
	ClosedAt      *time.Time     `gorm:"index" json:"closed_at"`                            // 完成时间
	CanceledAt    *time.Time     `gorm:"index" json:"canceled_at"`                          // 取消时间
	RefundedAt    *time.Time     `gorm:"index" json:"refunded_at"`                          // 退款时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Car      *Car      `gorm:"foreignKey:CarID" json:"car,omitempty"`
	Payments []Payment `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
