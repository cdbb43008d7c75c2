package models

import "time"

// PaymentLog 支付流水日志表
// 只追加不修改：记录每一次被接受或被拒绝的支付状态变更，用于争议回溯。
type PaymentLog struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	PaymentID       uint      `gorm:"index;not null" json:"payment_id"`               // 支付记录ID
	Action          string    `gorm:"type:varchar(50);index;not null" json:"action"`  // 动作（create/notify/paid/expire/refund/replay）
	Status          string    `gorm:"type:varchar(20);not null" json:"status"`        // 变更前状态
	NewStatus       string    `gorm:"type:varchar(20);not null" json:"new_status"`    // 变更后状态
	RequestPayload  JSON      `gorm:"type:json" json:"request_payload,omitempty"`     // 渠道入站报文
	ResponsePayload JSON      `gorm:"type:json" json:"response_payload,omitempty"`    // 应答报文
	ErrorText       string    `gorm:"type:varchar(500)" json:"error_text,omitempty"`  // 异常描述
	OperatorID      uint      `gorm:"index" json:"operator_id"`                       // 操作人（0 表示渠道或系统）
	ClientIP        string    `gorm:"type:varchar(64)" json:"client_ip,omitempty"`    // 来源IP
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (PaymentLog) TableName() string {
	return "payment_logs"
}
