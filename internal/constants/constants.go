package constants

// 车源状态常量
const (
	CarStatusDraft    = "draft"
	CarStatusPending  = "pending"
	CarStatusApproved = "approved"
	CarStatusOn       = "on"
	CarStatusOff      = "off"
	CarStatusSold     = "sold"
	CarStatusRejected = "rejected"
)

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusClosed    = "closed"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// 支付状态常量
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusClosed   = "closed"
	PaymentStatusRefunded = "refunded"
)

// 支付渠道常量
const (
	PaymentChannelWechat = "wechat"
	PaymentChannelAlipay = "alipay"
)

// 支付流水日志动作常量
const (
	PaymentLogActionCreate = "create"
	PaymentLogActionNotify = "notify"
	PaymentLogActionPaid   = "paid"
	PaymentLogActionExpire = "expire"
	PaymentLogActionRefund = "refund"
	PaymentLogActionReplay = "replay"
)

// 用户实名认证状态常量
const (
	UserVerifyStatusUnverified = "unverified"
	UserVerifyStatusPending    = "pending"
	UserVerifyStatusVerified   = "verified"
	UserVerifyStatusRejected   = "rejected"
)

// 用户账号状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 审核决定常量
const (
	AuditDecisionApprove = "approve"
	AuditDecisionReject  = "reject"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskPaymentExpire      = "payment:expire"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)
