package service

import "errors"

// ErrorKind 服务错误类别，供 handler 映射响应码使用
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindConflict
	KindInvalidArgument
	KindInvalidSignatureOrReplay
	KindUnauthorized
)

// 车源相关错误
var (
	ErrCarNotFound       = errors.New("车源不存在")
	ErrCarStatusInvalid  = errors.New("车源当前状态不允许该操作")
	ErrCarStatusConflict = errors.New("车源状态已被并发修改")
	ErrCarFieldInvalid   = errors.New("车源字段不合法")
	ErrCarNotOwned       = errors.New("无权操作该车源")
	ErrBrandNotFound     = errors.New("品牌或车系不存在")
)

// 订单相关错误
var (
	ErrOrderNotFound       = errors.New("订单不存在")
	ErrOrderStatusInvalid  = errors.New("订单当前状态不允许该操作")
	ErrOrderConflict       = errors.New("该车源已有进行中的订单")
	ErrOrderStatusConflict = errors.New("订单状态已被并发修改")
	ErrOrderSelfBuy        = errors.New("不能购买自己发布的车源")
	ErrCarNotOrderable     = errors.New("车源当前不可下单")
)

// 支付相关错误
var (
	ErrPaymentNotFound         = errors.New("支付单不存在")
	ErrPaymentStatusInvalid    = errors.New("支付单当前状态不允许该操作")
	ErrPaymentConflict         = errors.New("该订单已有进行中的支付单")
	ErrPaymentStatusConflict   = errors.New("支付单状态已被并发修改")
	ErrPaymentChannelInvalid   = errors.New("不支持的支付渠道")
	ErrRefundAmountInvalid     = errors.New("退款金额不合法")
	ErrChannelReplay           = errors.New("渠道回调重放异常")
	ErrChannelSignatureInvalid = errors.New("渠道回调验签失败")
	ErrChannelAmountMismatch   = errors.New("渠道回调金额与支付单不一致")
)

// 审核相关错误
var (
	ErrAuditReasonRequired  = errors.New("驳回时必须填写原因")
	ErrAuditDecisionInvalid = errors.New("审核决定不合法")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrUserStatusInvalid    = errors.New("用户当前状态不允许该操作")
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserDisabled       = errors.New("账号已被禁用")
	ErrPhoneTaken         = errors.New("手机号已注册")
)

// 仪表盘相关错误
var ErrDashboardRangeInvalid = errors.New("统计时间范围不合法")

// errorKinds 哨兵错误到类别的映射
var errorKinds = map[error]ErrorKind{
	ErrCarNotFound:     KindNotFound,
	ErrOrderNotFound:   KindNotFound,
	ErrPaymentNotFound: KindNotFound,
	ErrUserNotFound:    KindNotFound,
	ErrBrandNotFound:   KindNotFound,

	ErrCarStatusInvalid:     KindInvalidState,
	ErrOrderStatusInvalid:   KindInvalidState,
	ErrPaymentStatusInvalid: KindInvalidState,
	ErrUserStatusInvalid:    KindInvalidState,
	ErrCarNotOrderable:      KindInvalidState,

	ErrCarStatusConflict:     KindConflict,
	ErrOrderConflict:         KindConflict,
	ErrOrderStatusConflict:   KindConflict,
	ErrPaymentConflict:       KindConflict,
	ErrPaymentStatusConflict: KindConflict,

	ErrCarFieldInvalid:       KindInvalidArgument,
	ErrCarNotOwned:           KindInvalidArgument,
	ErrOrderSelfBuy:          KindInvalidArgument,
	ErrPaymentChannelInvalid: KindInvalidArgument,
	ErrRefundAmountInvalid:   KindInvalidArgument,
	ErrAuditReasonRequired:   KindInvalidArgument,
	ErrAuditDecisionInvalid:  KindInvalidArgument,
	ErrPhoneTaken:            KindInvalidArgument,
	ErrDashboardRangeInvalid: KindInvalidArgument,

	ErrChannelReplay:           KindInvalidSignatureOrReplay,
	ErrChannelSignatureInvalid: KindInvalidSignatureOrReplay,
	ErrChannelAmountMismatch:   KindInvalidSignatureOrReplay,

	ErrInvalidCredentials: KindUnauthorized,
	ErrUserDisabled:       KindUnauthorized,
}

// KindOf 返回错误类别，未知错误返回 KindUnknown
func KindOf(err error) ErrorKind {
	for sentinel, kind := range errorKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}
