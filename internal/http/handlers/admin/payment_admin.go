package admin

import (
	"strings"

	handlershared "github.com/haoche-next/internal/http/handlers/shared"
	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/repository"
	"github.com/haoche-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminListPayments 管理端支付单列表
func (h *Handler) AdminListPayments(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.PaymentListFilter{
		Page:      page,
		PageSize:  pageSize,
		UserID:    queryUint(c, "user_id"),
		OrderID:   queryUint(c, "order_id"),
		Channel:   strings.TrimSpace(c.Query("channel")),
		Status:    strings.TrimSpace(c.Query("status")),
		PaymentNo: strings.TrimSpace(c.Query("payment_no")),
	}
	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取支付列表失败", err)
		return
	}
	response.SuccessWithPage(c, payments, response.NewPagination(page, pageSize, total))
}

// AdminGetPayment 管理端支付单详情
func (h *Handler) AdminGetPayment(c *gin.Context) {
	paymentID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.PaymentService.GetPayment(paymentID)
	if err != nil {
		respondServiceError(c, err, "获取支付单失败")
		return
	}
	response.Success(c, payment)
}

// GetPaymentLogs 管理端支付流水
func (h *Handler) GetPaymentLogs(c *gin.Context) {
	paymentID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	logs, err := h.PaymentService.ListPaymentLogs(paymentID)
	if err != nil {
		respondServiceError(c, err, "获取支付流水失败")
		return
	}
	response.Success(c, logs)
}

// RefundPaymentRequest 退款请求
type RefundPaymentRequest struct {
	Amount string `json:"amount"` // 为空表示全额退款
	Reason string `json:"reason" binding:"required"`
}

// RefundPayment 对已支付的支付单发起退款
func (h *Handler) RefundPayment(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	paymentID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	var amount *decimal.Decimal
	if raw := strings.TrimSpace(req.Amount); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			respondServiceError(c, service.ErrRefundAmountInvalid, "退款失败")
			return
		}
		amount = &parsed
	}

	payment, err := h.PaymentService.Refund(service.RefundInput{
		PaymentID:  paymentID,
		Amount:     amount,
		Reason:     req.Reason,
		OperatorID: adminID,
		ClientIP:   c.ClientIP(),
		Context:    c.Request.Context(),
	})
	if err != nil {
		respondServiceError(c, err, "退款失败")
		return
	}
	requestLog(c).Infow("admin_payment_refunded",
		"admin_id", adminID,
		"payment_id", paymentID,
		"payment_no", payment.PaymentNo,
		"refund_amount", payment.RefundAmount,
	)
	response.Success(c, payment)
}
