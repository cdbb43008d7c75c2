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

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		BuyerID:  queryUint(c, "buyer_id"),
		SellerID: queryUint(c, "seller_id"),
		CarID:    queryUint(c, "car_id"),
		Status:   strings.TrimSpace(c.Query("status")),
		OrderNo:  strings.TrimSpace(c.Query("order_no")),
	}
	orders, total, err := h.OrderService.ListOrdersForAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取订单列表失败", err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// AdminGetOrder 管理端订单详情
func (h *Handler) AdminGetOrder(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrderForAdmin(orderID)
	if err != nil {
		respondServiceError(c, err, "获取订单详情失败")
		return
	}
	response.Success(c, order)
}

// CompleteOrder 线下交割完成后关闭订单并将车源置为已售
func (h *Handler) CompleteOrder(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.CompleteOrder(orderID)
	if err != nil {
		respondServiceError(c, err, "完成订单失败")
		return
	}
	requestLog(c).Infow("admin_order_completed",
		"admin_id", adminID,
		"order_id", orderID,
		"order_no", order.OrderNo,
	)
	response.Success(c, order)
}

// RefundOrder 按订单发起退款，内部定位该订单已支付的支付单
func (h *Handler) RefundOrder(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
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

	payment, err := h.PaymentService.RefundOrder(orderID, service.RefundInput{
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
	requestLog(c).Infow("admin_order_refunded",
		"admin_id", adminID,
		"order_id", orderID,
		"payment_no", payment.PaymentNo,
		"refund_amount", payment.RefundAmount,
	)
	response.Success(c, payment)
}
