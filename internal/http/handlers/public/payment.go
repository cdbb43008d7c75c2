package public

import (
	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest 创建支付单请求
type CreatePaymentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Channel string `json:"channel" binding:"required"`
}

// CreatePayment 买家对待支付订单发起定金支付
func (h *Handler) CreatePayment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	result, err := h.PaymentService.CreatePayment(service.CreatePaymentInput{
		OrderID:  req.OrderID,
		UserID:   userID,
		Channel:  req.Channel,
		ClientIP: c.ClientIP(),
		Context:  c.Request.Context(),
	})
	if err != nil {
		respondServiceError(c, err, "创建支付单失败")
		return
	}
	response.Success(c, gin.H{
		"payment": result.Payment,
		"qr_code": result.QRCode,
	})
}

// GetMyPayment 买家查看支付单详情
func (h *Handler) GetMyPayment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	paymentID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.PaymentService.GetPaymentByUser(paymentID, userID)
	if err != nil {
		respondServiceError(c, err, "获取支付单失败")
		return
	}
	response.Success(c, payment)
}
