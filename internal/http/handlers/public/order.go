package public

import (
	"strings"

	handlershared "github.com/haoche-next/internal/http/handlers/shared"
	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/repository"
	"github.com/haoche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 创建定金订单请求
type CreateOrderRequest struct {
	CarID uint `json:"car_id" binding:"required"`
}

// CreateOrder 买家创建定金订单
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		CarID:    req.CarID,
		BuyerID:  userID,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		respondServiceError(c, err, "创建订单失败")
		return
	}
	response.Success(c, order)
}

// CancelOrder 买家取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.CancelOrder(orderID, userID)
	if err != nil {
		respondServiceError(c, err, "取消订单失败")
		return
	}
	response.Success(c, order)
}

// ListMyOrders 买家查看自己的订单列表
func (h *Handler) ListMyOrders(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		BuyerID:  userID,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	orders, total, err := h.OrderService.ListOrdersByBuyer(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取订单列表失败", err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetMyOrder 买家查看订单详情
func (h *Handler) GetMyOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrderByBuyer(orderID, userID)
	if err != nil {
		respondServiceError(c, err, "获取订单详情失败")
		return
	}
	response.Success(c, order)
}
