package public

import (
	"errors"
	"strings"

	handlershared "github.com/haoche-next/internal/http/handlers/shared"
	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/repository"
	"github.com/haoche-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CarDraftRequest 创建/更新车源草稿请求
type CarDraftRequest struct {
	Title    string `json:"title" binding:"required"`
	Price    string `json:"price" binding:"required"`
	Mileage  int64  `json:"mileage"`
	BrandID  uint   `json:"brand_id" binding:"required"`
	SeriesID uint   `json:"series_id" binding:"required"`
	CityCode string `json:"city_code" binding:"required"`
}

func (r CarDraftRequest) toInput() (service.CarDraftInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return service.CarDraftInput{}, service.ErrCarFieldInvalid
	}
	return service.CarDraftInput{
		Title:    r.Title,
		Price:    price,
		Mileage:  r.Mileage,
		BrandID:  r.BrandID,
		SeriesID: r.SeriesID,
		CityCode: r.CityCode,
	}, nil
}

// CreateMyCar 卖家创建车源草稿
func (h *Handler) CreateMyCar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CarDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondServiceError(c, err, "创建车源失败")
		return
	}
	car, err := h.CatalogService.CreateDraft(userID, input)
	if err != nil {
		respondServiceError(c, err, "创建车源失败")
		return
	}
	response.Success(c, car)
}

// UpdateMyCar 卖家更新车源草稿
func (h *Handler) UpdateMyCar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	carID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req CarDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondServiceError(c, err, "更新车源失败")
		return
	}
	car, err := h.CatalogService.UpdateDraft(carID, userID, input)
	if err != nil {
		respondServiceError(c, err, "更新车源失败")
		return
	}
	response.Success(c, car)
}

// SubmitMyCar 卖家提交车源审核
func (h *Handler) SubmitMyCar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	carID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	car, err := h.CatalogService.SubmitCar(carID, userID)
	if err != nil {
		respondServiceError(c, err, "提交审核失败")
		return
	}
	response.Success(c, car)
}

// ToggleMyCarRequest 卖家上下架请求
type ToggleMyCarRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// ToggleMyCar 卖家上下架自己的车源
func (h *Handler) ToggleMyCar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	carID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req ToggleMyCarRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Visible == nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}
	if ok := h.ensureCarOwner(c, carID, userID); !ok {
		return
	}
	car, err := h.CatalogService.ToggleCar(carID, *req.Visible)
	if err != nil {
		respondServiceError(c, err, "上下架操作失败")
		return
	}
	response.Success(c, car)
}

// ListMyCars 卖家查看自己的车源列表
func (h *Handler) ListMyCars(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.CarListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	cars, total, err := h.CatalogService.ListCarsByOwner(userID, filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取车源列表失败", err)
		return
	}
	response.SuccessWithPage(c, cars, response.NewPagination(page, pageSize, total))
}

// GetMyCar 卖家查看自己的车源详情
func (h *Handler) GetMyCar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	carID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	car, err := h.CatalogService.GetCar(carID)
	if err != nil {
		respondServiceError(c, err, "获取车源详情失败")
		return
	}
	if car.OwnerID != userID {
		response.NotFound(c, "车源不存在")
		return
	}
	response.Success(c, car)
}

func (h *Handler) ensureCarOwner(c *gin.Context, carID, userID uint) bool {
	car, err := h.CatalogService.GetCar(carID)
	if err != nil {
		if errors.Is(err, service.ErrCarNotFound) {
			response.NotFound(c, "车源不存在")
			return false
		}
		respondServiceError(c, err, "获取车源失败")
		return false
	}
	if car.OwnerID != userID {
		response.Forbidden(c, "无权操作该车源")
		return false
	}
	return true
}
