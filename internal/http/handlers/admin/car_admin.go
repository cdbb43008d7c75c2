package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/haoche-next/internal/http/handlers/shared"
	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminListCars 管理端车源列表
func (h *Handler) AdminListCars(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.CarListFilter{
		Page:     page,
		PageSize: pageSize,
		OwnerID:  queryUint(c, "owner_id"),
		BrandID:  queryUint(c, "brand_id"),
		SeriesID: queryUint(c, "series_id"),
		CityCode: strings.TrimSpace(c.Query("city_code")),
		Status:   strings.TrimSpace(c.Query("status")),
	}
	cars, total, err := h.CatalogService.ListCarsForAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取车源列表失败", err)
		return
	}
	response.SuccessWithPage(c, cars, response.NewPagination(page, pageSize, total))
}

// AdminGetCar 管理端车源详情
func (h *Handler) AdminGetCar(c *gin.Context) {
	carID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	car, err := h.CatalogService.GetCar(carID)
	if err != nil {
		respondServiceError(c, err, "获取车源详情失败")
		return
	}
	response.Success(c, car)
}

// AuditCarRequest 车源审核请求
type AuditCarRequest struct {
	Decision string `json:"decision" binding:"required"` // approve / reject
	Reason   string `json:"reason"`
}

// AuditCar 审核待审车源
func (h *Handler) AuditCar(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	carID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req AuditCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	car, err := h.CatalogService.AuditCar(carID, req.Decision, req.Reason, adminID)
	if err != nil {
		respondServiceError(c, err, "车源审核失败")
		return
	}
	requestLog(c).Infow("admin_car_audited",
		"admin_id", adminID,
		"car_id", carID,
		"decision", req.Decision,
		"status", car.Status,
	)
	response.Success(c, car)
}

// AdminToggleCarRequest 管理端上下架请求
type AdminToggleCarRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// AdminToggleCar 管理端上下架车源
func (h *Handler) AdminToggleCar(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	carID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req AdminToggleCarRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Visible == nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	car, err := h.CatalogService.ToggleCar(carID, *req.Visible)
	if err != nil {
		respondServiceError(c, err, "上下架操作失败")
		return
	}
	requestLog(c).Infow("admin_car_toggled",
		"admin_id", adminID,
		"car_id", carID,
		"status", car.Status,
	)
	response.Success(c, car)
}

func queryUint(c *gin.Context, name string) uint {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Query(name)), 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}
