package public

import (
	"strconv"
	"strings"

	"github.com/haoche-next/internal/constants"
	handlershared "github.com/haoche-next/internal/http/handlers/shared"
	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListBrands 获取品牌列表
func (h *Handler) ListBrands(c *gin.Context) {
	brands, err := h.BrandRepo.ListBrands()
	if err != nil {
		respondError(c, response.CodeInternal, "获取品牌列表失败", err)
		return
	}
	response.Success(c, brands)
}

// ListBrandSeries 获取品牌下的车系列表
func (h *Handler) ListBrandSeries(c *gin.Context) {
	brandID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	brand, err := h.BrandRepo.GetBrandByID(brandID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取车系列表失败", err)
		return
	}
	if brand == nil {
		response.NotFound(c, "品牌不存在")
		return
	}
	series, err := h.BrandRepo.ListSeriesByBrand(brandID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取车系列表失败", err)
		return
	}
	response.Success(c, series)
}

// ListCars 获取在售车源列表
func (h *Handler) ListCars(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.CarListFilter{
		Page:       page,
		PageSize:   pageSize,
		BrandID:    queryUint(c, "brand_id"),
		SeriesID:   queryUint(c, "series_id"),
		CityCode:   strings.TrimSpace(c.Query("city_code")),
		PriceMin:   queryFloat(c, "price_min"),
		PriceMax:   queryFloat(c, "price_max"),
		OnlyOnSale: true,
	}

	cars, total, err := h.CatalogService.ListPublicCars(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取车源列表失败", err)
		return
	}
	response.SuccessWithPage(c, cars, response.NewPagination(page, pageSize, total))
}

// GetCar 获取车源详情
// 对外仅暴露已上架或已售出的车源。
func (h *Handler) GetCar(c *gin.Context) {
	carID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	car, err := h.CatalogService.GetCar(carID)
	if err != nil {
		respondServiceError(c, err, "获取车源详情失败")
		return
	}
	if car.Status != constants.CarStatusOn && car.Status != constants.CarStatusSold {
		response.NotFound(c, "车源不存在")
		return
	}
	response.Success(c, car)
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		response.BadRequest(c, "路径参数不合法")
		return 0, false
	}
	return uint(parsed), true
}

func queryUint(c *gin.Context, name string) uint {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Query(name)), 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func queryFloat(c *gin.Context, name string) *float64 {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return nil
	}
	return &parsed
}
