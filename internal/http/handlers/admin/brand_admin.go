package admin

import (
	"errors"
	"strings"

	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// BrandRequest 品牌创建/更新请求
type BrandRequest struct {
	Name      string `json:"name" binding:"required"`
	Logo      string `json:"logo"`
	SortOrder int    `json:"sort_order"`
}

// AdminListBrands 管理端品牌列表
func (h *Handler) AdminListBrands(c *gin.Context) {
	brands, err := h.BrandRepo.ListBrands()
	if err != nil {
		respondError(c, response.CodeInternal, "获取品牌列表失败", err)
		return
	}
	response.Success(c, brands)
}

// CreateBrand 创建品牌
func (h *Handler) CreateBrand(c *gin.Context) {
	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}
	brand := &models.Brand{
		Name:      strings.TrimSpace(req.Name),
		Logo:      strings.TrimSpace(req.Logo),
		SortOrder: req.SortOrder,
	}
	if err := h.BrandRepo.CreateBrand(brand); err != nil {
		respondError(c, response.CodeInternal, "创建品牌失败", err)
		return
	}
	response.Success(c, brand)
}

// UpdateBrand 更新品牌
func (h *Handler) UpdateBrand(c *gin.Context) {
	brandID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}
	brand, err := h.BrandRepo.GetBrandByID(brandID)
	if err != nil {
		respondError(c, response.CodeInternal, "更新品牌失败", err)
		return
	}
	if brand == nil {
		response.NotFound(c, "品牌不存在")
		return
	}
	brand.Name = strings.TrimSpace(req.Name)
	brand.Logo = strings.TrimSpace(req.Logo)
	brand.SortOrder = req.SortOrder
	if err := h.BrandRepo.UpdateBrand(brand); err != nil {
		respondError(c, response.CodeInternal, "更新品牌失败", err)
		return
	}
	response.Success(c, brand)
}

// DeleteBrand 删除品牌（被车源引用时拒绝）
func (h *Handler) DeleteBrand(c *gin.Context) {
	brandID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.BrandRepo.DeleteBrand(brandID); err != nil {
		if errors.Is(err, repository.ErrBrandReferenced) {
			response.Conflict(c, "品牌已被车源引用，无法删除")
			return
		}
		respondError(c, response.CodeInternal, "删除品牌失败", err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// SeriesRequest 车系创建请求
type SeriesRequest struct {
	Name string `json:"name" binding:"required"`
}

// AdminListBrandSeries 管理端车系列表
func (h *Handler) AdminListBrandSeries(c *gin.Context) {
	brandID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	series, err := h.BrandRepo.ListSeriesByBrand(brandID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取车系列表失败", err)
		return
	}
	response.Success(c, series)
}

// CreateSeries 在品牌下创建车系
func (h *Handler) CreateSeries(c *gin.Context) {
	brandID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req SeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}
	brand, err := h.BrandRepo.GetBrandByID(brandID)
	if err != nil {
		respondError(c, response.CodeInternal, "创建车系失败", err)
		return
	}
	if brand == nil {
		response.NotFound(c, "品牌不存在")
		return
	}
	series := &models.Series{
		BrandID: brandID,
		Name:    strings.TrimSpace(req.Name),
	}
	if err := h.BrandRepo.CreateSeries(series); err != nil {
		respondError(c, response.CodeInternal, "创建车系失败", err)
		return
	}
	response.Success(c, series)
}

// DeleteSeries 删除车系（被车源引用时拒绝）
func (h *Handler) DeleteSeries(c *gin.Context) {
	seriesID, ok := parseUintParam(c, "series_id")
	if !ok {
		return
	}
	if err := h.BrandRepo.DeleteSeries(seriesID); err != nil {
		if errors.Is(err, repository.ErrBrandReferenced) {
			response.Conflict(c, "车系已被车源引用，无法删除")
			return
		}
		respondError(c, response.CodeInternal, "删除车系失败", err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
