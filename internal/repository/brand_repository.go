package repository

import (
	"errors"

	"github.com/haoche-next/internal/models"

	"gorm.io/gorm"
)

// ErrBrandReferenced 品牌/车系已被车源引用，禁止删除
var ErrBrandReferenced = errors.New("brand or series referenced by cars")

// BrandRepository 品牌/车系数据访问接口
type BrandRepository interface {
	CreateBrand(brand *models.Brand) error
	UpdateBrand(brand *models.Brand) error
	DeleteBrand(id uint) error
	GetBrandByID(id uint) (*models.Brand, error)
	ListBrands() ([]models.Brand, error)
	CreateSeries(series *models.Series) error
	DeleteSeries(id uint) error
	GetSeriesByID(id uint) (*models.Series, error)
	ListSeriesByBrand(brandID uint) ([]models.Series, error)
	WithTx(tx *gorm.DB) *GormBrandRepository
}

// GormBrandRepository GORM 实现
type GormBrandRepository struct {
	db *gorm.DB
}

// NewBrandRepository 创建品牌仓库
func NewBrandRepository(db *gorm.DB) *GormBrandRepository {
	return &GormBrandRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBrandRepository) WithTx(tx *gorm.DB) *GormBrandRepository {
	if tx == nil {
		return r
	}
	return &GormBrandRepository{db: tx}
}

// CreateBrand 创建品牌
func (r *GormBrandRepository) CreateBrand(brand *models.Brand) error {
	return r.db.Create(brand).Error
}

// UpdateBrand 更新品牌
func (r *GormBrandRepository) UpdateBrand(brand *models.Brand) error {
	return r.db.Save(brand).Error
}

// DeleteBrand 删除品牌（被车源引用时拒绝）
func (r *GormBrandRepository) DeleteBrand(id uint) error {
	var count int64
	if err := r.db.Model(&models.Car{}).Where("brand_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrBrandReferenced
	}
	return r.db.Delete(&models.Brand{}, id).Error
}

// GetBrandByID 根据 ID 获取品牌
func (r *GormBrandRepository) GetBrandByID(id uint) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.First(&brand, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &brand, nil
}

// ListBrands 获取品牌列表
func (r *GormBrandRepository) ListBrands() ([]models.Brand, error) {
	var brands []models.Brand
	if err := r.db.Order("sort_order asc, id asc").Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

// CreateSeries 创建车系
func (r *GormBrandRepository) CreateSeries(series *models.Series) error {
	return r.db.Create(series).Error
}

// DeleteSeries 删除车系（被车源引用时拒绝）
func (r *GormBrandRepository) DeleteSeries(id uint) error {
	var count int64
	if err := r.db.Model(&models.Car{}).Where("series_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrBrandReferenced
	}
	return r.db.Delete(&models.Series{}, id).Error
}

// GetSeriesByID 根据 ID 获取车系
func (r *GormBrandRepository) GetSeriesByID(id uint) (*models.Series, error) {
	var series models.Series
	if err := r.db.First(&series, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &series, nil
}

// ListSeriesByBrand 获取品牌下的车系列表
func (r *GormBrandRepository) ListSeriesByBrand(brandID uint) ([]models.Series, error) {
	var series []models.Series
	query := r.db.Order("id asc")
	if brandID != 0 {
		query = query.Where("brand_id = ?", brandID)
	}
	if err := query.Find(&series).Error; err != nil {
		return nil, err
	}
	return series, nil
}
