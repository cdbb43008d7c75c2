package repository

import (
	"errors"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/models"

	"gorm.io/gorm"
)

// CarRepository 车源数据访问接口
type CarRepository interface {
	Create(car *models.Car) error
	Update(car *models.Car) error
	GetByID(id uint) (*models.Car, error)
	List(filter CarListFilter) ([]models.Car, int64, error)
	UpdateStatusIf(id uint, fromStatuses []string, toStatus string, updates map[string]interface{}) (bool, error)
	WithTx(tx *gorm.DB) *GormCarRepository
}

// GormCarRepository GORM 实现
type GormCarRepository struct {
	db *gorm.DB
}

// NewCarRepository 创建车源仓库
func NewCarRepository(db *gorm.DB) *GormCarRepository {
	return &GormCarRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCarRepository) WithTx(tx *gorm.DB) *GormCarRepository {
	if tx == nil {
		return r
	}
	return &GormCarRepository{db: tx}
}

// Create 创建车源
func (r *GormCarRepository) Create(car *models.Car) error {
	return r.db.Create(car).Error
}

// Update 更新车源
func (r *GormCarRepository) Update(car *models.Car) error {
	return r.db.Save(car).Error
}

// GetByID 根据 ID 获取车源
func (r *GormCarRepository) GetByID(id uint) (*models.Car, error) {
	var car models.Car
	if err := r.db.Preload("Brand").Preload("Series").First(&car, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &car, nil
}

// List 查询车源列表
func (r *GormCarRepository) List(filter CarListFilter) ([]models.Car, int64, error) {
	query := r.db.Model(&models.Car{})

	if filter.OwnerID != 0 {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.BrandID != 0 {
		query = query.Where("brand_id = ?", filter.BrandID)
	}
	if filter.SeriesID != 0 {
		query = query.Where("series_id = ?", filter.SeriesID)
	}
	if filter.CityCode != "" {
		query = query.Where("city_code = ?", filter.CityCode)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.OnlyOnSale {
		query = query.Where("status = ?", constants.CarStatusOn)
	}
	if filter.PriceMin != nil {
		query = query.Where("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		query = query.Where("price <= ?", *filter.PriceMax)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var cars []models.Car
	if err := query.Preload("Brand").Preload("Series").Order("id desc").Find(&cars).Error; err != nil {
		return nil, 0, err
	}
	return cars, total, nil
}

// UpdateStatusIf 条件更新车源状态：仅当当前状态在 fromStatuses 内才写入。
// 返回 false 表示前置状态已被并发修改，调用方据此判定冲突。
func (r *GormCarRepository) UpdateStatusIf(id uint, fromStatuses []string, toStatus string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := r.db.Model(&models.Car{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
