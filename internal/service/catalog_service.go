package service

import (
	"strings"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService 车源目录服务，承载车源状态机
type CatalogService struct {
	carRepo       repository.CarRepository
	brandRepo     repository.BrandRepository
	allowResubmit bool
}

// NewCatalogService 创建车源目录服务
func NewCatalogService(carRepo repository.CarRepository, brandRepo repository.BrandRepository, allowResubmit bool) *CatalogService {
	return &CatalogService{
		carRepo:       carRepo,
		brandRepo:     brandRepo,
		allowResubmit: allowResubmit,
	}
}

// allowedCarTransitions 车源状态机可达表
var allowedCarTransitions = map[string]map[string]bool{
	constants.CarStatusDraft: {
		constants.CarStatusPending: true,
	},
	constants.CarStatusPending: {
		constants.CarStatusApproved: true,
		constants.CarStatusRejected: true,
	},
	constants.CarStatusApproved: {
		constants.CarStatusOn:  true,
		constants.CarStatusOff: true,
	},
	constants.CarStatusOn: {
		constants.CarStatusOff:  true,
		constants.CarStatusSold: true,
	},
	constants.CarStatusOff: {
		constants.CarStatusOn:   true,
		constants.CarStatusSold: true,
	},
	constants.CarStatusRejected: {
		constants.CarStatusPending: true,
	},
}

// CarDraftInput 创建/更新草稿输入
type CarDraftInput struct {
	Title    string
	Price    decimal.Decimal
	Mileage  int64
	BrandID  uint
	SeriesID uint
	CityCode string
}

// validateDraftInput 草稿字段校验（封闭 schema）
func (s *CatalogService) validateDraftInput(input CarDraftInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return ErrCarFieldInvalid
	}
	if !input.Price.IsPositive() {
		return ErrCarFieldInvalid
	}
	if input.Mileage < 0 {
		return ErrCarFieldInvalid
	}
	if strings.TrimSpace(input.CityCode) == "" {
		return ErrCarFieldInvalid
	}
	series, err := s.brandRepo.GetSeriesByID(input.SeriesID)
	if err != nil {
		return err
	}
	if series == nil || series.BrandID != input.BrandID {
		return ErrBrandNotFound
	}
	return nil
}

// CreateDraft 创建车源草稿
func (s *CatalogService) CreateDraft(ownerID uint, input CarDraftInput) (*models.Car, error) {
	if err := s.validateDraftInput(input); err != nil {
		return nil, err
	}
	car := &models.Car{
		OwnerID:  ownerID,
		BrandID:  input.BrandID,
		SeriesID: input.SeriesID,
		Title:    strings.TrimSpace(input.Title),
		Price:    models.NewMoneyFromDecimal(input.Price),
		Mileage:  input.Mileage,
		CityCode: strings.TrimSpace(input.CityCode),
		Status:   constants.CarStatusDraft,
	}
	if err := s.carRepo.Create(car); err != nil {
		return nil, err
	}
	logger.Infow("car_draft_created",
		"car_id", car.ID,
		"owner_id", ownerID,
		"brand_id", car.BrandID,
		"series_id", car.SeriesID,
	)
	return car, nil
}

// UpdateDraft 更新车源草稿，仅 draft 与 rejected 状态可编辑
func (s *CatalogService) UpdateDraft(carID, ownerID uint, input CarDraftInput) (*models.Car, error) {
	car, err := s.carRepo.GetByID(carID)
	if err != nil {
		return nil, err
	}
	if car == nil {
		return nil, ErrCarNotFound
	}
	if car.OwnerID != ownerID {
		return nil, ErrCarNotOwned
	}
	if car.Status != constants.CarStatusDraft && car.Status != constants.CarStatusRejected {
		return nil, ErrCarStatusInvalid
	}
	if err := s.validateDraftInput(input); err != nil {
		return nil, err
	}
	car.Title = strings.TrimSpace(input.Title)
	car.Price = models.NewMoneyFromDecimal(input.Price)
	car.Mileage = input.Mileage
	car.BrandID = input.BrandID
	car.SeriesID = input.SeriesID
	car.CityCode = strings.TrimSpace(input.CityCode)
	if err := s.carRepo.Update(car); err != nil {
		return nil, err
	}
	return car, nil
}

// SubmitCar 卖家提交审核：draft 或被驳回后重新提交
func (s *CatalogService) SubmitCar(carID, ownerID uint) (*models.Car, error) {
	car, err := s.carRepo.GetByID(carID)
	if err != nil {
		return nil, err
	}
	if car == nil {
		return nil, ErrCarNotFound
	}
	if car.OwnerID != ownerID {
		return nil, ErrCarNotOwned
	}

	if !canTransitionCar(car.Status, constants.CarStatusPending) {
		return nil, ErrCarStatusInvalid
	}
	if car.Status == constants.CarStatusRejected && !s.allowResubmit {
		return nil, ErrCarStatusInvalid
	}
	fromStatuses := []string{constants.CarStatusDraft, constants.CarStatusRejected}

	ok, err := s.carRepo.UpdateStatusIf(car.ID, fromStatuses, constants.CarStatusPending, map[string]interface{}{
		"reject_reason": "",
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCarStatusConflict
	}
	logger.Infow("car_submitted",
		"car_id", car.ID,
		"owner_id", ownerID,
		"from_status", car.Status,
	)
	return s.carRepo.GetByID(car.ID)
}

// AuditCar 审核车源：pending 到 approved 或 rejected
func (s *CatalogService) AuditCar(carID uint, decision, reason string, adminID uint) (*models.Car, error) {
	var target string
	switch decision {
	case constants.AuditDecisionApprove:
		target = constants.CarStatusApproved
	case constants.AuditDecisionReject:
		target = constants.CarStatusRejected
	default:
		return nil, ErrAuditDecisionInvalid
	}
	reason = strings.TrimSpace(reason)
	if target == constants.CarStatusRejected && reason == "" {
		return nil, ErrAuditReasonRequired
	}

	car, err := s.carRepo.GetByID(carID)
	if err != nil {
		return nil, err
	}
	if car == nil {
		return nil, ErrCarNotFound
	}
	if !canTransitionCar(car.Status, target) {
		return nil, ErrCarStatusInvalid
	}

	updates := map[string]interface{}{}
	if target == constants.CarStatusRejected {
		updates["reject_reason"] = reason
	} else {
		updates["reject_reason"] = ""
	}
	ok, err := s.carRepo.UpdateStatusIf(car.ID, []string{constants.CarStatusPending}, target, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCarStatusConflict
	}
	logger.Infow("car_audited",
		"car_id", car.ID,
		"admin_id", adminID,
		"decision", decision,
	)
	return s.carRepo.GetByID(car.ID)
}

// ToggleCar 上架/下架：approved、on、off 之间切换，目标状态相同为幂等空操作
func (s *CatalogService) ToggleCar(carID uint, visible bool) (*models.Car, error) {
	car, err := s.carRepo.GetByID(carID)
	if err != nil {
		return nil, err
	}
	if car == nil {
		return nil, ErrCarNotFound
	}

	target := constants.CarStatusOff
	if visible {
		target = constants.CarStatusOn
	}
	if car.Status == target {
		return car, nil
	}

	fromStatuses := []string{constants.CarStatusApproved, constants.CarStatusOn, constants.CarStatusOff}
	if !containsStatus(fromStatuses, car.Status) {
		return nil, ErrCarStatusInvalid
	}

	updates := map[string]interface{}{}
	if target == constants.CarStatusOn {
		now := time.Now()
		updates["listed_at"] = now
	}
	ok, err := s.carRepo.UpdateStatusIf(car.ID, fromStatuses, target, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCarStatusConflict
	}
	logger.Infow("car_toggled",
		"car_id", car.ID,
		"target_status", target,
	)
	return s.carRepo.GetByID(car.ID)
}

// MarkCarSold 订单完成时将车源置为 sold。
// 在订单完成事务内调用，条件写失败说明遭遇并发售出。
func (s *CatalogService) MarkCarSold(tx *gorm.DB, carID uint) error {
	now := time.Now()
	ok, err := s.carRepo.WithTx(tx).UpdateStatusIf(carID,
		[]string{constants.CarStatusOn, constants.CarStatusOff},
		constants.CarStatusSold,
		map[string]interface{}{"sold_at": now})
	if err != nil {
		return err
	}
	if !ok {
		return ErrCarStatusConflict
	}
	return nil
}

// GetCar 获取车源详情
func (s *CatalogService) GetCar(carID uint) (*models.Car, error) {
	car, err := s.carRepo.GetByID(carID)
	if err != nil {
		return nil, err
	}
	if car == nil {
		return nil, ErrCarNotFound
	}
	return car, nil
}

// ListPublicCars 公开车源列表，仅在售
func (s *CatalogService) ListPublicCars(filter repository.CarListFilter) ([]models.Car, int64, error) {
	filter.OnlyOnSale = true
	filter.Status = ""
	filter.Statuses = nil
	return s.carRepo.List(filter)
}

// ListCarsByOwner 卖家车源列表
func (s *CatalogService) ListCarsByOwner(ownerID uint, filter repository.CarListFilter) ([]models.Car, int64, error) {
	filter.OwnerID = ownerID
	return s.carRepo.List(filter)
}

// ListCarsForAdmin 管理端车源列表
func (s *CatalogService) ListCarsForAdmin(filter repository.CarListFilter) ([]models.Car, int64, error) {
	return s.carRepo.List(filter)
}

// canTransitionCar 判断车源状态是否可达
func canTransitionCar(from, to string) bool {
	nexts, ok := allowedCarTransitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

func containsStatus(statuses []string, status string) bool {
	for _, item := range statuses {
		if item == status {
			return true
		}
	}
	return false
}
