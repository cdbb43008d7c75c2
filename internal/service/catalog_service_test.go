package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCatalogServiceTest(t *testing.T, allowResubmit bool) (*CatalogService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Brand{},
		&models.Series{},
		&models.Car{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewCatalogService(repository.NewCarRepository(db), repository.NewBrandRepository(db), allowResubmit), db
}

func createCatalogFixture(t *testing.T, db *gorm.DB) (*models.Brand, *models.Series) {
	t.Helper()
	brand := models.Brand{Name: fmt.Sprintf("brand_%d", time.Now().UnixNano())}
	if err := db.Create(&brand).Error; err != nil {
		t.Fatalf("create brand failed: %v", err)
	}
	series := models.Series{BrandID: brand.ID, Name: "series_a"}
	if err := db.Create(&series).Error; err != nil {
		t.Fatalf("create series failed: %v", err)
	}
	return &brand, &series
}

func TestCarLifecycleDraftToOnSale(t *testing.T) {
	svc, db := setupCatalogServiceTest(t, true)
	brand, series := createCatalogFixture(t, db)

	car, err := svc.CreateDraft(1, CarDraftInput{
		Title:    "2021 轿车",
		Price:    decimal.NewFromInt(128000),
		Mileage:  32000,
		BrandID:  brand.ID,
		SeriesID: series.ID,
		CityCode: "310100",
	})
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	if car.Status != constants.CarStatusDraft {
		t.Fatalf("expected draft, got %s", car.Status)
	}

	car, err = svc.SubmitCar(car.ID, 1)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if car.Status != constants.CarStatusPending {
		t.Fatalf("expected pending, got %s", car.Status)
	}

	car, err = svc.AuditCar(car.ID, constants.AuditDecisionApprove, "", 9)
	if err != nil {
		t.Fatalf("audit approve failed: %v", err)
	}
	if car.Status != constants.CarStatusApproved {
		t.Fatalf("expected approved, got %s", car.Status)
	}

	car, err = svc.ToggleCar(car.ID, true)
	if err != nil {
		t.Fatalf("toggle on failed: %v", err)
	}
	if car.Status != constants.CarStatusOn {
		t.Fatalf("expected on, got %s", car.Status)
	}
	if car.ListedAt == nil {
		t.Fatalf("expected listed_at to be set")
	}
}

func TestAuditCarRejectRequiresReason(t *testing.T) {
	svc, db := setupCatalogServiceTest(t, true)
	brand, series := createCatalogFixture(t, db)
	car := models.Car{
		OwnerID:  1,
		BrandID:  brand.ID,
		SeriesID: series.ID,
		Title:    "待审核车源",
		Price:    models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
		CityCode: "310100",
		Status:   constants.CarStatusPending,
	}
	if err := db.Create(&car).Error; err != nil {
		t.Fatalf("create car failed: %v", err)
	}

	if _, err := svc.AuditCar(car.ID, constants.AuditDecisionReject, "  ", 9); !errors.Is(err, ErrAuditReasonRequired) {
		t.Fatalf("expected ErrAuditReasonRequired, got %v", err)
	}

	rejected, err := svc.AuditCar(car.ID, constants.AuditDecisionReject, "里程与描述不符", 9)
	if err != nil {
		t.Fatalf("audit reject failed: %v", err)
	}
	if rejected.Status != constants.CarStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectReason != "里程与描述不符" {
		t.Fatalf("unexpected reject reason: %s", rejected.RejectReason)
	}
}

func TestSubmitRejectedCarHonorsResubmitSwitch(t *testing.T) {
	svc, db := setupCatalogServiceTest(t, false)
	brand, series := createCatalogFixture(t, db)
	car := models.Car{
		OwnerID:      1,
		BrandID:      brand.ID,
		SeriesID:     series.ID,
		Title:        "被驳回车源",
		Price:        models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
		CityCode:     "310100",
		Status:       constants.CarStatusRejected,
		RejectReason: "照片不清晰",
	}
	if err := db.Create(&car).Error; err != nil {
		t.Fatalf("create car failed: %v", err)
	}

	if _, err := svc.SubmitCar(car.ID, 1); !errors.Is(err, ErrCarStatusInvalid) {
		t.Fatalf("expected ErrCarStatusInvalid with resubmit disabled, got %v", err)
	}

	svc2 := NewCatalogService(repository.NewCarRepository(db), repository.NewBrandRepository(db), true)
	resubmitted, err := svc2.SubmitCar(car.ID, 1)
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if resubmitted.Status != constants.CarStatusPending {
		t.Fatalf("expected pending, got %s", resubmitted.Status)
	}
	if resubmitted.RejectReason != "" {
		t.Fatalf("expected reject reason cleared, got %s", resubmitted.RejectReason)
	}
}

func TestToggleCarSameStatusIsNoop(t *testing.T) {
	svc, db := setupCatalogServiceTest(t, true)
	brand, series := createCatalogFixture(t, db)
	car := models.Car{
		OwnerID:  1,
		BrandID:  brand.ID,
		SeriesID: series.ID,
		Title:    "在售车源",
		Price:    models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
		CityCode: "310100",
		Status:   constants.CarStatusOn,
	}
	if err := db.Create(&car).Error; err != nil {
		t.Fatalf("create car failed: %v", err)
	}

	got, err := svc.ToggleCar(car.ID, true)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if got.Status != constants.CarStatusOn {
		t.Fatalf("expected on, got %s", got.Status)
	}
}

func TestToggleCarRejectsSoldCar(t *testing.T) {
	svc, db := setupCatalogServiceTest(t, true)
	brand, series := createCatalogFixture(t, db)
	car := models.Car{
		OwnerID:  1,
		BrandID:  brand.ID,
		SeriesID: series.ID,
		Title:    "已售车源",
		Price:    models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
		CityCode: "310100",
		Status:   constants.CarStatusSold,
	}
	if err := db.Create(&car).Error; err != nil {
		t.Fatalf("create car failed: %v", err)
	}

	if _, err := svc.ToggleCar(car.ID, true); !errors.Is(err, ErrCarStatusInvalid) {
		t.Fatalf("expected ErrCarStatusInvalid, got %v", err)
	}
}

func TestCreateDraftRejectsSeriesBrandMismatch(t *testing.T) {
	svc, db := setupCatalogServiceTest(t, true)
	brand, _ := createCatalogFixture(t, db)
	otherBrand := models.Brand{Name: fmt.Sprintf("brand_other_%d", time.Now().UnixNano())}
	if err := db.Create(&otherBrand).Error; err != nil {
		t.Fatalf("create brand failed: %v", err)
	}
	otherSeries := models.Series{BrandID: otherBrand.ID, Name: "series_b"}
	if err := db.Create(&otherSeries).Error; err != nil {
		t.Fatalf("create series failed: %v", err)
	}

	_, err := svc.CreateDraft(1, CarDraftInput{
		Title:    "品牌车系不匹配",
		Price:    decimal.NewFromInt(100000),
		Mileage:  1000,
		BrandID:  brand.ID,
		SeriesID: otherSeries.ID,
		CityCode: "310100",
	})
	if !errors.Is(err, ErrBrandNotFound) {
		t.Fatalf("expected ErrBrandNotFound, got %v", err)
	}
}
