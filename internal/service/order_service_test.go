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

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Brand{},
		&models.Series{},
		&models.Car{},
		&models.Order{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if err := models.CreateActiveUniqueIndexes(db); err != nil {
		t.Fatalf("create unique indexes failed: %v", err)
	}
	models.DB = db

	carRepo := repository.NewCarRepository(db)
	catalogService := NewCatalogService(carRepo, repository.NewBrandRepository(db), true)
	depositRule := NewDepositRule(5, "500", "20000")
	svc := NewOrderService(repository.NewOrderRepository(db), carRepo, catalogService, nil, depositRule, 30)
	return svc, db
}

func createOnSaleCar(t *testing.T, db *gorm.DB, ownerID uint, price int64) *models.Car {
	t.Helper()
	brand := models.Brand{Name: fmt.Sprintf("brand_%d_%d", ownerID, time.Now().UnixNano())}
	if err := db.Create(&brand).Error; err != nil {
		t.Fatalf("create brand failed: %v", err)
	}
	series := models.Series{BrandID: brand.ID, Name: "series_a"}
	if err := db.Create(&series).Error; err != nil {
		t.Fatalf("create series failed: %v", err)
	}
	now := time.Now()
	car := models.Car{
		OwnerID:  ownerID,
		BrandID:  brand.ID,
		SeriesID: series.ID,
		Title:    "在售测试车源",
		Price:    models.NewMoneyFromDecimal(decimal.NewFromInt(price)),
		Mileage:  20000,
		CityCode: "310100",
		Status:   constants.CarStatusOn,
		ListedAt: &now,
	}
	if err := db.Create(&car).Error; err != nil {
		t.Fatalf("create car failed: %v", err)
	}
	return &car
}

func TestCreateOrderDerivesDepositWithinClamp(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	cases := []struct {
		price   int64
		deposit string
	}{
		{128000, "6400.00"},
		{5000, "500.00"},
		{1000000, "20000.00"},
	}
	for _, tc := range cases {
		car := createOnSaleCar(t, db, 1, tc.price)
		order, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2, ClientIP: "10.0.0.1"})
		if err != nil {
			t.Fatalf("create order for price %d failed: %v", tc.price, err)
		}
		if order.DepositAmount.String() != tc.deposit {
			t.Fatalf("price %d: expected deposit %s, got %s", tc.price, tc.deposit, order.DepositAmount.String())
		}
		if order.Status != constants.OrderStatusPending {
			t.Fatalf("expected pending order, got %s", order.Status)
		}
		if order.ExpiresAt == nil || !order.ExpiresAt.After(time.Now()) {
			t.Fatalf("expected future expires_at")
		}
	}
}

func TestCreateOrderAllowsApprovedCar(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 1, 128000)
	if err := db.Model(&models.Car{}).Where("id = ?", car.ID).Update("status", constants.CarStatusApproved).Error; err != nil {
		t.Fatalf("update car failed: %v", err)
	}

	order, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2, ClientIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("create order against approved car failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if order.DepositAmount.String() != "6400.00" {
		t.Fatalf("expected deposit 6400.00, got %s", order.DepositAmount.String())
	}
}

func TestCreateOrderRejectsSelfBuy(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 7, 100000)

	if _, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 7}); !errors.Is(err, ErrOrderSelfBuy) {
		t.Fatalf("expected ErrOrderSelfBuy, got %v", err)
	}
}

func TestCreateOrderRejectsActiveOrderConflict(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 1, 100000)

	if _, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2}); err != nil {
		t.Fatalf("first order failed: %v", err)
	}
	if _, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 3}); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected ErrOrderConflict, got %v", err)
	}
}

func TestActiveOrderUniqueIndexBlocksConcurrentInsert(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 1, 100000)
	first, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2})
	if err != nil {
		t.Fatalf("first order failed: %v", err)
	}

	// 绕过应用层预查直接插入，模拟并发事务的第二笔写入
	expiresAt := time.Now().Add(30 * time.Minute)
	rival := models.Order{
		OrderNo:       fmt.Sprintf("HC%d", time.Now().UnixNano()),
		CarID:         car.ID,
		BuyerID:       3,
		SellerID:      1,
		DepositAmount: first.DepositAmount,
		Status:        constants.OrderStatusPending,
		ExpiresAt:     &expiresAt,
	}
	if err := db.Create(&rival).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key on second active order, got %v", err)
	}

	// 首单取消后索引释放，可再次下单
	if _, err := svc.CancelOrder(first.ID, 2); err != nil {
		t.Fatalf("cancel first order failed: %v", err)
	}
	if _, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 3}); err != nil {
		t.Fatalf("order after cancel failed: %v", err)
	}
}

func TestCreateOrderRejectsOffSaleCar(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 1, 100000)
	if err := db.Model(&models.Car{}).Where("id = ?", car.ID).Update("status", constants.CarStatusOff).Error; err != nil {
		t.Fatalf("update car failed: %v", err)
	}

	if _, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2}); !errors.Is(err, ErrCarNotOrderable) {
		t.Fatalf("expected ErrCarNotOrderable, got %v", err)
	}
}

func TestCancelExpiredOrderSkipsPaidOrder(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 1, 100000)
	order, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"status": constants.OrderStatusPaid, "expires_at": past}).Error; err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	got, err := svc.CancelExpiredOrder(order.ID)
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if got.Status != constants.OrderStatusPaid {
		t.Fatalf("expected paid order untouched, got %s", got.Status)
	}
}

func TestCancelExpiredOrderCancelsOverduePending(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 1, 100000)
	order, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("update expires_at failed: %v", err)
	}

	got, err := svc.CancelExpiredOrder(order.ID)
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if got.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.CanceledAt == nil {
		t.Fatalf("expected canceled_at to be set")
	}
}

func TestCompleteOrderMarksCarSold(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 1, 100000)
	order, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	now := time.Now()
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"status": constants.OrderStatusPaid, "paid_at": now}).Error; err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	closed, err := svc.CompleteOrder(order.ID)
	if err != nil {
		t.Fatalf("complete order failed: %v", err)
	}
	if closed.Status != constants.OrderStatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}

	var soldCar models.Car
	if err := db.First(&soldCar, car.ID).Error; err != nil {
		t.Fatalf("reload car failed: %v", err)
	}
	if soldCar.Status != constants.CarStatusSold {
		t.Fatalf("expected sold car, got %s", soldCar.Status)
	}
	if soldCar.SoldAt == nil {
		t.Fatalf("expected sold_at to be set")
	}
}

func TestCompleteOrderRejectsPendingOrder(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	car := createOnSaleCar(t, db, 1, 100000)
	order, err := svc.CreateOrder(CreateOrderInput{CarID: car.ID, BuyerID: 2})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.CompleteOrder(order.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}

	var current models.Car
	if err := db.First(&current, car.ID).Error; err != nil {
		t.Fatalf("reload car failed: %v", err)
	}
	if current.Status != constants.CarStatusOn {
		t.Fatalf("expected car still on sale, got %s", current.Status)
	}
}
