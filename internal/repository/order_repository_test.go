package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderRepositoryTest(t *testing.T) (*GormOrderRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
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
	return NewOrderRepository(db), db
}

func createTestOrder(t *testing.T, db *gorm.DB, carID uint, status string) *models.Order {
	t.Helper()
	order := models.Order{
		OrderNo:       fmt.Sprintf("HC%d", time.Now().UnixNano()),
		CarID:         carID,
		BuyerID:       2,
		SellerID:      1,
		DepositAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(5000)),
		Status:        status,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return &order
}

func TestOrderRepositoryGetActiveByCarIDSkipsClosedOrders(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)

	createTestOrder(t, db, 1, constants.OrderStatusCancelled)
	createTestOrder(t, db, 1, constants.OrderStatusRefunded)
	active := createTestOrder(t, db, 1, constants.OrderStatusPending)

	got, err := repo.GetActiveByCarID(1)
	if err != nil {
		t.Fatalf("get active order failed: %v", err)
	}
	if got == nil || got.ID != active.ID {
		t.Fatalf("expected order %d, got %+v", active.ID, got)
	}

	none, err := repo.GetActiveByCarID(42)
	if err != nil {
		t.Fatalf("get active order failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no active order, got %+v", none)
	}
}

func TestOrderRepositoryUpdateStatusIfCancelLosesToPaid(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	order := createTestOrder(t, db, 1, constants.OrderStatusPending)
	now := time.Now().UTC()

	paid, err := repo.UpdateStatusIf(order.ID, []string{constants.OrderStatusPending}, constants.OrderStatusPaid, map[string]interface{}{
		"paid_at": now,
	})
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if !paid {
		t.Fatalf("expected paid transition to succeed")
	}

	cancelled, err := repo.UpdateStatusIf(order.ID, []string{constants.OrderStatusPending}, constants.OrderStatusCancelled, map[string]interface{}{
		"canceled_at": now,
	})
	if err != nil {
		t.Fatalf("cancel attempt failed: %v", err)
	}
	if cancelled {
		t.Fatalf("expected cancel to lose against paid order")
	}

	got, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.Status != constants.OrderStatusPaid {
		t.Fatalf("expected status paid, got %s", got.Status)
	}
	if got.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}
}

func TestOrderRepositoryListByBuyerFiltersStatus(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)

	pending := createTestOrder(t, db, 1, constants.OrderStatusPending)
	createTestOrder(t, db, 2, constants.OrderStatusCancelled)

	orders, total, err := repo.ListByBuyer(OrderListFilter{BuyerID: 2, Status: constants.OrderStatusPending, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("expected 1 order, got total=%d len=%d", total, len(orders))
	}
	if orders[0].ID != pending.ID {
		t.Fatalf("expected order %d, got %d", pending.ID, orders[0].ID)
	}
}
