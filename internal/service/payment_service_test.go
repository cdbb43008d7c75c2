package service

import (
	"context"
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

type stubChannelGateway struct {
	createCalls int
	refundCalls int
	createErr   error
	refundErr   error
}

func (g *stubChannelGateway) CreateChannelPayment(ctx context.Context, channel string, payment *models.Payment, clientIP string) (*ChannelCreateResult, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &ChannelCreateResult{QRCode: "qr://" + payment.PaymentNo}, nil
}

func (g *stubChannelGateway) RefundChannelPayment(ctx context.Context, channel string, payment *models.Payment, refundNo, amount, reason string) error {
	g.refundCalls++
	return g.refundErr
}

func setupPaymentServiceTest(t *testing.T) (*PaymentService, *stubChannelGateway, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.Payment{},
		&models.PaymentLog{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if err := models.CreateActiveUniqueIndexes(db); err != nil {
		t.Fatalf("create unique indexes failed: %v", err)
	}
	models.DB = db

	gateway := &stubChannelGateway{}
	svc := NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewPaymentLogRepository(db),
		repository.NewOrderRepository(db),
		nil,
		gateway,
		15,
	)
	return svc, gateway, db
}

func createPendingOrder(t *testing.T, db *gorm.DB, buyerID uint, deposit int64) *models.Order {
	t.Helper()
	expiresAt := time.Now().Add(30 * time.Minute)
	order := models.Order{
		OrderNo:       fmt.Sprintf("HC%d", time.Now().UnixNano()),
		CarID:         1,
		BuyerID:       buyerID,
		SellerID:      99,
		DepositAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(deposit)),
		Status:        constants.OrderStatusPending,
		ExpiresAt:     &expiresAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return &order
}

func countPaymentLogs(t *testing.T, db *gorm.DB, paymentID uint, action string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.PaymentLog{}).
		Where("payment_id = ? AND action = ?", paymentID, action).
		Count(&count).Error; err != nil {
		t.Fatalf("count payment logs failed: %v", err)
	}
	return count
}

func TestCreatePaymentBuildsPendingPaymentWithLog(t *testing.T) {
	svc, gateway, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)

	result, err := svc.CreatePayment(CreatePaymentInput{
		OrderID:  order.ID,
		UserID:   2,
		Channel:  constants.PaymentChannelWechat,
		ClientIP: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if result.Payment.Status != constants.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", result.Payment.Status)
	}
	if result.Payment.Amount.String() != "6400.00" {
		t.Fatalf("expected amount 6400.00, got %s", result.Payment.Amount.String())
	}
	if result.QRCode == "" {
		t.Fatalf("expected qr code from gateway")
	}
	if gateway.createCalls != 1 {
		t.Fatalf("expected 1 gateway call, got %d", gateway.createCalls)
	}
	if got := countPaymentLogs(t, db, result.Payment.ID, constants.PaymentLogActionCreate); got != 1 {
		t.Fatalf("expected 1 create log, got %d", got)
	}
}

func TestCreatePaymentRejectsSecondActivePayment(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)

	if _, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelAlipay}); err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	if _, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelAlipay}); !errors.Is(err, ErrPaymentConflict) {
		t.Fatalf("expected ErrPaymentConflict, got %v", err)
	}
}

func TestActivePaymentUniqueIndexBlocksConcurrentInsert(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelWechat})
	if err != nil {
		t.Fatalf("first payment failed: %v", err)
	}

	// 绕过应用层预查直接插入，模拟并发事务的第二笔写入
	expireTime := time.Now().Add(15 * time.Minute)
	rival := models.Payment{
		PaymentNo:  fmt.Sprintf("HCP%d", time.Now().UnixNano()),
		OrderID:    order.ID,
		UserID:     2,
		Channel:    constants.PaymentChannelAlipay,
		Amount:     result.Payment.Amount,
		Status:     constants.PaymentStatusPending,
		ExpireTime: &expireTime,
	}
	if err := db.Create(&rival).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key on second active payment, got %v", err)
	}
}

func TestCreatePaymentRejectsUnknownChannel(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)

	if _, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: "paypal"}); !errors.Is(err, ErrPaymentChannelInvalid) {
		t.Fatalf("expected ErrPaymentChannelInvalid, got %v", err)
	}
}

func TestApplyChannelNotificationMarksPaidExactlyOnce(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelWechat})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	notification := ChannelNotificationInput{
		Channel:        constants.PaymentChannelWechat,
		PaymentNo:      result.Payment.PaymentNo,
		ChannelTradeNo: "4200001234",
		Status:         constants.PaymentStatusPaid,
		Amount:         "6400.00",
		Raw:            models.JSON{"trade_state": "SUCCESS"},
	}

	paid, err := svc.ApplyChannelNotification(notification)
	if err != nil {
		t.Fatalf("apply notification failed: %v", err)
	}
	if paid.Status != constants.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
	if paid.ChannelTradeNo != "4200001234" {
		t.Fatalf("expected channel trade no recorded, got %s", paid.ChannelTradeNo)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPaid {
		t.Fatalf("expected order paid, got %s", reloaded.Status)
	}

	// 同一交易号重复通知：幂等确认，不再追加 paid 流水
	again, err := svc.ApplyChannelNotification(notification)
	if err != nil {
		t.Fatalf("duplicate notification should succeed, got %v", err)
	}
	if again.Status != constants.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", again.Status)
	}
	if got := countPaymentLogs(t, db, paid.ID, constants.PaymentLogActionPaid); got != 1 {
		t.Fatalf("expected exactly 1 paid log, got %d", got)
	}
}

func TestApplyChannelNotificationRejectsTradeNoMismatchAfterTerminal(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelWechat})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	first := ChannelNotificationInput{
		Channel:        constants.PaymentChannelWechat,
		PaymentNo:      result.Payment.PaymentNo,
		ChannelTradeNo: "4200001234",
		Status:         constants.PaymentStatusPaid,
	}
	if _, err := svc.ApplyChannelNotification(first); err != nil {
		t.Fatalf("apply notification failed: %v", err)
	}

	mismatch := first
	mismatch.ChannelTradeNo = "4200009999"
	if _, err := svc.ApplyChannelNotification(mismatch); !errors.Is(err, ErrChannelReplay) {
		t.Fatalf("expected ErrChannelReplay, got %v", err)
	}
	if got := countPaymentLogs(t, db, result.Payment.ID, constants.PaymentLogActionReplay); got != 1 {
		t.Fatalf("expected 1 replay log, got %d", got)
	}
}

func TestApplyChannelNotificationRejectsAmountMismatch(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelAlipay})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	_, err = svc.ApplyChannelNotification(ChannelNotificationInput{
		Channel:        constants.PaymentChannelAlipay,
		PaymentNo:      result.Payment.PaymentNo,
		ChannelTradeNo: "2026082812345",
		Status:         constants.PaymentStatusPaid,
		Amount:         "1.00",
	})
	if !errors.Is(err, ErrChannelAmountMismatch) {
		t.Fatalf("expected ErrChannelAmountMismatch, got %v", err)
	}

	var current models.Payment
	if err := db.First(&current, result.Payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if current.Status != constants.PaymentStatusPending {
		t.Fatalf("expected payment untouched, got %s", current.Status)
	}
}

func TestExpirePaymentClosesOverduePending(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelWechat})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Payment{}).Where("id = ?", result.Payment.ID).Update("expire_time", past).Error; err != nil {
		t.Fatalf("update expire_time failed: %v", err)
	}

	closed, err := svc.ExpirePayment(result.Payment.ID)
	if err != nil {
		t.Fatalf("expire payment failed: %v", err)
	}
	if closed.Status != constants.PaymentStatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("expected order still pending, got %s", reloaded.Status)
	}
}

func TestExpirePaymentSkipsPaidPayment(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelWechat})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Payment{}).Where("id = ?", result.Payment.ID).
		Updates(map[string]interface{}{"status": constants.PaymentStatusPaid, "expire_time": past}).Error; err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	got, err := svc.ExpirePayment(result.Payment.ID)
	if err != nil {
		t.Fatalf("expire payment failed: %v", err)
	}
	if got.Status != constants.PaymentStatusPaid {
		t.Fatalf("expected paid payment untouched, got %s", got.Status)
	}
}

func TestRefundValidatesAmountAndMarksOrderRefunded(t *testing.T) {
	svc, gateway, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelWechat})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if _, err := svc.ApplyChannelNotification(ChannelNotificationInput{
		Channel:        constants.PaymentChannelWechat,
		PaymentNo:      result.Payment.PaymentNo,
		ChannelTradeNo: "4200001234",
		Status:         constants.PaymentStatusPaid,
	}); err != nil {
		t.Fatalf("apply notification failed: %v", err)
	}

	tooMuch := decimal.NewFromInt(9999999)
	if _, err := svc.Refund(RefundInput{PaymentID: result.Payment.ID, Amount: &tooMuch, OperatorID: 9}); !errors.Is(err, ErrRefundAmountInvalid) {
		t.Fatalf("expected ErrRefundAmountInvalid, got %v", err)
	}

	refunded, err := svc.Refund(RefundInput{PaymentID: result.Payment.ID, Reason: "协商退定", OperatorID: 9})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != constants.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", refunded.Status)
	}
	if refunded.RefundAmount.String() != "6400.00" {
		t.Fatalf("expected full refund 6400.00, got %s", refunded.RefundAmount.String())
	}
	if gateway.refundCalls != 1 {
		t.Fatalf("expected 1 gateway refund call, got %d", gateway.refundCalls)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusRefunded {
		t.Fatalf("expected order refunded, got %s", reloaded.Status)
	}
}

func TestRefundOrderResolvesPaidPayment(t *testing.T) {
	svc, gateway, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelWechat})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if _, err := svc.ApplyChannelNotification(ChannelNotificationInput{
		Channel:        constants.PaymentChannelWechat,
		PaymentNo:      result.Payment.PaymentNo,
		ChannelTradeNo: "4200001234",
		Status:         constants.PaymentStatusPaid,
	}); err != nil {
		t.Fatalf("apply notification failed: %v", err)
	}

	refunded, err := svc.RefundOrder(order.ID, RefundInput{Reason: "协商退定", OperatorID: 9})
	if err != nil {
		t.Fatalf("refund order failed: %v", err)
	}
	if refunded.ID != result.Payment.ID {
		t.Fatalf("expected refund on payment %d, got %d", result.Payment.ID, refunded.ID)
	}
	if refunded.Status != constants.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", refunded.Status)
	}
	if gateway.refundCalls != 1 {
		t.Fatalf("expected 1 gateway refund call, got %d", gateway.refundCalls)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusRefunded {
		t.Fatalf("expected order refunded, got %s", reloaded.Status)
	}
}

func TestRefundOrderRejectsUnpaidOrder(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)

	if _, err := svc.RefundOrder(order.ID, RefundInput{Reason: "协商退定", OperatorID: 9}); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}
	if _, err := svc.RefundOrder(order.ID+100, RefundInput{Reason: "协商退定", OperatorID: 9}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestRefundRejectsPendingPayment(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	order := createPendingOrder(t, db, 2, 6400)
	result, err := svc.CreatePayment(CreatePaymentInput{OrderID: order.ID, UserID: 2, Channel: constants.PaymentChannelWechat})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	if _, err := svc.Refund(RefundInput{PaymentID: result.Payment.ID, OperatorID: 9}); !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("expected ErrPaymentStatusInvalid, got %v", err)
	}
}
