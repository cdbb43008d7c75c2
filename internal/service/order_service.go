package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/queue"
	"github.com/haoche-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 定金订单服务，承载订单状态机
type OrderService struct {
	orderRepo      repository.OrderRepository
	carRepo        repository.CarRepository
	catalogService *CatalogService
	queueClient    *queue.Client
	depositRule    DepositRule
	expireMinutes  int
}

// DepositRule 定金推导规则：price × ratio，夹在 [min, max] 区间内
type DepositRule struct {
	RatioPercent decimal.Decimal
	Min          decimal.Decimal
	Max          decimal.Decimal
}

// NewDepositRule 从配置字符串构建定金规则
func NewDepositRule(ratioPercent float64, minStr, maxStr string) DepositRule {
	min, err := decimal.NewFromString(strings.TrimSpace(minStr))
	if err != nil {
		min = decimal.NewFromInt(500)
	}
	max, err := decimal.NewFromString(strings.TrimSpace(maxStr))
	if err != nil {
		max = decimal.NewFromInt(20000)
	}
	return DepositRule{
		RatioPercent: decimal.NewFromFloat(ratioPercent),
		Min:          min,
		Max:          max,
	}
}

// Derive 根据车价推导定金
func (r DepositRule) Derive(price decimal.Decimal) decimal.Decimal {
	deposit := price.Mul(r.RatioPercent).Div(decimal.NewFromInt(100)).Round(2)
	if deposit.LessThan(r.Min) {
		deposit = r.Min
	}
	if deposit.GreaterThan(r.Max) {
		deposit = r.Max
	}
	return deposit
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, carRepo repository.CarRepository, catalogService *CatalogService, queueClient *queue.Client, depositRule DepositRule, expireMinutes int) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		carRepo:        carRepo,
		catalogService: catalogService,
		queueClient:    queueClient,
		depositRule:    depositRule,
		expireMinutes:  expireMinutes,
	}
}

// allowedOrderTransitions 订单状态机可达表
var allowedOrderTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusPaid:      true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusClosed:   true,
		constants.OrderStatusRefunded: true,
	},
}

// canTransitionOrder 判断订单状态是否可达
func canTransitionOrder(from, to string) bool {
	nexts, ok := allowedOrderTransitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	CarID    uint
	BuyerID  uint
	ClientIP string
}

// CreateOrder 买家对可售车源（approved 或 on）创建定金订单。
// 同一车源同一时刻至多一条非终态订单：创建前查一次预判，
// 并发插入最终由 orders(car_id) 上的活跃态部分唯一索引裁决。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	car, err := s.carRepo.GetByID(input.CarID)
	if err != nil {
		return nil, err
	}
	if car == nil {
		return nil, ErrCarNotFound
	}
	if car.Status != constants.CarStatusOn && car.Status != constants.CarStatusApproved {
		return nil, ErrCarNotOrderable
	}
	if car.OwnerID == input.BuyerID {
		return nil, ErrOrderSelfBuy
	}

	if existing, err := s.orderRepo.GetActiveByCarID(car.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrOrderConflict
	}

	deposit := s.depositRule.Derive(car.Price.Decimal)
	expiresAt := time.Now().Add(time.Duration(s.resolveExpireMinutes()) * time.Minute)
	order := &models.Order{
		OrderNo:       generateOrderNo(),
		CarID:         car.ID,
		BuyerID:       input.BuyerID,
		SellerID:      car.OwnerID,
		DepositAmount: models.NewMoneyFromDecimal(deposit),
		Status:        constants.OrderStatusPending,
		ClientIP:      input.ClientIP,
		ExpiresAt:     &expiresAt,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if existing, err := orderRepo.GetActiveByCarID(car.ID); err != nil {
			return err
		} else if existing != nil {
			return ErrOrderConflict
		}
		if err := orderRepo.Create(order); err != nil {
			// 并发窗口内另一事务先插入活跃订单，唯一索引兜底
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrOrderConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.queueClient != nil {
		if err := s.queueClient.EnqueueOrderTimeoutCancel(order.ID, expiresAt); err != nil {
			logger.Warnw("order_enqueue_timeout_cancel_failed",
				"order_id", order.ID,
				"error", err,
			)
		}
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"car_id", car.ID,
		"buyer_id", input.BuyerID,
		"deposit", order.DepositAmount.String(),
	)
	return order, nil
}

// CancelOrder 买家取消待支付订单
func (s *OrderService) CancelOrder(orderID, buyerID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.BuyerID != buyerID {
		return nil, ErrOrderNotFound
	}
	if !canTransitionOrder(order.Status, constants.OrderStatusCancelled) {
		return nil, ErrOrderStatusInvalid
	}

	now := time.Now()
	ok, err := s.orderRepo.UpdateStatusIf(order.ID,
		[]string{constants.OrderStatusPending},
		constants.OrderStatusCancelled,
		map[string]interface{}{"canceled_at": now})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderStatusConflict
	}
	logger.Infow("order_cancelled",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"buyer_id", buyerID,
	)
	return s.orderRepo.GetByID(order.ID)
}

// CancelExpiredOrder 超时任务取消待支付订单。
// 条件写输给并发支付成功时按已处理返回，不报错。
func (s *OrderService) CancelExpiredOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return order, nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return order, nil
	}

	now := time.Now()
	ok, err := s.orderRepo.UpdateStatusIf(order.ID,
		[]string{constants.OrderStatusPending},
		constants.OrderStatusCancelled,
		map[string]interface{}{"canceled_at": now})
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Infow("order_timeout_cancel_lost_race",
			"order_id", order.ID,
			"order_no", order.OrderNo,
		)
		return s.orderRepo.GetByID(order.ID)
	}
	logger.Infow("order_timeout_cancelled",
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	return s.orderRepo.GetByID(order.ID)
}

// CompleteOrder 管理端完成订单：订单转 closed，同一事务内将车源置为 sold
func (s *OrderService) CompleteOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !canTransitionOrder(order.Status, constants.OrderStatusClosed) {
		return nil, ErrOrderStatusInvalid
	}

	now := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).UpdateStatusIf(order.ID,
			[]string{constants.OrderStatusPaid},
			constants.OrderStatusClosed,
			map[string]interface{}{"closed_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStatusConflict
		}
		return s.catalogService.MarkCarSold(tx, order.CarID)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("order_completed",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"car_id", order.CarID,
	)
	return s.orderRepo.GetByID(order.ID)
}

// GetOrderByBuyer 买家查询自己的订单
func (s *OrderService) GetOrderByBuyer(orderID, buyerID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.BuyerID != buyerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersByBuyer 买家订单列表
func (s *OrderService) ListOrdersByBuyer(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByBuyer(filter)
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// GetOrderForAdmin 管理端订单详情
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) resolveExpireMinutes() int {
	if s.expireMinutes <= 0 {
		return 30
	}
	return s.expireMinutes
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("HC%s%s", now, randNumeric(6))
}

func generatePaymentNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("HCP%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
