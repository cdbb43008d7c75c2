package worker

import (
	"context"
	"errors"
	"time"

	"github.com/haoche-next/internal/config"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/queue"
	"github.com/haoche-next/internal/service"

	"github.com/hibiken/asynq"
)

const (
	expireSweepInterval  = time.Minute
	expireSweepBatchSize = 100
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	go s.runExpireSweepLoop(ctx)
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runExpireSweepLoop 兜底扫描：入队失败或任务丢失的超时支付单与订单由扫描关闭
func (s *Service) runExpireSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil {
		return
	}
	runOnce := func() {
		s.sweepExpiredPayments()
		s.sweepExpiredOrders()
	}
	runOnce()

	ticker := time.NewTicker(expireSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) sweepExpiredPayments() {
	if s.consumer.PaymentRepo == nil || s.consumer.PaymentService == nil {
		return
	}
	payments, err := s.consumer.PaymentRepo.ListExpiredPending(time.Now(), expireSweepBatchSize)
	if err != nil {
		logger.Warnw("worker_sweep_expired_payments_list_failed", "error", err)
		return
	}
	for _, payment := range payments {
		if _, err := s.consumer.PaymentService.ExpirePayment(payment.ID); err != nil {
			if errors.Is(err, service.ErrPaymentStatusConflict) {
				continue
			}
			logger.Warnw("worker_sweep_expire_payment_failed", "payment_id", payment.ID, "error", err)
		}
	}
}

func (s *Service) sweepExpiredOrders() {
	if s.consumer.OrderRepo == nil || s.consumer.OrderService == nil {
		return
	}
	orders, err := s.consumer.OrderRepo.ListExpiredPending(time.Now(), expireSweepBatchSize)
	if err != nil {
		logger.Warnw("worker_sweep_expired_orders_list_failed", "error", err)
		return
	}
	for _, order := range orders {
		if _, err := s.consumer.OrderService.CancelExpiredOrder(order.ID); err != nil {
			logger.Warnw("worker_sweep_cancel_order_failed", "order_id", order.ID, "error", err)
		}
	}
}
