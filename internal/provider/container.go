package provider

import (
	"github.com/haoche-next/internal/authz"
	"github.com/haoche-next/internal/cache"
	"github.com/haoche-next/internal/config"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/queue"
	"github.com/haoche-next/internal/repository"
	"github.com/haoche-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo      repository.AdminRepository
	UserRepo       repository.UserRepository
	BrandRepo      repository.BrandRepository
	CarRepo        repository.CarRepository
	OrderRepo      repository.OrderRepository
	PaymentRepo    repository.PaymentRepository
	PaymentLogRepo repository.PaymentLogRepository
	DashboardRepo  repository.DashboardRepository

	// Services
	AuthzService     *authz.Service
	AuthService      *service.AuthService
	UserAuthService  *service.UserAuthService
	CatalogService   *service.CatalogService
	OrderService     *service.OrderService
	PaymentService   *service.PaymentService
	AuditService     *service.AuditService
	DashboardService *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.BrandRepo = repository.NewBrandRepository(db)
	c.CarRepo = repository.NewCarRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.PaymentLogRepo = repository.NewPaymentLogRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.CatalogService = service.NewCatalogService(c.CarRepo, c.BrandRepo, c.Config.Audit.AllowResubmit)

	depositRule := service.NewDepositRule(
		c.Config.Order.DepositRatioPercent,
		c.Config.Order.DepositMin,
		c.Config.Order.DepositMax,
	)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CarRepo, c.CatalogService, c.QueueClient, depositRule, c.Config.Order.ExpireMinutes)

	gateway := service.NewPaymentChannelGateway(&c.Config.Payment)
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.PaymentLogRepo, c.OrderRepo, c.QueueClient, gateway, c.Config.Payment.ExpireMinutes)

	c.AuditService = service.NewAuditService(c.UserRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
