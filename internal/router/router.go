package router

import (
	"github.com/haoche-next/internal/cache"
	"github.com/haoche-next/internal/config"
	"github.com/haoche-next/internal/http/handlers/admin"
	"github.com/haoche-next/internal/http/handlers/public"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 构建路由
func SetupRouter(cfg *config.Config, container *provider.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))

	publicHandler := public.New(container)
	adminHandler := admin.New(container)

	loginLimit := cfg.Security.LoginRateLimit
	userLoginLimiter := RateLimitMiddleware(cache.Client(), RateLimitRule{
		Prefix:        "rl:user_login",
		WindowSeconds: loginLimit.WindowSeconds,
		MaxRequests:   loginLimit.MaxAttempts,
		BlockSeconds:  loginLimit.BlockSeconds,
		Message:       "登录尝试过于频繁",
	}, KeyByIPAndJSONField("phone"))
	adminLoginLimiter := RateLimitMiddleware(cache.Client(), RateLimitRule{
		Prefix:        "rl:admin_login",
		WindowSeconds: loginLimit.WindowSeconds,
		MaxRequests:   loginLimit.MaxAttempts,
		BlockSeconds:  loginLimit.BlockSeconds,
		Message:       "登录尝试过于频繁",
	}, KeyByIPAndJSONField("username"))
	// 渠道按至少一次语义重投，阈值给足，仅拦截明显异常的洪水
	callbackLimiter := RateLimitMiddleware(cache.Client(), RateLimitRule{
		Prefix:        "rl:pay_callback",
		WindowSeconds: 60,
		MaxRequests:   300,
		Message:       "回调请求过于频繁",
	}, KeyByIP)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		// 公开目录
		publicGroup := api.Group("/public")
		{
			publicGroup.GET("/brands", publicHandler.ListBrands)
			publicGroup.GET("/brands/:id/series", publicHandler.ListBrandSeries)
			publicGroup.GET("/cars", publicHandler.ListCars)
			publicGroup.GET("/cars/:id", publicHandler.GetCar)
		}

		// 用户注册登录
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", publicHandler.UserRegister)
			authGroup.POST("/login", userLoginLimiter, publicHandler.UserLogin)
		}

		// 支付渠道回调
		api.POST("/payments/callback/wechat", callbackLimiter, publicHandler.HandleWechatCallback)
		api.POST("/payments/callback/alipay", callbackLimiter, publicHandler.HandleAlipayCallback)

		// 已登录用户
		userGroup := api.Group("")
		userGroup.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, container.UserRepo))
		{
			userGroup.GET("/me", publicHandler.GetCurrentUser)
			userGroup.POST("/me/verification", publicHandler.SubmitVerification)

			userGroup.GET("/my/cars", publicHandler.ListMyCars)
			userGroup.POST("/my/cars", publicHandler.CreateMyCar)
			userGroup.GET("/my/cars/:id", publicHandler.GetMyCar)
			userGroup.PUT("/my/cars/:id", publicHandler.UpdateMyCar)
			userGroup.POST("/my/cars/:id/submit", publicHandler.SubmitMyCar)
			userGroup.POST("/my/cars/:id/toggle", publicHandler.ToggleMyCar)

			userGroup.GET("/orders", publicHandler.ListMyOrders)
			userGroup.POST("/orders", publicHandler.CreateOrder)
			userGroup.GET("/orders/:id", publicHandler.GetMyOrder)
			userGroup.POST("/orders/:id/cancel", publicHandler.CancelOrder)

			userGroup.POST("/payments", publicHandler.CreatePayment)
			userGroup.GET("/payments/:id", publicHandler.GetMyPayment)
		}

		// 管理端
		api.POST("/admin/login", adminLoginLimiter, adminHandler.AdminLogin)

		adminGroup := api.Group("/admin")
		adminGroup.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, container.AdminRepo))
		adminGroup.Use(AdminRBACMiddleware(container.AuthzService))
		{
			adminGroup.PUT("/password", adminHandler.UpdateAdminPassword)
			adminGroup.GET("/authz/me", adminHandler.GetAuthzMe)

			adminGroup.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
			adminGroup.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
			adminGroup.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

			adminGroup.GET("/cars", adminHandler.AdminListCars)
			adminGroup.GET("/cars/:id", adminHandler.AdminGetCar)
			adminGroup.POST("/cars/:id/audit", adminHandler.AuditCar)
			adminGroup.POST("/cars/:id/toggle", adminHandler.AdminToggleCar)

			adminGroup.GET("/users", adminHandler.AdminListUsers)
			adminGroup.GET("/users/:id", adminHandler.AdminGetUser)
			adminGroup.POST("/users/:id/audit", adminHandler.AuditUser)
			adminGroup.POST("/users/:id/status", adminHandler.SetUserStatus)

			adminGroup.GET("/orders", adminHandler.AdminListOrders)
			adminGroup.GET("/orders/:id", adminHandler.AdminGetOrder)
			adminGroup.POST("/orders/:id/complete", adminHandler.CompleteOrder)
			adminGroup.POST("/orders/:id/refund", adminHandler.RefundOrder)

			adminGroup.GET("/payments", adminHandler.AdminListPayments)
			adminGroup.GET("/payments/:id", adminHandler.AdminGetPayment)
			adminGroup.GET("/payments/:id/logs", adminHandler.GetPaymentLogs)
			adminGroup.POST("/payments/:id/refund", adminHandler.RefundPayment)

			adminGroup.GET("/brands", adminHandler.AdminListBrands)
			adminGroup.POST("/brands", adminHandler.CreateBrand)
			adminGroup.PUT("/brands/:id", adminHandler.UpdateBrand)
			adminGroup.DELETE("/brands/:id", adminHandler.DeleteBrand)
			adminGroup.GET("/brands/:id/series", adminHandler.AdminListBrandSeries)
			adminGroup.POST("/brands/:id/series", adminHandler.CreateSeries)
			adminGroup.DELETE("/brands/:id/series/:series_id", adminHandler.DeleteSeries)

			adminGroup.GET("/authz/roles", adminHandler.ListAuthzRoles)
			adminGroup.POST("/authz/roles", adminHandler.CreateAuthzRole)
			adminGroup.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			adminGroup.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			adminGroup.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
			adminGroup.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
			adminGroup.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
		}
	}

	return r
}
