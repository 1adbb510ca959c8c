package router

import (
	"fmt"
	"strings"

	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/config"
	adminhandlers "github.com/kamishop/internal/http/handlers/admin"
	publichandlers "github.com/kamishop/internal/http/handlers/public"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ks"
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		Message:       "登录尝试过于频繁，请 %d 秒后再试",
	}
	reviewRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:review", redisPrefix),
		WindowSeconds: cfg.Security.ReviewRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ReviewRateLimit.MaxRequests,
		Message:       "评价提交过于频繁，请 %d 秒后再试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 静态文件服务（上传的图片）- 必须放在最前面
	uploadDir := strings.TrimSpace(cfg.Upload.Dir)
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	r.Static("/uploads", uploadDir)

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:slug", publicHandler.GetProductBySlug)
			public.GET("/categories", publicHandler.GetCategories)
			public.GET("/reviews", publicHandler.GetProductReviews)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 游客接口
		guest := apiV1.Group("/guest")
		{
			guest.POST("/reviews", RateLimitMiddleware(redisClient, reviewRule, KeyByIP), publicHandler.SubmitReview)
			guest.POST("/redemptions/reserve", publicHandler.ReserveCardKey)
			guest.POST("/redemptions/complete", publicHandler.CompleteRedemption)
			guest.POST("/redemptions/release", publicHandler.ReleaseReservation)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				// 仪表盘
				authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)

				// 商品管理
				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.GET("/products/:id", adminHandler.GetAdminProduct)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.DELETE("/products/:id", adminHandler.DeleteProduct)

				// 分类管理
				authorized.GET("/categories", adminHandler.GetAdminCategories)
				authorized.POST("/categories", adminHandler.CreateCategory)
				authorized.PUT("/categories/:id", adminHandler.UpdateCategory)
				authorized.DELETE("/categories/:id", adminHandler.DeleteCategory)

				// 卡密库存管理
				authorized.POST("/card-keys/batch", adminHandler.CreateCardKeys)
				authorized.POST("/card-keys/import", adminHandler.ImportCardKeyText)
				authorized.GET("/card-keys", adminHandler.GetCardKeys)
				authorized.GET("/card-keys/stats", adminHandler.GetCardKeyStats)
				authorized.GET("/card-keys/export", adminHandler.ExportCardKeys)
				authorized.DELETE("/card-keys/:id", adminHandler.DeleteCardKey)
				authorized.POST("/card-keys/delete-all", adminHandler.DeleteAllCardKeys)

				// 评价审核
				authorized.GET("/reviews", adminHandler.GetAdminReviews)
				authorized.PUT("/reviews/:id/status", adminHandler.UpdateReviewStatus)
				authorized.DELETE("/reviews/:id", adminHandler.DeleteReview)

				// 设置管理
				authorized.GET("/settings", adminHandler.GetSettings)
				authorized.PUT("/settings", adminHandler.UpdateSettings)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword) // 修改密码

				// 文件上传
				authorized.POST("/upload", adminHandler.UploadFile)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
