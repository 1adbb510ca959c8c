package provider

import (
	"github.com/kamishop/internal/authz"
	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/config"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/queue"
	"github.com/kamishop/internal/repository"
	"github.com/kamishop/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo     repository.AdminRepository
	CardKeyRepo   repository.CardKeyRepository
	ProductRepo   repository.ProductRepository
	CategoryRepo  repository.CategoryRepository
	ReviewRepo    repository.ReviewRepository
	SettingRepo   repository.SettingRepository
	DashboardRepo repository.DashboardRepository

	// Services
	AdminAllowList    *authz.AllowList
	AuthService       *service.AuthService
	CaptchaService    *service.CaptchaService
	UploadService     *service.UploadService
	ProductService    *service.ProductService
	CategoryService   *service.CategoryService
	CardKeyService    *service.CardKeyService
	RedemptionService *service.RedemptionService
	ReviewService     *service.ReviewService
	SettingService    *service.SettingService
	DashboardService  *service.DashboardService
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
	c.CardKeyRepo = repository.NewCardKeyRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.ReviewRepo = repository.NewReviewRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	c.AdminAllowList = authz.ParseAllowList(c.Config.Admin.AllowList)
	if c.AdminAllowList.Size() == 0 {
		logger.Warnw("provider_admin_allow_list_empty")
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.UploadService = service.NewUploadService(c.Config)
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.CategoryRepo, c.CardKeyRepo)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo)
	c.CardKeyService = service.NewCardKeyService(c.AdminAllowList, c.CardKeyRepo, c.ProductRepo)
	c.RedemptionService = service.NewRedemptionService(c.CardKeyRepo, c.ProductRepo, c.QueueClient)
	c.ReviewService = service.NewReviewService(c.ReviewRepo, c.ProductRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}

// Close 释放容器持有的外部连接
func (c *Container) Close() {
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
}
