package main

import (
	"fmt"
	"time"

	"github.com/kamishop/internal/config"
	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 准备 schema
	if err := models.EnsureSchema(models.DB); err != nil {
		stdLog.Fatalf("Failed to prepare schema: %v", err)
	}

	// 初始化默认管理员（凭据来自配置注入）
	if err := models.InitDefaultAdmin(cfg.Admin.BootstrapUsername, cfg.Admin.BootstrapPassword); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 添加分类
	categories := []models.Category{
		{
			Slug:      "game-keys",
			Name:      "游戏激活码",
			SortOrder: 300,
		},
		{
			Slug:      "gift-cards",
			Name:      "充值礼品卡",
			SortOrder: 200,
		},
		{
			Slug:      "software-licenses",
			Name:      "软件授权码",
			SortOrder: 100,
		},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			// 不存在则创建
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	// 获取分类ID
	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Where("slug IN ?", []string{"game-keys", "gift-cards", "software-licenses"}).Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}
	gameKeysID := categoryIDs["game-keys"]
	giftCardsID := categoryIDs["gift-cards"]
	licensesID := categoryIDs["software-licenses"]

	// 添加商品
	products := []models.Product{
		{
			Slug:        "starfall-odyssey-key",
			Name:        "星陨远征 标准版激活码",
			Description: "全球区 Steam 激活码，购买后即时发货，支持中文界面与成就同步。",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(128.00)),
			CategoryID:  gameKeysID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1542751371-adc38448a05e?w=800",
			}),
			Tags:      models.StringArray([]string{"Steam", "RPG", "即时发货"}),
			IsActive:  true,
			SortOrder: 300,
		},
		{
			Slug:        "nebula-online-season-pass",
			Name:        "星云 Online 赛季通行证",
			Description: "第七赛季战令兑换码，含全部赛季奖励与专属涂装。",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(68.00)),
			CategoryID:  gameKeysID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1552820728-8b83bb6b773f?w=800",
			}),
			Tags:      models.StringArray([]string{"通行证", "兑换码"}),
			IsActive:  true,
			SortOrder: 290,
		},
		{
			Slug:        "prepaid-card-100",
			Name:        "通用充值卡 100 元面值",
			Description: "面值 100 元的平台充值卡，卡密为 16 位数字字母组合，充值立即到账。",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(98.00)),
			CategoryID:  giftCardsID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1556742049-0cfed4f6a45d?w=800",
			}),
			Tags:      models.StringArray([]string{"充值卡", "面值100"}),
			IsActive:  true,
			SortOrder: 200,
		},
		{
			Slug:        "prepaid-card-500",
			Name:        "通用充值卡 500 元面值",
			Description: "面值 500 元的平台充值卡，适合批量采购，支持开具明细。",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(488.00)),
			CategoryID:  giftCardsID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1563013544-824ae1b704d3?w=800",
			}),
			Tags:      models.StringArray([]string{"充值卡", "面值500", "批量"}),
			IsActive:  true,
			SortOrder: 190,
		},
		{
			Slug:        "officesuite-pro-annual",
			Name:        "OfficeSuite Pro 年度授权",
			Description: "单设备年度订阅授权码，激活后绑定账号，含全程版本升级。",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(199.00)),
			CategoryID:  licensesID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1498050108023-c5249f4df085?w=800",
			}),
			Tags:      models.StringArray([]string{"软件", "订阅", "年度"}),
			IsActive:  true,
			SortOrder: 100,
		},
		{
			Slug:        "shieldguard-vpn-quarter",
			Name:        "ShieldGuard VPN 季度兑换码",
			Description: "季度时长兑换码，支持 5 台设备同时在线，下架演示用。",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(45.00)),
			CategoryID:  licensesID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1563986768609-322da13575f3?w=800",
			}),
			Tags:      models.StringArray([]string{"VPN", "兑换码"}),
			IsActive:  false,
			SortOrder: 90,
		},
	}

	for _, prod := range products {
		if prod.CategoryID == 0 {
			stdLog.Printf("Skip product %s: category_id missing", prod.Slug)
			continue
		}
		var existing models.Product
		if err := models.DB.Where("slug = ?", prod.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", prod.Slug)
			}
		} else {
			existing.Name = prod.Name
			existing.Description = prod.Description
			existing.PriceAmount = prod.PriceAmount
			existing.CategoryID = prod.CategoryID
			existing.Images = prod.Images
			existing.Tags = prod.Tags
			existing.IsActive = prod.IsActive
			existing.SortOrder = prod.SortOrder
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.Slug)
			}
		}
	}

	// 为演示商品准备卡密库存（available 之外的按已使用落库，覆盖库存徽章的各档位）
	cardKeySeedPlans := []struct {
		Slug      string
		Prefix    string
		Total     int
		Available int
	}{
		{Slug: "starfall-odyssey-key", Prefix: "SEED-STARFALL", Total: 12, Available: 12},
		{Slug: "nebula-online-season-pass", Prefix: "SEED-NEBULA", Total: 6, Available: 3},
		{Slug: "prepaid-card-100", Prefix: "SEED-PREPAID100", Total: 8, Available: 8},
		{Slug: "prepaid-card-500", Prefix: "SEED-PREPAID500", Total: 4, Available: 0},
		{Slug: "officesuite-pro-annual", Prefix: "SEED-OFFICE", Total: 5, Available: 2},
	}

	for _, plan := range cardKeySeedPlans {
		var product models.Product
		if err := models.DB.Where("slug = ?", plan.Slug).First(&product).Error; err != nil {
			stdLog.Printf("Skip card key seed for %s: product not found", plan.Slug)
			continue
		}

		for i := 1; i <= plan.Total; i++ {
			code := fmt.Sprintf("%s-%03d", plan.Prefix, i)
			used := i > plan.Available

			now := time.Now()
			var usedAt *time.Time
			if used {
				usedAt = &now
			}

			// 导入路径不去重，但种子数据按 code 幂等，避免重复执行时库存膨胀
			var existingKey models.CardKey
			if err := models.DB.Where("product_id = ? AND code = ?", product.ID, code).First(&existingKey).Error; err != nil {
				item := models.CardKey{
					ProductID: product.ID,
					Code:      code,
					Used:      used,
					UsedAt:    usedAt,
				}
				if err := models.DB.Create(&item).Error; err != nil {
					stdLog.Printf("Failed to create card key %s: %v", code, err)
				}
				continue
			}

			existingKey.Used = used
			existingKey.UsedAt = usedAt
			existingKey.ReservedAt = nil
			existingKey.ReservationToken = ""
			if err := models.DB.Save(&existingKey).Error; err != nil {
				stdLog.Printf("Failed to update card key %s: %v", code, err)
			}
		}

		stdLog.Printf("Seeded card keys for %s: total=%d available=%d", plan.Slug, plan.Total, plan.Available)
	}

	// 更新网站配置
	configData := map[string]interface{}{
		constants.SettingFieldSiteName:         "Kamishop 卡密商店",
		constants.SettingFieldSiteCurrency:     constants.SiteCurrencyDefault,
		constants.SettingFieldSiteAnnouncement: "演示站点：所有卡密均为种子数据，请勿用于真实交易。",
		"contact": map[string]string{
			"telegram": "https://t.me/kamishop",
			"email":    "support@kamishop.example",
		},
	}

	var setting models.Setting
	if err := models.DB.Where("key = ?", constants.SettingKeySiteConfig).First(&setting).Error; err != nil {
		// 不存在则创建
		setting = models.Setting{
			Key:       constants.SettingKeySiteConfig,
			ValueJSON: models.JSON(configData),
		}
		if err := models.DB.Create(&setting).Error; err != nil {
			stdLog.Printf("Failed to create setting: %v", err)
		} else {
			stdLog.Println("Created site config")
		}
	} else {
		// 更新
		setting.ValueJSON = models.JSON(configData)
		if err := models.DB.Save(&setting).Error; err != nil {
			stdLog.Printf("Failed to update setting: %v", err)
		} else {
			stdLog.Println("Updated site config")
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Categories")
	fmt.Println("- 6 Products (含下架演示商品)")
	fmt.Println("- 5 Card key plans (共 35 条卡密，覆盖充足/紧张/售罄)")
	fmt.Println("- Site configuration")
}
