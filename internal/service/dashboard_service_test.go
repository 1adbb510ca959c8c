package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupDashboardServiceTest(t *testing.T) (*DashboardService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:dashboard_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.CardKey{},
		&models.Review{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	return NewDashboardService(repository.NewDashboardRepository(db)), db
}

func TestDashboardOverviewAggregatesCounts(t *testing.T) {
	svc, db := setupDashboardServiceTest(t)
	ctx := context.Background()
	now := time.Now()

	category := models.Category{Slug: "digital", Name: "数字商品"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}

	active := models.Product{CategoryID: category.ID, Slug: "active", Name: "在售商品", PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)), IsActive: true}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("create active product failed: %v", err)
	}
	hidden := models.Product{CategoryID: category.ID, Slug: "hidden", Name: "下架商品", PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)), IsActive: false}
	if err := db.Create(&hidden).Error; err != nil {
		t.Fatalf("create hidden product failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		key := models.CardKey{ProductID: active.ID, Code: fmt.Sprintf("FREE-%d", i)}
		if err := db.Create(&key).Error; err != nil {
			t.Fatalf("create key failed: %v", err)
		}
	}
	usedKey := models.CardKey{ProductID: active.ID, Code: "USED-1", Used: true, UsedAt: &now}
	if err := db.Create(&usedKey).Error; err != nil {
		t.Fatalf("create used key failed: %v", err)
	}

	review := models.Review{ProductID: active.ID, Author: "小王", Rating: 5, Status: constants.ReviewStatusPending}
	if err := db.Create(&review).Error; err != nil {
		t.Fatalf("create review failed: %v", err)
	}

	overview, err := svc.GetOverview(ctx, false)
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}

	kpi := overview.KPI
	if kpi.ProductsTotal != 2 || kpi.ProductsActive != 1 || kpi.Categories != 1 {
		t.Fatalf("product kpi unexpected: %+v", kpi)
	}
	if kpi.CardKeysTotal != 3 || kpi.CardKeysAvailable != 2 || kpi.CardKeysUsed != 1 {
		t.Fatalf("card key kpi unexpected: %+v", kpi)
	}
	if kpi.ReviewsPending != 1 {
		t.Fatalf("reviews pending want 1 got %d", kpi.ReviewsPending)
	}

	// 在售商品可用库存 2，低于阈值，应进低库存列表并产生告警
	if len(overview.LowStock) != 1 || overview.LowStock[0].Slug != "active" || overview.LowStock[0].Available != 2 {
		t.Fatalf("low stock unexpected: %+v", overview.LowStock)
	}
	foundLowStockAlert := false
	foundReviewAlert := false
	for _, alert := range overview.Alerts {
		switch alert.Type {
		case "low_stock_products":
			foundLowStockAlert = true
		case "reviews_pending":
			foundReviewAlert = true
		}
	}
	if !foundLowStockAlert || !foundReviewAlert {
		t.Fatalf("alerts unexpected: %+v", overview.Alerts)
	}
}

func TestDashboardOverviewEmptyDatabase(t *testing.T) {
	svc, _ := setupDashboardServiceTest(t)

	overview, err := svc.GetOverview(context.Background(), false)
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if overview.KPI.ProductsTotal != 0 || overview.KPI.CardKeysTotal != 0 {
		t.Fatalf("empty database kpi unexpected: %+v", overview.KPI)
	}
	if len(overview.LowStock) != 0 || len(overview.Alerts) != 0 {
		t.Fatalf("empty database should have no alerts: %+v", overview)
	}
}
