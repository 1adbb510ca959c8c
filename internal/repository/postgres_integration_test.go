//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kamishop/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.Review{},
		&models.CardKey{},
		&models.Product{},
		&models.Category{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.CardKey{},
		&models.Review{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresProductSearchIgnoresCase(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	category := &models.Category{
		Slug: "pg-category",
		Name: "Postgres 分类",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}

	productRepo := NewProductRepository(db)
	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        "pg-product-rocket",
		Name:        "火箭会员",
		Description: "rocket booster package",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(99)),
		IsActive:    true,
	}
	if err := productRepo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	rows, total, err := productRepo.List(ProductListFilter{Page: 1, Search: "火箭"})
	if err != nil {
		t.Fatalf("product list search name failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("product list search name want 1 got total=%d len=%d", total, len(rows))
	}

	// ILIKE 路径，大小写无关匹配描述
	rows, total, err = productRepo.List(ProductListFilter{Page: 1, Search: "ROCKET"})
	if err != nil {
		t.Fatalf("product list search upper case failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("product list search upper case want 1 got total=%d len=%d", total, len(rows))
	}
}

func TestPostgresCardKeyConditionalWrites(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	category := &models.Category{
		Slug: "pg-card-category",
		Name: "卡密分类",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}

	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        "pg-card-product",
		Name:        "卡密商品",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(120)),
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	repo := NewCardKeyRepository(db)
	keys := []models.CardKey{
		{ProductID: product.ID, Code: "PG-KEY-1"},
		{ProductID: product.ID, Code: "PG-KEY-1"},
		{ProductID: product.ID, Code: "PG-KEY-2"},
	}
	if err := repo.CreateBatch(keys); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	total, available, used, err := repo.CountByProduct(product.ID)
	if err != nil {
		t.Fatalf("count by product failed: %v", err)
	}
	if total != 3 || available != 3 || used != 0 {
		t.Fatalf("counts want 3/3/0 got %d/%d/%d", total, available, used)
	}

	reserved, err := repo.ReserveNext(product.ID, "pg-token", now)
	if err != nil {
		t.Fatalf("reserve next failed: %v", err)
	}
	if reserved == nil || reserved.Code != "PG-KEY-1" {
		t.Fatalf("reserve want PG-KEY-1 got %+v", reserved)
	}

	affected, err := repo.CompleteByToken("pg-token", now)
	if err != nil {
		t.Fatalf("complete by token failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("complete affected want 1 got %d", affected)
	}

	deleted, err := repo.DeleteDeletableByProduct(product.ID, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("delete deletable failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted want 2 got %d", deleted)
	}

	remaining, _, usedLeft, err := repo.CountByProduct(product.ID)
	if err != nil {
		t.Fatalf("count remaining failed: %v", err)
	}
	if remaining != 1 || usedLeft != 1 {
		t.Fatalf("remaining want 1 used row got total=%d used=%d", remaining, usedLeft)
	}
}
