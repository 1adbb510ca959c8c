package repository

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/kamishop/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductRepositoryTest(t *testing.T) (*GormProductRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate product models failed: %v", err)
	}
	return NewProductRepository(db), db
}

func createProductCategory(t *testing.T, db *gorm.DB, slug, name string) *models.Category {
	t.Helper()
	category := &models.Category{Slug: slug, Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	return category
}

func TestProductCreateAndGetBySlug(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	category := createProductCategory(t, db, "game-cards", "游戏点卡")

	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        "steam-wallet-50",
		Name:        "Steam 充值卡 50 元",
		Description: "自动发货，充值秒到",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		IsActive:    true,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	loaded, err := repo.GetBySlug("steam-wallet-50", true)
	if err != nil {
		t.Fatalf("get by slug failed: %v", err)
	}
	if loaded == nil {
		t.Fatalf("get by slug want product got nil")
	}
	if loaded.Name != "Steam 充值卡 50 元" {
		t.Fatalf("name want Steam 充值卡 50 元 got %s", loaded.Name)
	}
	if loaded.Category.Slug != "game-cards" {
		t.Fatalf("category slug want game-cards got %s", loaded.Category.Slug)
	}

	missing, err := repo.GetBySlug("not-exist", true)
	if err != nil {
		t.Fatalf("get missing slug failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("get missing slug want nil got %+v", missing)
	}
}

func TestProductGetBySlugOnlyActive(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	category := createProductCategory(t, db, "memberships", "会员充值")

	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        "offline-product",
		Name:        "已下架商品",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(30)),
		IsActive:    false,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	hidden, err := repo.GetBySlug("offline-product", true)
	if err != nil {
		t.Fatalf("get active-only failed: %v", err)
	}
	if hidden != nil {
		t.Fatalf("inactive product should be hidden from storefront, got %+v", hidden)
	}

	visible, err := repo.GetBySlug("offline-product", false)
	if err != nil {
		t.Fatalf("get for admin failed: %v", err)
	}
	if visible == nil {
		t.Fatalf("inactive product should stay visible for admin")
	}
}

func TestProductListFiltersAndSearch(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	first := createProductCategory(t, db, "cards", "点卡")
	second := createProductCategory(t, db, "vip", "会员")

	fixtures := []models.Product{
		{CategoryID: first.ID, Slug: "netflix-card", Name: "奈飞礼品卡", PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), IsActive: true},
		{CategoryID: first.ID, Slug: "itunes-card", Name: "苹果礼品卡", PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(200)), IsActive: false},
		{CategoryID: second.ID, Slug: "music-vip", Name: "音乐会员月卡", PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(15)), IsActive: true},
	}
	for idx := range fixtures {
		if err := repo.Create(&fixtures[idx]); err != nil {
			t.Fatalf("create fixture %d failed: %v", idx, err)
		}
	}

	active, activeTotal, err := repo.List(ProductListFilter{Page: 1, PageSize: 10, OnlyActive: true})
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if activeTotal != 2 || len(active) != 2 {
		t.Fatalf("active list want 2 got total=%d len=%d", activeTotal, len(active))
	}

	byCategory, categoryTotal, err := repo.List(ProductListFilter{Page: 1, PageSize: 10, CategoryID: strconv.FormatUint(uint64(first.ID), 10)})
	if err != nil {
		t.Fatalf("list by category failed: %v", err)
	}
	if categoryTotal != 2 || len(byCategory) != 2 {
		t.Fatalf("category list want 2 got total=%d len=%d", categoryTotal, len(byCategory))
	}

	searched, searchTotal, err := repo.List(ProductListFilter{Page: 1, PageSize: 10, Search: "礼品卡"})
	if err != nil {
		t.Fatalf("list search failed: %v", err)
	}
	if searchTotal != 2 || len(searched) != 2 {
		t.Fatalf("search list want 2 got total=%d len=%d", searchTotal, len(searched))
	}

	slugSearched, slugTotal, err := repo.List(ProductListFilter{Page: 1, PageSize: 10, Search: "music-vip"})
	if err != nil {
		t.Fatalf("list slug search failed: %v", err)
	}
	if slugTotal != 1 || len(slugSearched) != 1 {
		t.Fatalf("slug search want 1 got total=%d len=%d", slugTotal, len(slugSearched))
	}
}

func TestProductCountBySlugExcludesSelf(t *testing.T) {
	repo, db := setupProductRepositoryTest(t)
	category := createProductCategory(t, db, "tools", "工具软件")

	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        "vpn-monthly",
		Name:        "加速器月卡",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(25)),
		IsActive:    true,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	count, err := repo.CountBySlug("vpn-monthly", nil)
	if err != nil {
		t.Fatalf("count by slug failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count want 1 got %d", count)
	}

	selfID := strconv.FormatUint(uint64(product.ID), 10)
	count, err = repo.CountBySlug("vpn-monthly", &selfID)
	if err != nil {
		t.Fatalf("count excluding self failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("count excluding self want 0 got %d", count)
	}
}
