package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCategoryServiceTest(t *testing.T) (*CategoryService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:category_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	return NewCategoryService(repository.NewCategoryRepository(db)), db
}

func TestCreateCategoryValidatesNameAndSlug(t *testing.T) {
	svc, _ := setupCategoryServiceTest(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CategoryInput{Slug: "games", Name: "  "}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("blank name want ErrNameRequired got %v", err)
	}

	if _, err := svc.Create(ctx, CategoryInput{Slug: "games", Name: "游戏充值"}); err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	if _, err := svc.Create(ctx, CategoryInput{Slug: "games", Name: "重复分类"}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("duplicate slug want ErrSlugExists got %v", err)
	}
}

func TestUpdateCategoryKeepsOwnSlug(t *testing.T) {
	svc, _ := setupCategoryServiceTest(t)
	ctx := context.Background()

	category, err := svc.Create(ctx, CategoryInput{Slug: "games", Name: "游戏充值"})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	id := strconv.FormatUint(uint64(category.ID), 10)

	updated, err := svc.Update(ctx, id, CategoryInput{Slug: "games", Name: "游戏点卡", SortOrder: 5})
	if err != nil {
		t.Fatalf("update category failed: %v", err)
	}
	if updated.Name != "游戏点卡" || updated.SortOrder != 5 {
		t.Fatalf("updated category unexpected: %+v", updated)
	}

	if _, err := svc.Update(ctx, "99999", CategoryInput{Slug: "x", Name: "任意"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing category want ErrNotFound got %v", err)
	}
}

func TestDeleteCategoryBlockedWhileProductsRemain(t *testing.T) {
	svc, db := setupCategoryServiceTest(t)
	ctx := context.Background()

	category, err := svc.Create(ctx, CategoryInput{Slug: "games", Name: "游戏充值"})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	id := strconv.FormatUint(uint64(category.ID), 10)

	product := models.Product{
		CategoryID:  category.ID,
		Slug:        "steam-card",
		Name:        "Steam 充值卡",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		IsActive:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	if err := svc.Delete(ctx, id); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("category with products want ErrCategoryInUse got %v", err)
	}

	if err := db.Delete(&product).Error; err != nil {
		t.Fatalf("remove product failed: %v", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("delete category failed: %v", err)
	}
	if err := svc.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete want ErrNotFound got %v", err)
	}
}
