package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kamishop/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCardKeyRepositoryTest(t *testing.T) (*GormCardKeyRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}, &models.CardKey{}); err != nil {
		t.Fatalf("migrate card key models failed: %v", err)
	}
	return NewCardKeyRepository(db), db
}

func createCardKeyProduct(t *testing.T, db *gorm.DB, slug string) *models.Product {
	t.Helper()
	category := &models.Category{Slug: slug + "-category", Name: "测试分类"}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        slug,
		Name:        "测试商品",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestCreateBatchKeepsDuplicateCodes(t *testing.T) {
	repo, db := setupCardKeyRepositoryTest(t)
	product := createCardKeyProduct(t, db, "dup-codes")

	items := []models.CardKey{
		{ProductID: product.ID, Code: "ABCD-1111"},
		{ProductID: product.ID, Code: "ABCD-1111"},
		{ProductID: product.ID, Code: "ABCD-2222"},
	}
	if err := repo.CreateBatch(items); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.CardKey{}).Where("product_id = ? AND code = ?", product.ID, "ABCD-1111").Count(&count).Error; err != nil {
		t.Fatalf("count duplicate codes failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("duplicate code rows want 2 got %d", count)
	}

	total, available, used, err := repo.CountByProduct(product.ID)
	if err != nil {
		t.Fatalf("count by product failed: %v", err)
	}
	if total != 3 || available != 3 || used != 0 {
		t.Fatalf("counts want 3/3/0 got %d/%d/%d", total, available, used)
	}
}

func TestDeleteDeletableByProductSkipsUsedRows(t *testing.T) {
	repo, db := setupCardKeyRepositoryTest(t)
	product := createCardKeyProduct(t, db, "bulk-delete")
	now := time.Now()

	for i := 0; i < 3; i++ {
		key := &models.CardKey{ProductID: product.ID, Code: fmt.Sprintf("FREE-%d", i)}
		if err := db.Create(key).Error; err != nil {
			t.Fatalf("create unused key failed: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		key := &models.CardKey{ProductID: product.ID, Code: fmt.Sprintf("SOLD-%d", i), Used: true, UsedAt: &now}
		if err := db.Create(key).Error; err != nil {
			t.Fatalf("create used key failed: %v", err)
		}
	}

	deleted, err := repo.DeleteDeletableByProduct(product.ID, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("delete deletable failed: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted want 3 got %d", deleted)
	}

	var remaining int64
	if err := db.Model(&models.CardKey{}).Where("product_id = ?", product.ID).Count(&remaining).Error; err != nil {
		t.Fatalf("count remaining failed: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("remaining want 2 got %d", remaining)
	}
	var usedLeft int64
	if err := db.Model(&models.CardKey{}).Where("product_id = ? AND used = ?", product.ID, true).Count(&usedLeft).Error; err != nil {
		t.Fatalf("count used remaining failed: %v", err)
	}
	if usedLeft != 2 {
		t.Fatalf("used remaining want 2 got %d", usedLeft)
	}
}

func TestDeleteDeletableByProductKeepsActiveReservations(t *testing.T) {
	repo, db := setupCardKeyRepositoryTest(t)
	product := createCardKeyProduct(t, db, "reserved-delete")
	now := time.Now()
	cutoff := now.Add(-time.Minute)

	fresh := now.Add(-30 * time.Second)
	stale := now.Add(-90 * time.Second)
	keys := []models.CardKey{
		{ProductID: product.ID, Code: "PLAIN-1"},
		{ProductID: product.ID, Code: "FRESH-1", ReservedAt: &fresh, ReservationToken: "tok-fresh"},
		{ProductID: product.ID, Code: "STALE-1", ReservedAt: &stale, ReservationToken: "tok-stale"},
	}
	if err := repo.CreateBatch(keys); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	deleted, err := repo.DeleteDeletableByProduct(product.ID, cutoff)
	if err != nil {
		t.Fatalf("delete deletable failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted want 2 got %d", deleted)
	}

	var survivors []models.CardKey
	if err := db.Where("product_id = ?", product.ID).Find(&survivors).Error; err != nil {
		t.Fatalf("load survivors failed: %v", err)
	}
	if len(survivors) != 1 || survivors[0].Code != "FRESH-1" {
		t.Fatalf("survivor want FRESH-1 got %+v", survivors)
	}
}

func TestReserveNextPicksOldestAndCompleteMarksUsed(t *testing.T) {
	repo, db := setupCardKeyRepositoryTest(t)
	product := createCardKeyProduct(t, db, "reserve-flow")
	now := time.Now()

	keys := []models.CardKey{
		{ProductID: product.ID, Code: "FIRST-KEY"},
		{ProductID: product.ID, Code: "SECOND-KEY"},
	}
	if err := repo.CreateBatch(keys); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	first, err := repo.ReserveNext(product.ID, "tok-1", now)
	if err != nil {
		t.Fatalf("reserve first failed: %v", err)
	}
	if first == nil || first.Code != "FIRST-KEY" {
		t.Fatalf("first reserve want FIRST-KEY got %+v", first)
	}

	second, err := repo.ReserveNext(product.ID, "tok-2", now)
	if err != nil {
		t.Fatalf("reserve second failed: %v", err)
	}
	if second == nil || second.Code != "SECOND-KEY" {
		t.Fatalf("second reserve want SECOND-KEY got %+v", second)
	}

	third, err := repo.ReserveNext(product.ID, "tok-3", now)
	if err != nil {
		t.Fatalf("reserve on empty stock failed: %v", err)
	}
	if third != nil {
		t.Fatalf("reserve on empty stock want nil got %+v", third)
	}

	affected, err := repo.CompleteByToken("tok-1", now)
	if err != nil {
		t.Fatalf("complete by token failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("complete affected want 1 got %d", affected)
	}

	completed, err := repo.GetByID(first.ID)
	if err != nil {
		t.Fatalf("get completed key failed: %v", err)
	}
	if completed == nil || !completed.Used || completed.ReservedAt != nil || completed.ReservationToken != "" {
		t.Fatalf("completed key state unexpected: %+v", completed)
	}

	again, err := repo.CompleteByToken("tok-1", now)
	if err != nil {
		t.Fatalf("repeat complete failed: %v", err)
	}
	if again != 0 {
		t.Fatalf("repeat complete affected want 0 got %d", again)
	}
}

func TestReleaseStaleClearsExpiredReservations(t *testing.T) {
	repo, db := setupCardKeyRepositoryTest(t)
	product := createCardKeyProduct(t, db, "release-stale")
	now := time.Now()

	fresh := now.Add(-10 * time.Second)
	stale := now.Add(-2 * time.Minute)
	keys := []models.CardKey{
		{ProductID: product.ID, Code: "KEEP-1", ReservedAt: &fresh, ReservationToken: "tok-keep"},
		{ProductID: product.ID, Code: "DROP-1", ReservedAt: &stale, ReservationToken: "tok-drop"},
	}
	if err := repo.CreateBatch(keys); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	released, err := repo.ReleaseStale(now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("release stale failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("released want 1 got %d", released)
	}

	var freed models.CardKey
	if err := db.Where("code = ?", "DROP-1").First(&freed).Error; err != nil {
		t.Fatalf("load freed key failed: %v", err)
	}
	if freed.ReservedAt != nil || freed.ReservationToken != "" {
		t.Fatalf("freed key still reserved: %+v", freed)
	}

	var kept models.CardKey
	if err := db.Where("code = ?", "KEEP-1").First(&kept).Error; err != nil {
		t.Fatalf("load kept key failed: %v", err)
	}
	if kept.ReservedAt == nil || kept.ReservationToken != "tok-keep" {
		t.Fatalf("kept key lost reservation: %+v", kept)
	}
}

func TestListByProductFiltersUsed(t *testing.T) {
	repo, db := setupCardKeyRepositoryTest(t)
	product := createCardKeyProduct(t, db, "list-filter")
	now := time.Now()

	keys := []models.CardKey{
		{ProductID: product.ID, Code: "LIST-1"},
		{ProductID: product.ID, Code: "LIST-2", Used: true, UsedAt: &now},
		{ProductID: product.ID, Code: "LIST-3"},
	}
	if err := repo.CreateBatch(keys); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	unused := false
	items, total, err := repo.ListByProduct(product.ID, &unused, 1, 10)
	if err != nil {
		t.Fatalf("list by product failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("total want 2 got %d", total)
	}
	if len(items) != 2 || items[0].Code != "LIST-1" || items[1].Code != "LIST-3" {
		t.Fatalf("items unexpected: %+v", items)
	}

	all, allTotal, err := repo.ListByProduct(product.ID, nil, 1, 10)
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if allTotal != 3 || len(all) != 3 {
		t.Fatalf("all want 3 got total %d len %d", allTotal, len(all))
	}
}

func TestCountStockByProductIDsGroupsCounts(t *testing.T) {
	repo, db := setupCardKeyRepositoryTest(t)
	first := createCardKeyProduct(t, db, "stock-first")
	second := createCardKeyProduct(t, db, "stock-second")
	now := time.Now()
	reservedAt := now.Add(-10 * time.Second)

	fixtures := []models.CardKey{
		{ProductID: first.ID, Code: "F-1"},
		{ProductID: first.ID, Code: "F-2"},
		{ProductID: first.ID, Code: "F-3", ReservedAt: &reservedAt, ReservationToken: "tok-f"},
		{ProductID: first.ID, Code: "F-4", Used: true, UsedAt: &now},
		{ProductID: second.ID, Code: "S-1"},
	}
	for idx := range fixtures {
		if err := db.Create(&fixtures[idx]).Error; err != nil {
			t.Fatalf("create fixture %d failed: %v", idx, err)
		}
	}

	counts, err := repo.CountStockByProductIDs([]uint{first.ID, second.ID, 99999})
	if err != nil {
		t.Fatalf("count stock failed: %v", err)
	}
	if got := counts[first.ID]; got.Total != 4 || got.Available != 2 || got.Used != 1 {
		t.Fatalf("first counts want 4/2/1 got %d/%d/%d", got.Total, got.Available, got.Used)
	}
	if got := counts[second.ID]; got.Total != 1 || got.Available != 1 || got.Used != 0 {
		t.Fatalf("second counts want 1/1/0 got %d/%d/%d", got.Total, got.Available, got.Used)
	}
	if _, ok := counts[99999]; ok {
		t.Fatal("missing product should not appear in counts")
	}

	empty, err := repo.CountStockByProductIDs(nil)
	if err != nil {
		t.Fatalf("empty ids failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("empty ids want empty map got %v", empty)
	}
}
