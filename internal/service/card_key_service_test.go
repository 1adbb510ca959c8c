package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kamishop/internal/authz"
	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCardKeyServiceTest(t *testing.T) (*CardKeyService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:card_key_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.CardKey{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	allowList := authz.ParseAllowList("admin, OPS")
	svc := NewCardKeyService(allowList, repository.NewCardKeyRepository(db), repository.NewProductRepository(db))
	return svc, db
}

func seedCardKeyProduct(t *testing.T, db *gorm.DB, slug string) (*models.Product, string) {
	t.Helper()
	category := models.Category{Slug: slug + "-category", Name: "测试分类"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := models.Product{
		CategoryID:  category.ID,
		Slug:        slug,
		Name:        "测试商品",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		IsActive:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return &product, strconv.FormatUint(uint64(product.ID), 10)
}

func countCardKeys(t *testing.T, db *gorm.DB, productID uint) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.CardKey{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		t.Fatalf("count card keys failed: %v", err)
	}
	return count
}

func TestAddCardsBatchSanitizesAndCounts(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "sanitize-batch")

	success, err := svc.AddCardsBatch(context.Background(), "admin", pid, []string{" a ", "", "b\t", "   "})
	if err != nil {
		t.Fatalf("add cards batch failed: %v", err)
	}
	if success != 2 {
		t.Fatalf("success want 2 got %d", success)
	}

	var rows []models.CardKey
	if err := db.Where("product_id = ?", product.ID).Order("id asc").Find(&rows).Error; err != nil {
		t.Fatalf("load rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows want 2 got %d", len(rows))
	}
	if rows[0].Code != "a" || rows[1].Code != "b" {
		t.Fatalf("codes want [a b] got [%s %s]", rows[0].Code, rows[1].Code)
	}
	for idx, row := range rows {
		if row.Used {
			t.Fatalf("rows[%d] should start unused", idx)
		}
		if row.ReservedAt != nil {
			t.Fatalf("rows[%d] should start unreserved", idx)
		}
	}
}

func TestAddCardsBatchKeepsDuplicatesOnReupload(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "double-upload")

	keys := []string{"CODE-1", "CODE-2", "CODE-2"}
	for round := 1; round <= 2; round++ {
		success, err := svc.AddCardsBatch(context.Background(), "admin", pid, keys)
		if err != nil {
			t.Fatalf("round %d failed: %v", round, err)
		}
		if success != 3 {
			t.Fatalf("round %d success want 3 got %d", round, success)
		}
	}

	if count := countCardKeys(t, db, product.ID); count != 6 {
		t.Fatalf("rows after double upload want 6 got %d", count)
	}
}

func TestAddCardsBatchEmptyListTouchesNothing(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "empty-batch")

	success, err := svc.AddCardsBatch(context.Background(), "admin", pid, []string{"", "   ", "\t"})
	if err != nil {
		t.Fatalf("empty batch should not fail: %v", err)
	}
	if success != 0 {
		t.Fatalf("empty batch success want 0 got %d", success)
	}
	if count := countCardKeys(t, db, product.ID); count != 0 {
		t.Fatalf("empty batch should not create rows, got %d", count)
	}
}

func TestAddCardsBatchRejectsUnknownOperator(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "authz-batch")

	_, err := svc.AddCardsBatch(context.Background(), "mallory", pid, []string{"CODE-1"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown operator want ErrUnauthorized got %v", err)
	}
	if count := countCardKeys(t, db, product.ID); count != 0 {
		t.Fatalf("unauthorized call must not touch storage, rows got %d", count)
	}

	// 白名单比较忽略大小写
	success, err := svc.AddCardsBatch(context.Background(), "ADMIN", pid, []string{"CODE-1"})
	if err != nil {
		t.Fatalf("upper case operator failed: %v", err)
	}
	if success != 1 {
		t.Fatalf("upper case operator success want 1 got %d", success)
	}
}

func TestAddCardsBatchMissingProduct(t *testing.T) {
	svc, _ := setupCardKeyServiceTest(t)

	_, err := svc.AddCardsBatch(context.Background(), "admin", "99999", []string{"CODE-1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing product want ErrNotFound got %v", err)
	}
}

func TestDeleteCardGuards(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, _ := seedCardKeyProduct(t, db, "delete-guards")
	now := time.Now()

	usedAt := now.Add(-time.Hour)
	used := models.CardKey{ProductID: product.ID, Code: "USED-KEY", Used: true, UsedAt: &usedAt}
	if err := db.Create(&used).Error; err != nil {
		t.Fatalf("create used key failed: %v", err)
	}

	fresh := now.Add(-30 * time.Second)
	reserved := models.CardKey{ProductID: product.ID, Code: "FRESH-KEY", ReservedAt: &fresh, ReservationToken: "tok-1"}
	if err := db.Create(&reserved).Error; err != nil {
		t.Fatalf("create reserved key failed: %v", err)
	}

	stale := now.Add(-90 * time.Second)
	expired := models.CardKey{ProductID: product.ID, Code: "STALE-KEY", ReservedAt: &stale, ReservationToken: "tok-2"}
	if err := db.Create(&expired).Error; err != nil {
		t.Fatalf("create stale key failed: %v", err)
	}

	ctx := context.Background()
	if err := svc.DeleteCard(ctx, "admin", used.ID); !errors.Is(err, ErrCardKeyUsed) {
		t.Fatalf("used key want ErrCardKeyUsed got %v", err)
	}
	if count := countCardKeys(t, db, product.ID); count != 3 {
		t.Fatalf("used key must stay intact, rows want 3 got %d", count)
	}

	if err := svc.DeleteCard(ctx, "admin", reserved.ID); !errors.Is(err, ErrCardKeyReserved) {
		t.Fatalf("fresh reservation want ErrCardKeyReserved got %v", err)
	}

	if err := svc.DeleteCard(ctx, "admin", expired.ID); err != nil {
		t.Fatalf("stale reservation should be deletable: %v", err)
	}
	if count := countCardKeys(t, db, product.ID); count != 2 {
		t.Fatalf("rows after stale delete want 2 got %d", count)
	}

	if err := svc.DeleteCard(ctx, "admin", 99999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key want ErrNotFound got %v", err)
	}
}

func TestDeleteAllCardsRemovesOnlyDeletable(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "clear-all")
	now := time.Now()

	for i := 0; i < 3; i++ {
		key := models.CardKey{ProductID: product.ID, Code: fmt.Sprintf("FREE-%d", i)}
		if err := db.Create(&key).Error; err != nil {
			t.Fatalf("create unused key failed: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		key := models.CardKey{ProductID: product.ID, Code: fmt.Sprintf("SOLD-%d", i), Used: true, UsedAt: &now}
		if err := db.Create(&key).Error; err != nil {
			t.Fatalf("create used key failed: %v", err)
		}
	}

	deleted, err := svc.DeleteAllCards(context.Background(), "admin", pid)
	if err != nil {
		t.Fatalf("delete all cards failed: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted want 3 got %d", deleted)
	}

	var remaining []models.CardKey
	if err := db.Where("product_id = ?", product.ID).Find(&remaining).Error; err != nil {
		t.Fatalf("load remaining failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining want 2 got %d", len(remaining))
	}
	for _, key := range remaining {
		if !key.Used {
			t.Fatalf("remaining key %s should be used", key.Code)
		}
	}
}

func TestDeleteAllCardsUnauthorizedLeavesStorageUntouched(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "clear-authz")

	for i := 0; i < 3; i++ {
		key := models.CardKey{ProductID: product.ID, Code: fmt.Sprintf("KEEP-%d", i)}
		if err := db.Create(&key).Error; err != nil {
			t.Fatalf("create key failed: %v", err)
		}
	}

	_, err := svc.DeleteAllCards(context.Background(), "guest", pid)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unauthorized want ErrUnauthorized got %v", err)
	}
	if count := countCardKeys(t, db, product.ID); count != 3 {
		t.Fatalf("unauthorized call must not delete rows, want 3 got %d", count)
	}
}

func TestGetStatsSplitsCounts(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "stats")
	now := time.Now()

	reservedAt := now.Add(-10 * time.Second)
	fixtures := []models.CardKey{
		{ProductID: product.ID, Code: "A-1"},
		{ProductID: product.ID, Code: "A-2"},
		{ProductID: product.ID, Code: "R-1", ReservedAt: &reservedAt, ReservationToken: "tok"},
		{ProductID: product.ID, Code: "U-1", Used: true, UsedAt: &now},
	}
	for idx := range fixtures {
		if err := db.Create(&fixtures[idx]).Error; err != nil {
			t.Fatalf("create fixture %d failed: %v", idx, err)
		}
	}

	stats, err := svc.GetStats(pid)
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	if stats.Total != 4 || stats.Available != 2 || stats.Reserved != 1 || stats.Used != 1 {
		t.Fatalf("stats want 4/2/1/1 got %d/%d/%d/%d", stats.Total, stats.Available, stats.Reserved, stats.Used)
	}
}

func buildUploadTxt(t *testing.T, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "cards.txt")
	if err != nil {
		t.Fatalf("create form file failed: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer failed: %v", err)
	}

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read multipart form failed: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	files := form.File["file"]
	if len(files) != 1 {
		t.Fatalf("form files want 1 got %d", len(files))
	}
	return files[0]
}

func TestImportTextSplitsOnNewlineOnly(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "import-txt")

	file := buildUploadTxt(t, "AAAA,BBBB-1111\n\n  CCCC-2222  \n")
	success, err := svc.ImportText(context.Background(), ImportCardKeyTextInput{
		Operator:  "ops",
		ProductID: pid,
		File:      file,
	})
	if err != nil {
		t.Fatalf("import text failed: %v", err)
	}
	if success != 2 {
		t.Fatalf("import success want 2 got %d", success)
	}

	var rows []models.CardKey
	if err := db.Where("product_id = ?", product.ID).Order("id asc").Find(&rows).Error; err != nil {
		t.Fatalf("load rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows want 2 got %d", len(rows))
	}
	if rows[0].Code != "AAAA,BBBB-1111" {
		t.Fatalf("comma inside key must survive, got %s", rows[0].Code)
	}
	if rows[1].Code != "CCCC-2222" {
		t.Fatalf("rows[1] want CCCC-2222 got %s", rows[1].Code)
	}
}

func TestImportTextRejectsEmptyContent(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "import-empty")

	_, err := svc.ImportText(context.Background(), ImportCardKeyTextInput{
		Operator:  "admin",
		ProductID: pid,
		File:      nil,
	})
	if !errors.Is(err, ErrNoCards) {
		t.Fatalf("nil file want ErrNoCards got %v", err)
	}

	blank := buildUploadTxt(t, "\n   \n\t\n")
	_, err = svc.ImportText(context.Background(), ImportCardKeyTextInput{
		Operator:  "admin",
		ProductID: pid,
		File:      blank,
	})
	if !errors.Is(err, ErrNoCards) {
		t.Fatalf("blank file want ErrNoCards got %v", err)
	}
	if count := countCardKeys(t, db, product.ID); count != 0 {
		t.Fatalf("blank import must not create rows, got %d", count)
	}
}

func TestExportUnusedFormats(t *testing.T) {
	svc, db := setupCardKeyServiceTest(t)
	product, pid := seedCardKeyProduct(t, db, "export")
	now := time.Now()

	fixtures := []models.CardKey{
		{ProductID: product.ID, Code: "EXP-1"},
		{ProductID: product.ID, Code: "EXP-2,WITH-COMMA"},
		{ProductID: product.ID, Code: "EXP-USED", Used: true, UsedAt: &now},
	}
	for idx := range fixtures {
		if err := db.Create(&fixtures[idx]).Error; err != nil {
			t.Fatalf("create fixture %d failed: %v", idx, err)
		}
	}

	txt, txtName, err := svc.ExportUnused(ExportCardKeysInput{ProductID: pid, Format: "txt"})
	if err != nil {
		t.Fatalf("export txt failed: %v", err)
	}
	if !strings.HasSuffix(txtName, ".txt") {
		t.Fatalf("txt filename want .txt suffix got %s", txtName)
	}
	lines := strings.Split(strings.TrimSpace(string(txt)), "\n")
	if len(lines) != 2 || lines[0] != "EXP-1" || lines[1] != "EXP-2,WITH-COMMA" {
		t.Fatalf("txt lines unexpected: %v", lines)
	}

	csvData, csvName, err := svc.ExportUnused(ExportCardKeysInput{ProductID: pid, Format: "csv"})
	if err != nil {
		t.Fatalf("export csv failed: %v", err)
	}
	if !strings.HasSuffix(csvName, ".csv") {
		t.Fatalf("csv filename want .csv suffix got %s", csvName)
	}
	records, err := csv.NewReader(bytes.NewReader(csvData)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("csv records want 3 got %d", len(records))
	}
	if records[0][0] != "code" {
		t.Fatalf("csv header want code got %s", records[0][0])
	}
	if records[2][0] != "EXP-2,WITH-COMMA" {
		t.Fatalf("csv must quote commas, row want EXP-2,WITH-COMMA got %s", records[2][0])
	}

	if _, _, err := svc.ExportUnused(ExportCardKeysInput{ProductID: pid, Format: "xlsx"}); !errors.Is(err, ErrExportFormatInvalid) {
		t.Fatalf("unknown format want ErrExportFormatInvalid got %v", err)
	}
}
