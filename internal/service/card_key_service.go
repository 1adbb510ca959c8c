package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/kamishop/internal/authz"
	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/ingest"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/repository"
)

// CardKeyService 卡密库存服务。
// 全部写操作先过白名单鉴权再触达存储；写成功后广播视图失效。
type CardKeyService struct {
	allowList   *authz.AllowList
	cardRepo    repository.CardKeyRepository
	productRepo repository.ProductRepository
}

// NewCardKeyService 创建卡密库存服务
func NewCardKeyService(allowList *authz.AllowList, cardRepo repository.CardKeyRepository, productRepo repository.ProductRepository) *CardKeyService {
	return &CardKeyService{
		allowList:   allowList,
		cardRepo:    cardRepo,
		productRepo: productRepo,
	}
}

// authorize 白名单成员判定，必须先于任何存储访问执行
func (s *CardKeyService) authorize(operator string) error {
	if !s.allowList.Allowed(operator) {
		return ErrUnauthorized
	}
	return nil
}

// sanitizeKeys 去除首尾空白并丢弃空项；不去重
func sanitizeKeys(keys []string) []string {
	result := make([]string, 0, len(keys))
	for _, key := range keys {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

// AddCardsBatch 为商品批量写入一批卡密，返回实际写入数量。
// 清洗后为空时直接返回零，不触达存储。
// 不与已有行做重复比对，重复上传同一份文件会让库存翻倍，这是既定行为。
func (s *CardKeyService) AddCardsBatch(ctx context.Context, operator, productID string, keys []string) (int, error) {
	if err := s.authorize(operator); err != nil {
		return 0, err
	}

	sanitized := sanitizeKeys(keys)
	if len(sanitized) == 0 {
		return 0, nil
	}

	product, err := s.productRepo.GetByID(strings.TrimSpace(productID))
	if err != nil {
		return 0, err
	}
	if product == nil {
		return 0, ErrNotFound
	}

	// 旧 schema 在 (product_id, code) 上建过唯一索引，与重复容忍策略冲突，写入前尽力移除
	s.cardRepo.DropLegacyUniqueIndex()

	now := time.Now()
	items := make([]models.CardKey, 0, len(sanitized))
	for _, code := range sanitized {
		items = append(items, models.CardKey{
			ProductID: product.ID,
			Code:      code,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := s.cardRepo.CreateBatch(items); err != nil {
		return 0, err
	}

	s.invalidateViews(ctx, product.ID)
	return len(sanitized), nil
}

// DeleteCard 删除单条卡密。
// 已使用或预留仍在宽限期内的卡密拒绝删除，避免与进行中的兑换冲突。
func (s *CardKeyService) DeleteCard(ctx context.Context, operator string, cardID uint) error {
	if err := s.authorize(operator); err != nil {
		return err
	}

	key, err := s.cardRepo.GetByID(cardID)
	if err != nil {
		return err
	}
	if key == nil {
		return ErrNotFound
	}
	if key.Used {
		return ErrCardKeyUsed
	}
	if key.ReservedAt != nil && key.ReservedAt.After(time.Now().Add(-constants.CardKeyReservationWindow)) {
		return ErrCardKeyReserved
	}

	affected, err := s.cardRepo.DeleteByID(cardID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.invalidateViews(ctx, key.ProductID)
	return nil
}

// DeleteAllCards 清空商品下可安全删除的卡密，返回删除行数。
// 已使用以及预留仍在宽限期内的行保留；删除由仓库层的单条条件语句完成。
func (s *CardKeyService) DeleteAllCards(ctx context.Context, operator, productID string) (int64, error) {
	if err := s.authorize(operator); err != nil {
		return 0, err
	}

	product, err := s.productRepo.GetByID(strings.TrimSpace(productID))
	if err != nil {
		return 0, err
	}
	if product == nil {
		return 0, ErrNotFound
	}

	cutoff := time.Now().Add(-constants.CardKeyReservationWindow)
	deleted, err := s.cardRepo.DeleteDeletableByProduct(product.ID, cutoff)
	if err != nil {
		return 0, err
	}

	s.invalidateViews(ctx, product.ID)
	return deleted, nil
}

// ListCardKeysInput 卡密列表查询输入
type ListCardKeysInput struct {
	ProductID string
	Used      *bool
	Page      int
	PageSize  int
}

// ListCardKeys 分页获取商品卡密
func (s *CardKeyService) ListCardKeys(input ListCardKeysInput) ([]models.CardKey, int64, error) {
	product, err := s.productRepo.GetByID(strings.TrimSpace(input.ProductID))
	if err != nil {
		return nil, 0, err
	}
	if product == nil {
		return nil, 0, ErrNotFound
	}
	return s.cardRepo.ListByProduct(product.ID, input.Used, input.Page, input.PageSize)
}

// CardKeyStats 卡密库存统计
type CardKeyStats struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Used      int64 `json:"used"`
}

// GetStats 获取商品库存统计
func (s *CardKeyService) GetStats(productID string) (*CardKeyStats, error) {
	product, err := s.productRepo.GetByID(strings.TrimSpace(productID))
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	total, available, used, err := s.cardRepo.CountByProduct(product.ID)
	if err != nil {
		return nil, err
	}
	reserved := total - available - used
	if reserved < 0 {
		reserved = 0
	}
	return &CardKeyStats{
		Total:     total,
		Available: available,
		Reserved:  reserved,
		Used:      used,
	}, nil
}

// ImportCardKeyTextInput 文本文件导入输入
type ImportCardKeyTextInput struct {
	Operator  string
	ProductID string
	File      *multipart.FileHeader
}

// ImportText 从上传的文本文件导入卡密。
// 文件按行拆分（卡密内的逗号等分隔符原样保留），清洗后为空时报告无卡密。
func (s *CardKeyService) ImportText(ctx context.Context, input ImportCardKeyTextInput) (int, error) {
	if err := s.authorize(input.Operator); err != nil {
		return 0, err
	}
	if input.File == nil {
		return 0, ErrNoCards
	}

	file, err := input.File.Open()
	if err != nil {
		return 0, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return 0, fmt.Errorf("读取上传文件失败: %w", err)
	}

	keys := ingest.Normalize(string(raw))
	if len(keys) == 0 {
		return 0, ErrNoCards
	}
	return s.AddCardsBatch(ctx, input.Operator, input.ProductID, keys)
}

// ExportCardKeysInput 卡密导出输入
type ExportCardKeysInput struct {
	ProductID string
	Format    string // txt / csv
}

// ExportUnused 导出商品下全部未使用卡密，返回文件内容与建议文件名。
func (s *CardKeyService) ExportUnused(input ExportCardKeysInput) ([]byte, string, error) {
	product, err := s.productRepo.GetByID(strings.TrimSpace(input.ProductID))
	if err != nil {
		return nil, "", err
	}
	if product == nil {
		return nil, "", ErrNotFound
	}

	unused := false
	items, _, err := s.cardRepo.ListByProduct(product.ID, &unused, 0, 0)
	if err != nil {
		return nil, "", err
	}

	timestamp := time.Now().Format("20060102150405")
	format := strings.ToLower(strings.TrimSpace(input.Format))
	switch format {
	case constants.ExportFormatCSV:
		var buf bytes.Buffer
		writer := csv.NewWriter(&buf)
		if err := writer.Write([]string{"code", "created_at"}); err != nil {
			return nil, "", err
		}
		for _, item := range items {
			if err := writer.Write([]string{item.Code, item.CreatedAt.Format(time.RFC3339)}); err != nil {
				return nil, "", err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), fmt.Sprintf("card-keys-%s-%s.csv", product.Slug, timestamp), nil
	case "", constants.ExportFormatTXT:
		var builder strings.Builder
		for _, item := range items {
			builder.WriteString(item.Code)
			builder.WriteByte('\n')
		}
		return []byte(builder.String()), fmt.Sprintf("card-keys-%s-%s.txt", product.Slug, timestamp), nil
	default:
		return nil, "", ErrExportFormatInvalid
	}
}

func (s *CardKeyService) invalidateViews(ctx context.Context, productID uint) {
	id := strconv.FormatUint(uint64(productID), 10)
	if err := cache.InvalidateProductViews(ctx, id); err != nil {
		logger.Warnw("card_key_invalidate_views_failed", "product_id", id, "error", err)
	}
}
