package repository

import (
	"errors"
	"time"

	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/models"

	"gorm.io/gorm"
)

// reserveNextMaxAttempts 预留抢占的条件更新重试次数
const reserveNextMaxAttempts = 3

// CardKeyRepository 卡密库存数据访问接口
type CardKeyRepository interface {
	CreateBatch(items []models.CardKey) error
	ListByProduct(productID uint, used *bool, page, pageSize int) ([]models.CardKey, int64, error)
	GetByID(id uint) (*models.CardKey, error)
	DeleteByID(id uint) (int64, error)
	DeleteDeletableByProduct(productID uint, cutoff time.Time) (int64, error)
	CountByProduct(productID uint) (total, available, used int64, err error)
	CountStockByProductIDs(productIDs []uint) (map[uint]StockCounts, error)
	ReserveNext(productID uint, token string, reservedAt time.Time) (*models.CardKey, error)
	GetByReservationToken(token string) (*models.CardKey, error)
	CompleteByToken(token string, usedAt time.Time) (int64, error)
	ReleaseByToken(token string) (int64, error)
	ReleaseStale(cutoff time.Time) (int64, error)
	DropLegacyUniqueIndex()
	WithTx(tx *gorm.DB) *GormCardKeyRepository
}

// GormCardKeyRepository GORM 实现
type GormCardKeyRepository struct {
	db *gorm.DB
}

// NewCardKeyRepository 创建卡密仓库
func NewCardKeyRepository(db *gorm.DB) *GormCardKeyRepository {
	return &GormCardKeyRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCardKeyRepository) WithTx(tx *gorm.DB) *GormCardKeyRepository {
	if tx == nil {
		return r
	}
	return &GormCardKeyRepository{db: tx}
}

// CreateBatch 批量写入卡密。
// 无论调用方一次传入多少条，这里都按绑定参数上限自行分片。
func (r *GormCardKeyRepository) CreateBatch(items []models.CardKey) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.CreateInBatches(&items, constants.CardKeyInsertChunkSize).Error
}

// DropLegacyUniqueIndex 写入前尽力移除旧 (product_id, code) 唯一索引，失败被吞掉
func (r *GormCardKeyRepository) DropLegacyUniqueIndex() {
	models.DropLegacyCardKeyIndexes(r.db)
}

// ListByProduct 按商品获取卡密列表
func (r *GormCardKeyRepository) ListByProduct(productID uint, used *bool, page, pageSize int) ([]models.CardKey, int64, error) {
	if productID == 0 {
		return nil, 0, errors.New("invalid product id")
	}
	query := r.db.Model(&models.CardKey{}).Where("product_id = ?", productID)
	if used != nil {
		query = query.Where("used = ?", *used)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, page, pageSize)

	var items []models.CardKey
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetByID 根据 ID 获取卡密
func (r *GormCardKeyRepository) GetByID(id uint) (*models.CardKey, error) {
	var key models.CardKey
	if err := r.db.First(&key, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

// DeleteByID 删除单条卡密
func (r *GormCardKeyRepository) DeleteByID(id uint) (int64, error) {
	result := r.db.Delete(&models.CardKey{}, id)
	return result.RowsAffected, result.Error
}

// DeleteDeletableByProduct 清空商品下可安全删除的卡密。
// 必须是单条条件删除语句：未使用且（无预留或预留早于 cutoff）的行一次性移除，
// 不允许先查再逐行删，避免与并发兑换竞争。
func (r *GormCardKeyRepository) DeleteDeletableByProduct(productID uint, cutoff time.Time) (int64, error) {
	if productID == 0 {
		return 0, errors.New("invalid product id")
	}
	result := r.db.
		Where("product_id = ? AND used = ? AND (reserved_at IS NULL OR reserved_at < ?)", productID, false, cutoff).
		Delete(&models.CardKey{})
	return result.RowsAffected, result.Error
}

// CountByProduct 统计库存数量（总/可用/已用）
func (r *GormCardKeyRepository) CountByProduct(productID uint) (total, available, used int64, err error) {
	if productID == 0 {
		return 0, 0, 0, errors.New("invalid product id")
	}

	base := func() *gorm.DB {
		return r.db.Model(&models.CardKey{}).Where("product_id = ?", productID)
	}

	if err = base().Count(&total).Error; err != nil {
		return 0, 0, 0, err
	}
	if err = base().Where("used = ? AND reserved_at IS NULL", false).Count(&available).Error; err != nil {
		return 0, 0, 0, err
	}
	if err = base().Where("used = ?", true).Count(&used).Error; err != nil {
		return 0, 0, 0, err
	}
	return total, available, used, nil
}

// StockCounts 单个商品的卡密库存计数
type StockCounts struct {
	Total     int64
	Available int64
	Used      int64
}

// CountStockByProductIDs 批量统计卡密库存（总/可用/已用）
func (r *GormCardKeyRepository) CountStockByProductIDs(productIDs []uint) (map[uint]StockCounts, error) {
	result := make(map[uint]StockCounts)
	if len(productIDs) == 0 {
		return result, nil
	}

	type countRow struct {
		ProductID uint
		Total     int64
		Available int64
		Used      int64
	}

	selectExpr := "product_id, COUNT(*) AS total, " +
		"SUM(CASE WHEN used = ? AND reserved_at IS NULL THEN 1 ELSE 0 END) AS available, " +
		"SUM(CASE WHEN used = ? THEN 1 ELSE 0 END) AS used"

	var rows []countRow
	if err := r.db.Model(&models.CardKey{}).
		Select(selectExpr, false, true).
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ProductID] = StockCounts{Total: row.Total, Available: row.Available, Used: row.Used}
	}

	return result, nil
}

// ReserveNext 预留商品下最早的可用卡密。
// 条件更新抢占，抢占失败（被并发拿走）时换下一条重试；无可用卡密返回 nil。
func (r *GormCardKeyRepository) ReserveNext(productID uint, token string, reservedAt time.Time) (*models.CardKey, error) {
	if productID == 0 || token == "" {
		return nil, errors.New("invalid reserve params")
	}

	for attempt := 0; attempt < reserveNextMaxAttempts; attempt++ {
		var key models.CardKey
		err := r.db.
			Where("product_id = ? AND used = ? AND reserved_at IS NULL", productID, false).
			Order("id asc").
			First(&key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		result := r.db.Model(&models.CardKey{}).
			Where("id = ? AND used = ? AND reserved_at IS NULL", key.ID, false).
			Updates(map[string]interface{}{
				"reserved_at":       reservedAt,
				"reservation_token": token,
				"updated_at":        reservedAt,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			key.ReservedAt = &reservedAt
			key.ReservationToken = token
			return &key, nil
		}
	}
	return nil, nil
}

// GetByReservationToken 根据预留令牌获取未使用卡密
func (r *GormCardKeyRepository) GetByReservationToken(token string) (*models.CardKey, error) {
	if token == "" {
		return nil, nil
	}
	var key models.CardKey
	if err := r.db.Where("reservation_token = ? AND used = ?", token, false).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

// CompleteByToken 按预留令牌将卡密标记为已使用
func (r *GormCardKeyRepository) CompleteByToken(token string, usedAt time.Time) (int64, error) {
	if token == "" {
		return 0, nil
	}
	result := r.db.Model(&models.CardKey{}).
		Where("reservation_token = ? AND used = ?", token, false).
		Updates(map[string]interface{}{
			"used":              true,
			"used_at":           usedAt,
			"reserved_at":       nil,
			"reservation_token": "",
			"updated_at":        usedAt,
		})
	return result.RowsAffected, result.Error
}

// ReleaseByToken 按预留令牌释放未完成的预留
func (r *GormCardKeyRepository) ReleaseByToken(token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	now := time.Now()
	result := r.db.Model(&models.CardKey{}).
		Where("reservation_token = ? AND used = ?", token, false).
		Updates(map[string]interface{}{
			"reserved_at":       nil,
			"reservation_token": "",
			"updated_at":        now,
		})
	return result.RowsAffected, result.Error
}

// ReleaseStale 释放早于 cutoff 的全部过期预留
func (r *GormCardKeyRepository) ReleaseStale(cutoff time.Time) (int64, error) {
	now := time.Now()
	result := r.db.Model(&models.CardKey{}).
		Where("used = ? AND reserved_at IS NOT NULL AND reserved_at < ?", false, cutoff).
		Updates(map[string]interface{}{
			"reserved_at":       nil,
			"reservation_token": "",
			"updated_at":        now,
		})
	return result.RowsAffected, result.Error
}
