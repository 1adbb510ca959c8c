package repository

import (
	"errors"
	"time"

	"github.com/kamishop/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository 评价数据访问接口
type ReviewRepository interface {
	List(filter ReviewListFilter) ([]models.Review, int64, error)
	GetByID(id uint) (*models.Review, error)
	Create(review *models.Review) error
	UpdateStatus(id uint, status string) (int64, error)
	Delete(id uint) (int64, error)
	CountByStatus(status string) (int64, error)
}

// GormReviewRepository GORM 实现
type GormReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository 创建评价仓库
func NewReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// List 评价列表
func (r *GormReviewRepository) List(filter ReviewListFilter) ([]models.Review, int64, error) {
	query := r.db.Model(&models.Review{})
	if filter.ProductID > 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.WithProduct {
		query = query.Preload("Product")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var reviews []models.Review
	if err := query.Order("created_at DESC, id DESC").Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// GetByID 根据 ID 获取评价
func (r *GormReviewRepository) GetByID(id uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

// Create 创建评价
func (r *GormReviewRepository) Create(review *models.Review) error {
	return r.db.Create(review).Error
}

// UpdateStatus 更新评价状态
func (r *GormReviewRepository) UpdateStatus(id uint, status string) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Review{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// Delete 删除评价（软删除）
func (r *GormReviewRepository) Delete(id uint) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Delete(&models.Review{}, id)
	return result.RowsAffected, result.Error
}

// CountByStatus 按状态统计评价数量
func (r *GormReviewRepository) CountByStatus(status string) (int64, error) {
	var count int64
	query := r.db.Model(&models.Review{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
