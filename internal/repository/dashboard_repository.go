package repository

import (
	"sort"

	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview() (DashboardOverviewRow, error)
	GetLowStockProducts(threshold int64, limit int) ([]DashboardLowStockRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	ProductsTotal     int64
	ProductsActive    int64
	Categories        int64
	CardKeysTotal     int64
	CardKeysAvailable int64
	CardKeysUsed      int64
	ReviewsPending    int64
}

// DashboardLowStockRow 低库存商品原始行
type DashboardLowStockRow struct {
	ProductID uint
	Slug      string
	Name      string
	Available int64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview() (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	productBase := func() *gorm.DB {
		return r.db.Model(&models.Product{})
	}
	if err := productBase().Count(&result.ProductsTotal).Error; err != nil {
		return result, err
	}
	if err := productBase().Where("is_active = ?", true).Count(&result.ProductsActive).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Category{}).Count(&result.Categories).Error; err != nil {
		return result, err
	}

	cardBase := func() *gorm.DB {
		return r.db.Model(&models.CardKey{})
	}
	if err := cardBase().Count(&result.CardKeysTotal).Error; err != nil {
		return result, err
	}
	if err := cardBase().Where("used = ?", false).Count(&result.CardKeysAvailable).Error; err != nil {
		return result, err
	}
	if err := cardBase().Where("used = ?", true).Count(&result.CardKeysUsed).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Review{}).
		Where("status = ?", constants.ReviewStatusPending).
		Count(&result.ReviewsPending).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetLowStockProducts 获取可用卡密不足的上架商品
func (r *GormDashboardRepository) GetLowStockProducts(threshold int64, limit int) ([]DashboardLowStockRow, error) {
	if limit <= 0 {
		limit = 5
	}

	type productRow struct {
		ID   uint
		Slug string
		Name string
	}
	var products []productRow
	if err := r.db.Model(&models.Product{}).
		Select("id, slug, name").
		Where("is_active = ?", true).
		Scan(&products).Error; err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []DashboardLowStockRow{}, nil
	}

	productIDs := make([]uint, 0, len(products))
	for _, product := range products {
		productIDs = append(productIDs, product.ID)
	}

	type countRow struct {
		ProductID uint
		Total     int64
	}
	var rows []countRow
	if err := r.db.Model(&models.CardKey{}).
		Select("product_id, COUNT(*) as total").
		Where("product_id IN ? AND used = ?", productIDs, false).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	availableMap := make(map[uint]int64, len(rows))
	for _, item := range rows {
		availableMap[item.ProductID] = item.Total
	}

	result := make([]DashboardLowStockRow, 0, len(products))
	for _, product := range products {
		available := availableMap[product.ID]
		if available > threshold {
			continue
		}
		result = append(result, DashboardLowStockRow{
			ProductID: product.ID,
			Slug:      product.Slug,
			Name:      product.Name,
			Available: available,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Available != result[j].Available {
			return result[i].Available < result[j].Available
		}
		return result[i].ProductID < result[j].ProductID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
