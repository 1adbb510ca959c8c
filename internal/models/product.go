package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                      // 主键
	CategoryID  uint           `gorm:"not null;index" json:"category_id"`                         // 分类ID
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`                          // 唯一标识
	Name        string         `gorm:"type:varchar(200);not null" json:"name"`                    // 商品名称
	Description string         `gorm:"type:text" json:"description"`                              // 商品描述
	PriceAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"` // 价格金额
	Images      StringArray    `gorm:"type:json" json:"images"`                                   // 图片数组
	Tags        StringArray    `gorm:"type:json" json:"tags"`                                     // 标签数组
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`                       // 是否上架
	SortOrder   int            `gorm:"default:0;index" json:"sort_order"`                         // 排序权重
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	// 卡密库存统计（查询时填充，不写入数据库）
	CardStock CardStockSummary `gorm:"-" json:"card_stock"`

	// 关联
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // 分类信息
}

// CardStockSummary 卡密库存统计
type CardStockSummary struct {
	Total     int64  `json:"total"`     // 总量
	Available int64  `json:"available"` // 未使用且未占用
	Used      int64  `json:"used"`      // 已使用
	Status    string `json:"status"`    // in_stock / low_stock / out_of_stock
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
