package models

import (
	"time"

	"gorm.io/gorm"
)

// Review 商品评价表
type Review struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                            // 主键
	ProductID uint           `gorm:"index;not null" json:"product_id"`                                // 商品ID
	Author    string         `gorm:"type:varchar(64);not null" json:"author"`                         // 评价人昵称
	Rating    int            `gorm:"not null" json:"rating"`                                          // 评分（1-5）
	Content   string         `gorm:"type:text" json:"content"`                                        // 评价内容
	Status    string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // 状态（pending/approved/hidden）
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                                      // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                                  // 软删除时间

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 商品信息
}

// TableName 指定表名
func (Review) TableName() string {
	return "reviews"
}
