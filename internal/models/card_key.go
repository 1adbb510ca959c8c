package models

import "time"

// CardKey 卡密库存表。
// 卡密内容不要求唯一，重复导入按策略产生重复行；删除为物理删除。
type CardKey struct {
	ID               uint       `gorm:"primarykey" json:"id"`                     // 主键
	ProductID        uint       `gorm:"index;not null" json:"product_id"`         // 商品ID
	Code             string     `gorm:"type:text;not null" json:"code"`           // 卡密内容（可含逗号等任意分隔符）
	Used             bool       `gorm:"not null;default:false;index" json:"used"` // 是否已使用
	ReservedAt       *time.Time `gorm:"index" json:"reserved_at"`                 // 占用时间（兑换中）
	ReservationToken string     `gorm:"type:varchar(64);index" json:"-"`          // 预留令牌（兑换流程持有）
	UsedAt           *time.Time `gorm:"index" json:"used_at"`                     // 使用时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                  // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                               // 更新时间
}

// TableName 指定表名
func (CardKey) TableName() string {
	return "card_keys"
}
