package model

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 通用启用状态
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// AllModels 需要自动迁移的全部表
func AllModels() []interface{} {
	return []interface{}{
		// 账号
		&Role{}, &SysUser{},
		// 商品
		&Category{}, &Product{}, &ProductImage{}, &ProductVariant{},
		// 销售
		&Order{}, &OrderItem{}, &OrderEvent{},
		// 库存
		&StockMovement{},
	}
}
