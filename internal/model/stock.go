package model

// 库存变动类型
const (
	StockIn     = "in"     // 入库
	StockOut    = "out"    // 出库
	StockAdjust = "adjust" // 盘点调整（数量为调整后的绝对值）
	StockSale   = "sale"   // 销售扣减
)

// StockMovement 库存流水
type StockMovement struct {
	BaseModel
	VariantID int64  `gorm:"index;not null" json:"variant_id"`
	Type      string `gorm:"size:20;index;not null" json:"type"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
	Reason    string `gorm:"size:255" json:"reason,omitempty"`
	OrderID   *int64 `gorm:"index" json:"order_id,omitempty"`
	CreatedBy int64  `gorm:"index" json:"created_by"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}
