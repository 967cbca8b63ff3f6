package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ==================== 订单状态常量 ====================

const (
	OrderStatusPending   = "pending"   // 待支付
	OrderStatusPaid      = "paid"      // 已支付
	OrderStatusShipped   = "shipped"   // 已发货
	OrderStatusDelivered = "delivered" // 已签收
	OrderStatusCancelled = "cancelled" // 已取消
)

// 订单来源
const (
	OrderChannelOnline = "online" // 店面下单
	OrderChannelStore  = "store"  // 门店收银
)

// orderTransitions 允许的状态流转
var orderTransitions = map[string][]string{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// ==================== Order 订单主表 ====================

// Order 订单
type Order struct {
	BaseModel
	OrderNo string `gorm:"size:40;uniqueIndex;not null" json:"order_no"`
	UserID  int64  `gorm:"index;not null" json:"user_id"`
	Status  string `gorm:"size:20;index;default:pending" json:"status"`
	Channel string `gorm:"size:16;index;default:online" json:"channel"`

	// 收货信息
	Address string `gorm:"size:255;not null" json:"address"`
	City    string `gorm:"size:100;not null" json:"city"`
	Phone   string `gorm:"size:30;not null" json:"phone"`
	Notes   string `gorm:"size:500" json:"notes,omitempty"`

	// 金额
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(12,2)" json:"shipping_cost"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2)" json:"total"`

	// 支付
	PaymentMethod string            `gorm:"size:32" json:"payment_method,omitempty"`
	PaymentInfo   datatypes.JSONMap `json:"-"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`

	// 物流
	TrackingCode string     `gorm:"size:64;index" json:"tracking_code,omitempty"`
	ShippedAt    *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`

	Items  []OrderItem  `gorm:"foreignKey:OrderID" json:"items"`
	Events []OrderEvent `gorm:"foreignKey:OrderID" json:"events,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// CanTransitionTo 检查状态流转是否合法
func (o *Order) CanTransitionTo(status string) bool {
	for _, s := range orderTransitions[o.Status] {
		if s == status {
			return true
		}
	}
	return false
}

// CanPay 检查是否可以支付
func (o *Order) CanPay() bool {
	return o.Status == OrderStatusPending
}

// ==================== OrderItem 订单项 ====================

// OrderItem 订单项（下单时的商品快照）
type OrderItem struct {
	BaseModel
	OrderID     int64           `gorm:"index;not null" json:"order_id"`
	ProductID   int64           `gorm:"index" json:"product_id"`
	VariantID   *int64          `gorm:"index" json:"variant_id,omitempty"`
	ProductName string          `gorm:"size:200" json:"product_name"`
	SKU         string          `gorm:"size:64" json:"sku,omitempty"`
	Color       string          `gorm:"size:50" json:"color,omitempty"`
	Size        string          `gorm:"size:8" json:"size,omitempty"`
	Quantity    int             `gorm:"default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2)" json:"line_total"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// ==================== OrderEvent 订单轨迹 ====================

// OrderEvent 订单状态变更记录，用于物流追踪时间线
type OrderEvent struct {
	BaseModel
	OrderID  int64  `gorm:"index;not null" json:"order_id"`
	Status   string `gorm:"size:20" json:"status"`
	Note     string `gorm:"size:255" json:"note,omitempty"`
	Operator int64  `json:"operator,omitempty"`
}

func (OrderEvent) TableName() string {
	return "order_events"
}
