package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==================== 结算 ====================

// CheckoutRequest 结算请求
// PaymentMethod 可在下单时预选，实际支付仍走 Pay
type CheckoutRequest struct {
	Address       string `json:"address"`
	City          string `json:"city"`
	Phone         string `json:"phone"`
	Notes         string `json:"notes" binding:"max=500"`
	PaymentMethod string `json:"payment_method" binding:"omitempty,oneof=card transfer cash"`
}

// CheckoutLine 结算行（来自购物车）
type CheckoutLine struct {
	ProductID int64
	VariantID int64 // 门店收银已定位到变体时直接使用
	Name      string
	Color     string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// SaleItem 门店收银行，Code 为变体 SKU 或商品编码
type SaleItem struct {
	Code     string `json:"code" binding:"required,max=64"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// SaleRequest 门店收银
type SaleRequest struct {
	Items         []SaleItem `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string     `json:"payment_method" binding:"required,oneof=cash card"`
	Notes         string     `json:"notes" binding:"max=500"`
}

// PaymentRequest 支付请求
type PaymentRequest struct {
	Method    string `json:"method" binding:"required,oneof=card transfer cash"`
	Reference string `json:"reference" binding:"max=100"`
}

// OrderStatusRequest 后台修改订单状态
type OrderStatusRequest struct {
	Status       string `json:"status" binding:"required,oneof=paid shipped delivered cancelled"`
	TrackingCode string `json:"tracking_code" binding:"max=64"`
	Note         string `json:"note" binding:"max=255"`
}

// OrderListRequest 订单列表
type OrderListRequest struct {
	Status   string `form:"status"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// ==================== 追踪 ====================

// TrackingStep 物流时间线节点
type TrackingStep struct {
	Status string     `json:"status"`
	Done   bool       `json:"done"`
	At     *time.Time `json:"at,omitempty"`
	Note   string     `json:"note,omitempty"`
}

// TrackingResponse 订单追踪
type TrackingResponse struct {
	OrderNo      string         `json:"order_no"`
	Status       string         `json:"status"`
	TrackingCode string         `json:"tracking_code,omitempty"`
	Steps        []TrackingStep `json:"steps"`
}
