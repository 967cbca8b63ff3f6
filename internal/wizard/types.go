package wizard

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

// ==================== 外部实体 ====================

// Category 分类（由外部维护）
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Status   Status `json:"status"`
}

// Image 已持久化的商品图片
type Image struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	URL         string `json:"url"`
	IsPrincipal bool   `json:"is_principal"`
}

// Key 草稿内引用用的键
func (i Image) Key() string { return "img-" + strconv.FormatInt(i.ID, 10) }

// Variant 已持久化的商品变体
type Variant struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Size      Size            `json:"size"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
	Barcode   string          `json:"barcode,omitempty"`
	Status    Status          `json:"status"`
}

// Key 草稿内引用用的键
func (v Variant) Key() string { return "var-" + strconv.FormatInt(v.ID, 10) }

// Product 已持久化的商品（含图片与变体）
type Product struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	CategoryID   int64     `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"`
	Description  string    `json:"description"`
	Status       Status    `json:"status"`
	Images       []Image   `json:"images"`
	Variants     []Variant `json:"variants"`
}

// User 当前会话用户
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// BasicFields 商品主体字段
type BasicFields struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	CategoryID  int64  `json:"category_id"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// VariantInput 创建变体的入参
type VariantInput struct {
	ProductID int64
	SKU       string
	Size      Size
	Color     string
	Price     decimal.Decimal
	Cost      decimal.Decimal
	Stock     int
	Barcode   string
	Status    Status
}

// ==================== 协作者接口 ====================

// CategoryStore 分类来源
type CategoryStore interface {
	ListActive(ctx context.Context) ([]Category, error)
}

// ProductStore 商品存储
type ProductStore interface {
	Create(ctx context.Context, fields BasicFields) (*Product, error)
	Update(ctx context.Context, id int64, fields BasicFields) (*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}

// ImageStore 图片存储，文件图片走 multipart，URL 图片走 JSON
type ImageStore interface {
	Create(ctx context.Context, productID int64, img DraftImage) (*Image, error)
}

// VariantStore 变体存储
type VariantStore interface {
	Create(ctx context.Context, in VariantInput) (*Variant, error)
}

// Session 当前会话
type Session interface {
	CurrentUser() *User
}
