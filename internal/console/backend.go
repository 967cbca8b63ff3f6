// Package console 控制台会话：登录分流、商品向导、店面购物车
// 商品数据通过 Backend 访问，本地模式直连服务层，远程模式走 catalogapi
package console

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/storefront"
	"shopsmart_v1_202610/internal/wizard"
)

// ==================== 错误定义 ====================

var (
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrLoginRequired   = errors.New("login required")
	ErrProductMissing  = errors.New("product not available")
	ErrItemMissing     = errors.New("image or variant does not belong to this product")
	ErrCartEmpty       = errors.New("cart is empty")
	ErrRefreshDisabled = errors.New("backend does not support token refresh")
)

// ==================== Backend ====================

// Identity 登录后的身份，远程模式下带上游 token
type Identity struct {
	User    wizard.User
	Token   string
	Refresh string
}

// Backend 身份认证与数据访问的来源
type Backend interface {
	Name() string
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
	// Gateway 按身份构造数据访问入口；id 为 nil 时为匿名访问
	Gateway(id *Identity) *Gateway
}

// Refresher 支持刷新上游 token 的 Backend
type Refresher interface {
	RefreshIdentity(ctx context.Context, id *Identity) (*Identity, error)
}

// Gateway 一个会话可用的全部协作者
type Gateway struct {
	Categories wizard.CategoryStore
	Products   wizard.ProductStore
	Images     wizard.ImageStore
	Variants   wizard.VariantStore
	Catalog    CatalogDesk
	Shop       ShopCatalog
	Orders     OrderDesk
}

// CatalogDesk 已持久化商品的图片、变体与删除；编辑模式下直接作用于数据源
type CatalogDesk interface {
	DeleteProduct(ctx context.Context, id int64) error
	ListImages(ctx context.Context, productID int64) ([]wizard.Image, error)
	DeleteImage(ctx context.Context, id int64) error
	ListVariants(ctx context.Context, productID int64) ([]wizard.Variant, error)
	DeleteVariant(ctx context.Context, id int64) error
}

// ShopCatalog 店面商品来源
type ShopCatalog interface {
	ShopProducts(ctx context.Context) ([]storefront.Product, error)
}

// ==================== 订单 ====================

// OrderSummary 订单摘要，本地与远程统一
type OrderSummary struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	Status    string          `json:"status"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping_cost"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

// OrderDesk 下单、支付与查询
type OrderDesk interface {
	Checkout(ctx context.Context, user wizard.User, req *dto.CheckoutRequest, items []storefront.CartItem) (*OrderSummary, error)
	Pay(ctx context.Context, user wizard.User, orderID int64, req *dto.PaymentRequest) (*OrderSummary, error)
	MyOrders(ctx context.Context, user wizard.User) ([]OrderSummary, error)
	Track(ctx context.Context, user wizard.User, orderID int64) (json.RawMessage, error)
}
