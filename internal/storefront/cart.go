package storefront

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var newCartID = uuid.NewString

// ValidationError 选择项不合法
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Selection 加购时选择的规格
type Selection struct {
	Color    string `json:"color"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// CartItem 购物车条目，CartID 与商品 ID 无关
type CartItem struct {
	CartID        string  `json:"cart_id"`
	Product       Product `json:"product"`
	SelectedColor string  `json:"selected_color,omitempty"`
	SelectedSize  string  `json:"selected_size,omitempty"`
	Quantity      int     `json:"quantity"`
}

// LineTotal 单价 × 数量
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart 会话内购物车
// 不做并发保护，由持有会话的一方串行访问
type Cart struct {
	items []CartItem
}

// NewCart 空购物车
func NewCart() *Cart {
	return &Cart{}
}

// Add 加购，同一商品同一规格也追加为新条目
func (c *Cart) Add(p Product, sel Selection) (CartItem, error) {
	if len(p.Colors) > 0 {
		if sel.Color == "" {
			return CartItem{}, &ValidationError{Field: "color", Message: "select a color"}
		}
		if !contains(p.Colors, sel.Color) {
			return CartItem{}, &ValidationError{Field: "color", Message: "color not available"}
		}
	}
	if len(p.Sizes) > 0 {
		if sel.Size == "" {
			return CartItem{}, &ValidationError{Field: "size", Message: "select a size"}
		}
		if !contains(p.Sizes, sel.Size) {
			return CartItem{}, &ValidationError{Field: "size", Message: "size not available"}
		}
	}
	qty := sel.Quantity
	if qty < 0 {
		return CartItem{}, &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}
	if qty == 0 {
		qty = 1
	}

	item := CartItem{
		CartID:        newCartID(),
		Product:       p.clone(),
		SelectedColor: sel.Color,
		SelectedSize:  sel.Size,
		Quantity:      qty,
	}
	c.items = append(c.items, item)
	return item, nil
}

// Remove 按 CartID 移除，不存在时不做任何事
func (c *Cart) Remove(cartID string) bool {
	for i, item := range c.items {
		if item.CartID == cartID {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Total 合计
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Items 条目副本
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len 条目数
func (c *Cart) Len() int {
	return len(c.items)
}

// Clear 清空
func (c *Cart) Clear() {
	c.items = nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
