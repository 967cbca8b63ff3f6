package model

import "github.com/shopspring/decimal"

// 性别
const (
	GenderMen    = "hombre"
	GenderWomen  = "mujer"
	GenderUnisex = "unisex"
	GenderKids   = "ninos"
)

// 尺码
var Sizes = []string{"S", "M", "L", "XL"}

// ==================== Product 商品 ====================

// Product 商品主体
type Product struct {
	BaseModel
	Code        string    `gorm:"size:50;uniqueIndex;comment:商品编码" json:"code"`
	Name        string    `gorm:"size:200;index;not null;comment:商品名" json:"name"`
	CategoryID  int64     `gorm:"index;not null;comment:分类ID" json:"category_id"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Description string    `gorm:"type:text;comment:描述" json:"description"`
	Status      string    `gorm:"size:20;index;default:active" json:"status"`
	Gender      string    `gorm:"size:20;index;default:unisex;comment:适用性别" json:"gender"`
	CreatedBy   int64     `gorm:"comment:创建人" json:"created_by,omitempty"`
	UpdatedBy   int64     `gorm:"comment:最后修改人" json:"updated_by,omitempty"`

	Images   []ProductImage   `gorm:"foreignKey:ProductID" json:"images"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants"`
}

func (Product) TableName() string {
	return "products"
}

// PrincipalImageURL 主图地址，没有主图时取第一张
func (p *Product) PrincipalImageURL() string {
	for _, img := range p.Images {
		if img.IsPrincipal {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// MinPrice 启用变体中的最低价
func (p *Product) MinPrice() decimal.Decimal {
	var min decimal.Decimal
	found := false
	for _, v := range p.Variants {
		if v.Status != StatusActive {
			continue
		}
		if !found || v.Price.LessThan(min) {
			min = v.Price
			found = true
		}
	}
	return min
}

// TotalStock 全部变体库存
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// ==================== ProductImage 商品图片 ====================

// ProductImage 商品图片
type ProductImage struct {
	BaseModel
	ProductID   int64  `gorm:"index;not null" json:"product_id"`
	URL         string `gorm:"size:1024;not null" json:"url"`
	Uploaded    bool   `gorm:"default:false;comment:是否为本系统存储的文件" json:"uploaded"`
	IsPrincipal bool   `gorm:"default:false;comment:是否主图" json:"is_principal"`
}

func (ProductImage) TableName() string {
	return "product_images"
}

// ==================== ProductVariant 商品变体 ====================

// ProductVariant 商品变体（尺码 × 颜色）
type ProductVariant struct {
	BaseModel
	ProductID int64           `gorm:"index;not null" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	SKU       string          `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	Size      string          `gorm:"size:8;not null" json:"size"`
	Color     string          `gorm:"size:50;not null" json:"color"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Cost      decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"cost"`
	Stock     int             `gorm:"default:0" json:"stock"`
	Barcode   string          `gorm:"size:64" json:"barcode,omitempty"`
	Status    string          `gorm:"size:20;default:active" json:"status"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}
