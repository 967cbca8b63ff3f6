package dto

import "github.com/shopspring/decimal"

// ==================== 分类 ====================

// CategoryRequest 创建/更新分类
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description" binding:"max=500"`
	ParentID    *int64 `json:"parent_id"`
	Status      string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// ==================== 商品 ====================

// ProductRequest 创建/更新商品
// 必填校验在服务层完成，以便按字段返回错误
type ProductRequest struct {
	Code        string `json:"code" binding:"max=50"`
	Name        string `json:"name"`
	CategoryID  int64  `json:"category_id"`
	Description string `json:"description"`
	Status      string `json:"status" binding:"omitempty,oneof=active inactive"`
	Gender      string `json:"gender" binding:"omitempty,oneof=hombre mujer unisex ninos"`
}

// ProductQuery 商品列表查询
type ProductQuery struct {
	CategoryID int64  `form:"category_id"`
	Status     string `form:"status"`
	Gender     string `form:"gender"`
	Keyword    string `form:"keyword"`
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
}

// ProductListResponse 商品列表响应
type ProductListResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
}

// ==================== 图片 ====================

// ImageUpload 上传图片（文件与 URL 二选一）
type ImageUpload struct {
	ProductID   int64
	Filename    string
	ContentType string
	Data        []byte
	URL         string
	IsPrincipal bool
}

// ImageURLRequest JSON 方式添加图片
type ImageURLRequest struct {
	ProductID   int64  `json:"product_id" binding:"required"`
	URL         string `json:"url" binding:"required,url"`
	IsPrincipal bool   `json:"is_principal"`
}

// ==================== 变体 ====================

// VariantRequest 创建/更新变体，SKU 为空时自动生成
type VariantRequest struct {
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku" binding:"max=64"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
	Barcode   string          `json:"barcode" binding:"max=64"`
	Status    string          `json:"status" binding:"omitempty,oneof=active inactive"`
}
