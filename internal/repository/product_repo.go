package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsmart_v1_202610/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口（商品、图片、变体）
type ProductRepository interface {
	// 商品
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByCode(ctx context.Context, code string) (*model.Product, error)
	GetByName(ctx context.Context, name string) (*model.Product, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)

	// 图片
	CreateImage(ctx context.Context, image *model.ProductImage) error
	GetImage(ctx context.Context, id int64) (*model.ProductImage, error)
	ListImages(ctx context.Context, productID int64) ([]model.ProductImage, error)
	UpdateImage(ctx context.Context, image *model.ProductImage) error
	ClearPrincipal(ctx context.Context, productID int64, exceptID int64) error
	DeleteImage(ctx context.Context, id int64) error

	// 变体
	CreateVariant(ctx context.Context, variant *model.ProductVariant) error
	GetVariant(ctx context.Context, id int64) (*model.ProductVariant, error)
	GetVariantForUpdate(ctx context.Context, id int64) (*model.ProductVariant, error)
	FindVariant(ctx context.Context, productID int64, color, size string) (*model.ProductVariant, error)
	ListVariants(ctx context.Context, filter VariantFilter) ([]model.ProductVariant, error)
	UpdateVariant(ctx context.Context, variant *model.ProductVariant) error
	UpdateVariantStock(ctx context.Context, id int64, stock int) error
	DeleteVariant(ctx context.Context, id int64) error
	ExistsSKU(ctx context.Context, sku string, excludeID int64) (bool, error)

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
	Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error
}

// ==================== 过滤条件 ====================

// ProductFilter 商品过滤条件
type ProductFilter struct {
	CategoryID int64
	Status     string
	Gender     string
	Keyword    string
	Page       int
	PageSize   int // <0 表示不分页
}

// VariantFilter 变体过滤条件
type VariantFilter struct {
	ProductID int64
	SKU       string // 不区分大小写
	MaxStock  *int // 库存不超过该值
	Status    string
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}

func (r *productRepo) Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByCode(ctx context.Context, code string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &product, err
}

func (r *productRepo) GetByName(ctx context.Context, name string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &product, err
}

func (r *productRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	// 硬删除，释放 code / sku 唯一索引
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tx = tx.Unscoped()
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductVariant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Product{}, id).Error
	})
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.CategoryID > 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Gender != "" {
		query = query.Where("gender = ?", filter.Gender)
	}
	if filter.Keyword != "" {
		kw := "%" + strings.ToLower(filter.Keyword) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", kw, kw)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id DESC")

	if filter.PageSize >= 0 {
		if filter.Page <= 0 {
			filter.Page = 1
		}
		if filter.PageSize == 0 {
			filter.PageSize = 20
		}
		query = query.Limit(filter.PageSize).Offset((filter.Page - 1) * filter.PageSize)
	}

	err := query.Find(&products).Error
	return products, total, err
}

// ==================== 图片 ====================

func (r *productRepo) CreateImage(ctx context.Context, image *model.ProductImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *productRepo) GetImage(ctx context.Context, id int64) (*model.ProductImage, error) {
	var img model.ProductImage
	err := r.db.WithContext(ctx).First(&img, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &img, err
}

func (r *productRepo) ListImages(ctx context.Context, productID int64) ([]model.ProductImage, error) {
	var images []model.ProductImage
	query := r.db.WithContext(ctx).Model(&model.ProductImage{})
	if productID > 0 {
		query = query.Where("product_id = ?", productID)
	}
	err := query.Order("id ASC").Find(&images).Error
	return images, err
}

func (r *productRepo) UpdateImage(ctx context.Context, image *model.ProductImage) error {
	return r.db.WithContext(ctx).Save(image).Error
}

func (r *productRepo) ClearPrincipal(ctx context.Context, productID int64, exceptID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.ProductImage{}).
		Where("product_id = ? AND id <> ?", productID, exceptID).
		Update("is_principal", false).Error
}

func (r *productRepo) DeleteImage(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&model.ProductImage{}, id).Error
}

// ==================== 变体 ====================

func (r *productRepo) CreateVariant(ctx context.Context, variant *model.ProductVariant) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(variant).Error
}

func (r *productRepo) GetVariant(ctx context.Context, id int64) (*model.ProductVariant, error) {
	var v model.ProductVariant
	err := r.db.WithContext(ctx).First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

// GetVariantForUpdate 行锁读取（SQLite 下忽略锁子句）
func (r *productRepo) GetVariantForUpdate(ctx context.Context, id int64) (*model.ProductVariant, error) {
	var v model.ProductVariant
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *productRepo) FindVariant(ctx context.Context, productID int64, color, size string) (*model.ProductVariant, error) {
	var v model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *productRepo) ListVariants(ctx context.Context, filter VariantFilter) ([]model.ProductVariant, error) {
	var list []model.ProductVariant
	query := r.db.WithContext(ctx).Model(&model.ProductVariant{}).Preload("Product")
	if filter.ProductID > 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.SKU != "" {
		query = query.Where("UPPER(sku) = ?", strings.ToUpper(filter.SKU))
	}
	if filter.MaxStock != nil {
		query = query.Where("stock <= ?", *filter.MaxStock)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	err := query.Order("id ASC").Find(&list).Error
	return list, err
}

func (r *productRepo) UpdateVariant(ctx context.Context, variant *model.ProductVariant) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(variant).Error
}

func (r *productRepo) UpdateVariantStock(ctx context.Context, id int64, stock int) error {
	return r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ?", id).
		Update("stock", stock).Error
}

func (r *productRepo) DeleteVariant(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&model.ProductVariant{}, id).Error
}

func (r *productRepo) ExistsSKU(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("sku = ? AND id <> ?", sku, excludeID).
		Count(&count).Error
	return count > 0, err
}
