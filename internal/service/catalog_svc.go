package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/internal/repository"
	"shopsmart_v1_202610/internal/storefront"
	"shopsmart_v1_202610/internal/wizard"
)

// ==================== CatalogService 商品目录服务 ====================

// CatalogService 分类、商品、图片、变体
type CatalogService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	storage      StorageProvider
}

// NewCatalogService 创建商品目录服务，storage 可为 nil（此时只接受外链图片）
func NewCatalogService(categoryRepo repository.CategoryRepository, productRepo repository.ProductRepository, storage StorageProvider) *CatalogService {
	return &CatalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		storage:      storage,
	}
}

// ==================== 分类 ====================

// ListCategories 分类列表
func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	return s.categoryRepo.List(ctx, activeOnly)
}

// GetCategory 分类详情
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// CreateCategory 创建分类
func (s *CatalogService) CreateCategory(ctx context.Context, req *dto.CategoryRequest) (*model.Category, error) {
	c := &model.Category{Status: model.StatusActive}
	if err := s.applyCategory(ctx, c, req); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// UpdateCategory 更新分类
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, req *dto.CategoryRequest) (*model.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCategory(ctx, c, req); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *CatalogService) applyCategory(ctx context.Context, c *model.Category, req *dto.CategoryRequest) error {
	fe := FieldErrors{}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		fe.Add("name", "this field is required")
	} else if existing, err := s.categoryRepo.GetByName(ctx, name); err != nil {
		return err
	} else if existing != nil && existing.ID != c.ID {
		fe.Add("name", "a category with this name already exists")
	}
	if req.ParentID != nil {
		switch parent, err := s.categoryRepo.GetByID(ctx, *req.ParentID); {
		case err != nil:
			return err
		case parent == nil:
			fe.Add("parent_id", "parent category does not exist")
		case parent.ID == c.ID:
			fe.Add("parent_id", "a category cannot be its own parent")
		case parent.ParentID != nil:
			fe.Add("parent_id", "only one level of subcategories is supported")
		}
	}
	if err := fe.OrNil(); err != nil {
		return err
	}

	c.Name = name
	c.Description = req.Description
	c.ParentID = req.ParentID
	if req.Status != "" {
		c.Status = req.Status
	}
	return nil
}

// DeleteCategory 删除分类，存在商品或子分类时拒绝
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	products, err := s.categoryRepo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	children, err := s.categoryRepo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 || children > 0 {
		return ErrCategoryInUse
	}
	return s.categoryRepo.Delete(ctx, id)
}

// ==================== 商品 ====================

// ListProducts 商品列表
func (s *CatalogService) ListProducts(ctx context.Context, q *dto.ProductQuery) ([]model.Product, int64, error) {
	return s.productRepo.List(ctx, repository.ProductFilter{
		CategoryID: q.CategoryID,
		Status:     q.Status,
		Gender:     q.Gender,
		Keyword:    q.Keyword,
		Page:       q.Page,
		PageSize:   q.PageSize,
	})
}

// AllProducts 全部商品（不分页）
func (s *CatalogService) AllProducts(ctx context.Context) ([]model.Product, error) {
	list, _, err := s.productRepo.List(ctx, repository.ProductFilter{PageSize: -1})
	return list, err
}

// GetProduct 商品详情（含分类、图片、变体）
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// CreateProduct 创建商品，编码为空时自动分配
func (s *CatalogService) CreateProduct(ctx context.Context, req *dto.ProductRequest) (*model.Product, error) {
	p := &model.Product{Status: model.StatusActive, Gender: model.GenderUnisex}
	if err := s.applyProduct(ctx, p, req); err != nil {
		return nil, err
	}

	autoCode := p.Code == ""
	if autoCode {
		p.Code = "TMP-" + uuid.NewString()
	}

	err := s.productRepo.Transaction(ctx, func(tx repository.ProductRepository) error {
		if err := tx.Create(ctx, p); err != nil {
			return err
		}
		if autoCode {
			p.Code = fmt.Sprintf("PRD-%05d", p.ID)
			return tx.UpdateFields(ctx, p.ID, map[string]interface{}{"code": p.Code})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	zap.L().Info("product created", zap.Int64("product_id", p.ID), zap.String("code", p.Code))
	return s.GetProduct(ctx, p.ID)
}

// UpdateProduct 更新商品主体字段
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *dto.ProductRequest) (*model.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyProduct(ctx, p, req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"name":        p.Name,
		"category_id": p.CategoryID,
		"description": p.Description,
		"status":      p.Status,
		"gender":      p.Gender,
	}
	if p.Code != "" {
		fields["code"] = p.Code
	}
	if err := s.productRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return s.GetProduct(ctx, id)
}

func (s *CatalogService) applyProduct(ctx context.Context, p *model.Product, req *dto.ProductRequest) error {
	fe := FieldErrors{}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		fe.Add("name", "this field is required")
	} else if existing, err := s.productRepo.GetByName(ctx, name); err != nil {
		return err
	} else if existing != nil && existing.ID != p.ID {
		fe.Add("name", "a product with this name already exists")
	}

	if req.CategoryID <= 0 {
		fe.Add("category_id", "this field is required")
	} else if c, err := s.categoryRepo.GetByID(ctx, req.CategoryID); err != nil {
		return err
	} else if c == nil || !c.IsActive() {
		fe.Add("category_id", "invalid category")
	}

	code := strings.TrimSpace(req.Code)
	if code != "" {
		if existing, err := s.productRepo.GetByCode(ctx, code); err != nil {
			return err
		} else if existing != nil && existing.ID != p.ID {
			fe.Add("code", "a product with this code already exists")
		}
	}

	if err := fe.OrNil(); err != nil {
		return err
	}

	p.Name = name
	p.CategoryID = req.CategoryID
	p.Description = req.Description
	if code != "" {
		p.Code = code
	}
	if req.Status != "" {
		p.Status = req.Status
	}
	if req.Gender != "" {
		p.Gender = req.Gender
	}
	return nil
}

// DeleteProduct 删除商品及其图片、变体
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	for _, img := range p.Images {
		s.removeFile(ctx, &img)
	}
	return nil
}

// ==================== 图片 ====================

// ListImages 商品图片列表，productID 为 0 时返回全部
func (s *CatalogService) ListImages(ctx context.Context, productID int64) ([]model.ProductImage, error) {
	return s.productRepo.ListImages(ctx, productID)
}

// AddImage 添加图片：文件走存储服务，URL 直接保存
// 设为主图时同一事务内取消其余主图
func (s *CatalogService) AddImage(ctx context.Context, up *dto.ImageUpload) (*model.ProductImage, error) {
	fe := FieldErrors{}
	hasFile := len(up.Data) > 0
	url := strings.TrimSpace(up.URL)
	switch {
	case !hasFile && url == "":
		fe.Add("image", "an image file or URL is required")
	case hasFile && url != "":
		fe.Add("image", "provide either an image file or a URL, not both")
	}
	if up.ProductID <= 0 {
		fe.Add("product_id", "this field is required")
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.GetProduct(ctx, up.ProductID); err != nil {
		return nil, err
	}

	img := &model.ProductImage{ProductID: up.ProductID, URL: url, IsPrincipal: up.IsPrincipal}
	if hasFile {
		if s.storage == nil {
			return nil, ErrStorageDisabled
		}
		stored, err := s.storage.Upload(ctx, up.Data, up.Filename, up.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		img.URL = stored
		img.Uploaded = true
	}

	err := s.productRepo.Transaction(ctx, func(tx repository.ProductRepository) error {
		if err := tx.CreateImage(ctx, img); err != nil {
			return err
		}
		if img.IsPrincipal {
			return tx.ClearPrincipal(ctx, img.ProductID, img.ID)
		}
		return nil
	})
	if err != nil {
		s.removeFile(ctx, img)
		return nil, fmt.Errorf("save image: %w", err)
	}
	return img, nil
}

// SetPrincipalImage 设为主图
func (s *CatalogService) SetPrincipalImage(ctx context.Context, imageID int64) (*model.ProductImage, error) {
	img, err := s.productRepo.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, ErrImageNotFound
	}

	img.IsPrincipal = true
	err = s.productRepo.Transaction(ctx, func(tx repository.ProductRepository) error {
		if err := tx.UpdateImage(ctx, img); err != nil {
			return err
		}
		return tx.ClearPrincipal(ctx, img.ProductID, img.ID)
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// DeleteImage 删除图片
func (s *CatalogService) DeleteImage(ctx context.Context, imageID int64) error {
	img, err := s.productRepo.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if img == nil {
		return ErrImageNotFound
	}
	if err := s.productRepo.DeleteImage(ctx, imageID); err != nil {
		return err
	}
	s.removeFile(ctx, img)
	return nil
}

// removeFile 清理已上传文件，失败只记日志
func (s *CatalogService) removeFile(ctx context.Context, img *model.ProductImage) {
	if !img.Uploaded || s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, img.URL); err != nil {
		zap.L().Warn("delete image file failed", zap.String("url", img.URL), zap.Error(err))
	}
}

// ==================== 变体 ====================

// ListVariants 变体列表，productID 为 0 时返回全部
func (s *CatalogService) ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	return s.productRepo.ListVariants(ctx, repository.VariantFilter{ProductID: productID})
}

// CreateVariant 创建变体，SKU 为空时按 名称-颜色-尺码 生成
func (s *CatalogService) CreateVariant(ctx context.Context, req *dto.VariantRequest) (*model.ProductVariant, error) {
	v := &model.ProductVariant{Status: model.StatusActive}
	if err := s.applyVariant(ctx, v, req); err != nil {
		return nil, err
	}
	if err := s.productRepo.CreateVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}
	return v, nil
}

// UpdateVariant 更新变体
func (s *CatalogService) UpdateVariant(ctx context.Context, id int64, req *dto.VariantRequest) (*model.ProductVariant, error) {
	v, err := s.productRepo.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVariantNotFound
	}
	if req.ProductID == 0 {
		req.ProductID = v.ProductID
	}
	if err := s.applyVariant(ctx, v, req); err != nil {
		return nil, err
	}
	if err := s.productRepo.UpdateVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("update variant: %w", err)
	}
	return v, nil
}

// DeleteVariant 删除变体
func (s *CatalogService) DeleteVariant(ctx context.Context, id int64) error {
	v, err := s.productRepo.GetVariant(ctx, id)
	if err != nil {
		return err
	}
	if v == nil {
		return ErrVariantNotFound
	}
	return s.productRepo.DeleteVariant(ctx, id)
}

func (s *CatalogService) applyVariant(ctx context.Context, v *model.ProductVariant, req *dto.VariantRequest) error {
	fe := FieldErrors{}

	var product *model.Product
	if req.ProductID <= 0 {
		fe.Add("product_id", "this field is required")
	} else {
		p, err := s.productRepo.GetByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			fe.Add("product_id", "product does not exist")
		}
		product = p
	}

	size, ok := wizard.ParseSize(strings.ToUpper(strings.TrimSpace(req.Size)))
	if !ok {
		fe.Add("size", "size must be one of S, M, L, XL")
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		fe.Add("color", "this field is required")
	}
	if !req.Price.IsPositive() {
		fe.Add("price", "price must be greater than zero")
	}
	if req.Cost.IsNegative() {
		fe.Add("cost", "cost must be zero or greater")
	}
	if req.Stock < 0 {
		fe.Add("stock", "stock must be zero or greater")
	}
	if err := fe.OrNil(); err != nil {
		return err
	}

	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		sku = wizard.SKU(product.Name, color, size)
	}
	exists, err := s.productRepo.ExistsSKU(ctx, sku, v.ID)
	if err != nil {
		return err
	}
	if exists {
		fe.Add("sku", "a variant with this SKU already exists")
		return fe
	}

	v.ProductID = req.ProductID
	v.SKU = sku
	v.Size = string(size)
	v.Color = color
	v.Price = req.Price.Round(2)
	v.Cost = req.Cost.Round(2)
	v.Stock = req.Stock
	v.Barcode = strings.TrimSpace(req.Barcode)
	if req.Status != "" {
		v.Status = req.Status
	}
	return nil
}

// ==================== 店面 ====================

// ShopProducts 店面商品：启用的商品且至少有一个启用变体
func (s *CatalogService) ShopProducts(ctx context.Context) ([]storefront.Product, error) {
	list, _, err := s.productRepo.List(ctx, repository.ProductFilter{Status: model.StatusActive, PageSize: -1})
	if err != nil {
		return nil, err
	}
	out := make([]storefront.Product, 0, len(list))
	for i := range list {
		if sp, ok := ToShopProduct(&list[i]); ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

// ToShopProduct 商品转店面展示结构，颜色与尺码取自启用变体
func ToShopProduct(p *model.Product) (storefront.Product, bool) {
	colors := []string{}
	sizes := []string{}
	seenColor := map[string]bool{}
	seenSize := map[string]bool{}
	stock := 0
	active := 0
	for _, v := range p.Variants {
		if v.Status != model.StatusActive {
			continue
		}
		active++
		stock += v.Stock
		if !seenColor[v.Color] {
			seenColor[v.Color] = true
			colors = append(colors, v.Color)
		}
		seenSize[v.Size] = true
	}
	if active == 0 {
		return storefront.Product{}, false
	}
	for _, size := range model.Sizes {
		if seenSize[size] {
			sizes = append(sizes, size)
		}
	}

	category := ""
	if p.Category != nil {
		category = p.Category.Name
	}
	return storefront.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    category,
		Gender:      p.Gender,
		Price:       p.MinPrice(),
		Colors:      colors,
		Sizes:       sizes,
		ImageURL:    p.PrincipalImageURL(),
		Stock:       stock,
	}, true
}

// roundMoney 金额保留两位
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
