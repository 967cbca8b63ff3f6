package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/internal/repository"
)

// ==================== 测试辅助 ====================

func newServiceTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "连接测试数据库失败")
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestCatalog(t *testing.T, db *gorm.DB) *CatalogService {
	storage, err := NewLocalStorage(&StorageConfig{LocalDir: t.TempDir(), PublicURL: "/uploads/"})
	require.NoError(t, err)
	return NewCatalogService(repository.NewCategoryRepository(db), repository.NewProductRepository(db), storage)
}

// seedCatalog 创建分类、商品和一个变体
func seedCatalog(t *testing.T, svc *CatalogService, name string, stock int) (*model.Product, *model.ProductVariant) {
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, &dto.CategoryRequest{Name: "Cat " + name})
	require.NoError(t, err)
	p, err := svc.CreateProduct(ctx, &dto.ProductRequest{Name: name, CategoryID: cat.ID, Description: "algodón"})
	require.NoError(t, err)
	v, err := svc.CreateVariant(ctx, &dto.VariantRequest{
		ProductID: p.ID,
		Size:      "L",
		Color:     "Azul",
		Price:     decimal.RequireFromString("19.99"),
		Cost:      decimal.RequireFromString("8"),
		Stock:     stock,
	})
	require.NoError(t, err)
	return p, v
}

// ==================== 分类 ====================

func TestCatalog_CategoryNesting(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestCatalog(t, db)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, &dto.CategoryRequest{Name: "Ropa"})
	require.NoError(t, err)
	child, err := svc.CreateCategory(ctx, &dto.CategoryRequest{Name: "Camisas", ParentID: &root.ID})
	require.NoError(t, err)

	// 只允许一层嵌套
	_, err = svc.CreateCategory(ctx, &dto.CategoryRequest{Name: "Manga corta", ParentID: &child.ID})
	fe, ok := AsFieldErrors(err)
	require.True(t, ok, "err = %v", err)
	assert.Contains(t, fe, "parent_id")

	_, err = svc.CreateCategory(ctx, &dto.CategoryRequest{Name: "ropa"})
	fe, ok = AsFieldErrors(err)
	require.True(t, ok, "重名应返回字段错误: %v", err)
	assert.Contains(t, fe, "name")

	assert.ErrorIs(t, svc.DeleteCategory(ctx, root.ID), ErrCategoryInUse)
	assert.NoError(t, svc.DeleteCategory(ctx, child.ID))
}

// ==================== 商品 ====================

func TestCatalog_CreateProductAssignsCode(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestCatalog(t, db)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, &dto.CategoryRequest{Name: "Poleras"})
	require.NoError(t, err)

	p, err := svc.CreateProduct(ctx, &dto.ProductRequest{Name: "Polera Básica", CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("PRD-%05d", p.ID), p.Code)
	assert.Equal(t, model.StatusActive, p.Status)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Poleras", p.Category.Name)

	_, err = svc.CreateProduct(ctx, &dto.ProductRequest{Name: "polera básica", CategoryID: cat.ID, Code: p.Code})
	fe, ok := AsFieldErrors(err)
	require.True(t, ok, "err = %v", err)
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "code")
}

func TestCatalog_CreateProductRequiresFields(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestCatalog(t, db)

	_, err := svc.CreateProduct(context.Background(), &dto.ProductRequest{CategoryID: 999})
	fe, ok := AsFieldErrors(err)
	require.True(t, ok, "err = %v", err)
	assert.Equal(t, []string{"this field is required"}, fe["name"])
	assert.Equal(t, []string{"invalid category"}, fe["category_id"])
}

// ==================== 图片 ====================

func TestCatalog_AddImagePrincipalIsUnique(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestCatalog(t, db)
	ctx := context.Background()
	p, _ := seedCatalog(t, svc, "Camisa", 3)

	first, err := svc.AddImage(ctx, &dto.ImageUpload{ProductID: p.ID, URL: "https://cdn.example.com/a.jpg", IsPrincipal: true})
	require.NoError(t, err)
	second, err := svc.AddImage(ctx, &dto.ImageUpload{
		ProductID:   p.ID,
		Filename:    "b.png",
		ContentType: "image/png",
		Data:        []byte("png"),
		IsPrincipal: true,
	})
	require.NoError(t, err)
	assert.True(t, second.Uploaded)

	images, err := svc.ListImages(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	for _, img := range images {
		assert.Equal(t, img.ID == second.ID, img.IsPrincipal, "image %d", img.ID)
	}

	_, err = svc.SetPrincipalImage(ctx, first.ID)
	require.NoError(t, err)
	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got.PrincipalImageURL())
}

func TestCatalog_AddImageNeedsExactlyOneSource(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestCatalog(t, db)
	p, _ := seedCatalog(t, svc, "Camisa", 3)

	_, err := svc.AddImage(context.Background(), &dto.ImageUpload{ProductID: p.ID})
	_, ok := AsFieldErrors(err)
	assert.True(t, ok, "err = %v", err)

	_, err = svc.AddImage(context.Background(), &dto.ImageUpload{
		ProductID: p.ID,
		Filename:  "x.jpg",
		Data:      []byte("x"),
		URL:       "https://cdn.example.com/x.jpg",
	})
	_, ok = AsFieldErrors(err)
	assert.True(t, ok, "err = %v", err)
}

// ==================== 变体 ====================

func TestCatalog_VariantSKU(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestCatalog(t, db)
	ctx := context.Background()
	p, v := seedCatalog(t, svc, "Camisa", 3)

	assert.Equal(t, "CAMISA-AZUL-L", v.SKU)
	assert.Equal(t, "19.99", v.Price.StringFixed(2))

	// 相同组合 SKU 冲突
	_, err := svc.CreateVariant(ctx, &dto.VariantRequest{
		ProductID: p.ID, Size: "l", Color: "azul", Price: decimal.NewFromInt(10),
	})
	fe, ok := AsFieldErrors(err)
	require.True(t, ok, "err = %v", err)
	assert.Contains(t, fe, "sku")

	_, err = svc.CreateVariant(ctx, &dto.VariantRequest{
		ProductID: p.ID, Size: "XXL", Color: "", Price: decimal.Zero, Cost: decimal.NewFromInt(-1), Stock: -2,
	})
	fe, ok = AsFieldErrors(err)
	require.True(t, ok, "err = %v", err)
	for _, field := range []string{"size", "color", "price", "cost", "stock"} {
		assert.Contains(t, fe, field)
	}
}

func TestCatalog_ShopProducts(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestCatalog(t, db)
	ctx := context.Background()
	p, _ := seedCatalog(t, svc, "Camisa", 3)

	_, err := svc.CreateVariant(ctx, &dto.VariantRequest{
		ProductID: p.ID, Size: "S", Color: "Rojo", Price: decimal.RequireFromString("15.50"), Stock: 2,
	})
	require.NoError(t, err)

	// 无变体的商品不上架
	_, err = svc.CreateProduct(ctx, &dto.ProductRequest{Name: "Vacío", CategoryID: p.CategoryID})
	require.NoError(t, err)

	list, err := svc.ShopProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	sp := list[0]
	assert.Equal(t, "Camisa", sp.Name)
	assert.Equal(t, "Cat Camisa", sp.Category)
	assert.Equal(t, []string{"Azul", "Rojo"}, sp.Colors)
	assert.Equal(t, []string{"S", "L"}, sp.Sizes)
	assert.Equal(t, "15.50", sp.Price.StringFixed(2))
	assert.Equal(t, 5, sp.Stock)
}

func TestCatalog_DeleteProductFreesSKU(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestCatalog(t, db)
	ctx := context.Background()
	p, _ := seedCatalog(t, svc, "Camisa", 3)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err := svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	p2, err := svc.CreateProduct(ctx, &dto.ProductRequest{Name: "Camisa", CategoryID: p.CategoryID})
	require.NoError(t, err)
	v, err := svc.CreateVariant(ctx, &dto.VariantRequest{
		ProductID: p2.ID, Size: "L", Color: "Azul", Price: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	assert.Equal(t, "CAMISA-AZUL-L", v.SKU)
}
