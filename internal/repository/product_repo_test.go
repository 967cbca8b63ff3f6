package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopsmart_v1_202610/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *model.Product {
	cat := &model.Category{Name: "Camisas-" + name, Status: model.StatusActive}
	if err := db.Create(cat).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	p := &model.Product{Name: name, CategoryID: cat.ID, Status: model.StatusActive}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestProductRepo_GetByIDPreloads(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, "Camisa")
	repo.CreateImage(ctx, &model.ProductImage{ProductID: p.ID, URL: "a.jpg", IsPrincipal: true})
	repo.CreateVariant(ctx, &model.ProductVariant{ProductID: p.ID, SKU: "CAMISA-AZUL-L", Size: "L", Color: "Azul", Price: decimal.NewFromInt(25)})

	found, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Category == nil || found.Category.Name != "Camisas-Camisa" {
		t.Errorf("Category not preloaded: %+v", found.Category)
	}
	if len(found.Images) != 1 || len(found.Variants) != 1 {
		t.Fatalf("images=%d variants=%d, want 1/1", len(found.Images), len(found.Variants))
	}
	if !found.Variants[0].Price.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Price = %s, want 25", found.Variants[0].Price)
	}

	missing, err := repo.GetByID(ctx, 9999)
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestProductRepo_ClearPrincipal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, "Polera")
	a := &model.ProductImage{ProductID: p.ID, URL: "a.jpg", IsPrincipal: true}
	b := &model.ProductImage{ProductID: p.ID, URL: "b.jpg", IsPrincipal: true}
	repo.CreateImage(ctx, a)
	repo.CreateImage(ctx, b)

	if err := repo.ClearPrincipal(ctx, p.ID, b.ID); err != nil {
		t.Fatalf("ClearPrincipal() error = %v", err)
	}

	images, _ := repo.ListImages(ctx, p.ID)
	principal := 0
	for _, img := range images {
		if img.IsPrincipal {
			principal++
			if img.ID != b.ID {
				t.Errorf("principal image = %d, want %d", img.ID, b.ID)
			}
		}
	}
	if principal != 1 {
		t.Errorf("principal count = %d, want 1", principal)
	}
}

func TestProductRepo_ListKeyword(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "Camisa Oxford")
	seedProduct(t, db, "Vestido")

	list, total, err := repo.List(ctx, ProductFilter{Keyword: "camisa", PageSize: -1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Name != "Camisa Oxford" {
		t.Errorf("List() = %d/%d, want the single Camisa", len(list), total)
	}
}

func TestProductRepo_SKUFreedAfterDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, "Jean")
	v := &model.ProductVariant{ProductID: p.ID, SKU: "JEAN-AZUL-M", Size: "M", Color: "Azul", Price: decimal.NewFromInt(30)}
	repo.CreateVariant(ctx, v)

	exists, _ := repo.ExistsSKU(ctx, "JEAN-AZUL-M", 0)
	if !exists {
		t.Fatal("ExistsSKU() = false, want true")
	}
	exists, _ = repo.ExistsSKU(ctx, "JEAN-AZUL-M", v.ID)
	if exists {
		t.Error("ExistsSKU() should ignore the excluded id")
	}

	repo.DeleteVariant(ctx, v.ID)
	again := &model.ProductVariant{ProductID: p.ID, SKU: "JEAN-AZUL-M", Size: "M", Color: "Azul", Price: decimal.NewFromInt(30)}
	if err := repo.CreateVariant(ctx, again); err != nil {
		t.Errorf("CreateVariant() after delete error = %v", err)
	}
}

func TestOrderRepo_SalesSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, "Camisa")
	mk := func(no, status string, qty int) {
		o := &model.Order{
			OrderNo: no, UserID: 1, Status: status, Address: "x", City: "y", Phone: "z",
			Items: []model.OrderItem{{ProductID: p.ID, ProductName: p.Name, Quantity: qty}},
		}
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	mk("A1", model.OrderStatusPaid, 2)
	mk("A2", model.OrderStatusDelivered, 3)
	mk("A3", model.OrderStatusCancelled, 9)
	mk("A4", model.OrderStatusPending, 9)

	rows, err := repo.SalesSince(ctx, time.Now().Add(-time.Hour), p.CategoryID)
	if err != nil {
		t.Fatalf("SalesSince() error = %v", err)
	}
	sum := 0
	for _, r := range rows {
		sum += r.Quantity
	}
	if len(rows) != 2 || sum != 5 {
		t.Errorf("rows=%d sum=%d, want 2/5", len(rows), sum)
	}
}
