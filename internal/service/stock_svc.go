package service

import (
	"context"
	"io"

	"github.com/gocarina/gocsv"
	"gorm.io/gorm"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/internal/repository"
)

// ==================== StockService 库存服务 ====================

// StockService 库存变动、低库存、导出
type StockService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	stockRepo   repository.StockRepository
	lowStock    int
}

// NewStockService 创建库存服务，lowStock 为低库存阈值
func NewStockService(db *gorm.DB, productRepo repository.ProductRepository, stockRepo repository.StockRepository, lowStock int) *StockService {
	return &StockService{db: db, productRepo: productRepo, stockRepo: stockRepo, lowStock: lowStock}
}

// Threshold 低库存阈值
func (s *StockService) Threshold() int {
	return s.lowStock
}

// Move 登记一笔库存变动
// in/out 为增减数量，adjust 为盘点后的绝对数量
func (s *StockService) Move(ctx context.Context, operatorID int64, req *dto.StockMovementRequest) (*model.StockMovement, error) {
	if req.Type != model.StockAdjust && req.Quantity <= 0 {
		fe := FieldErrors{}
		fe.Add("quantity", "quantity must be greater than zero")
		return nil, fe
	}

	var movement *model.StockMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)
		v, err := products.GetVariantForUpdate(ctx, req.VariantID)
		if err != nil {
			return err
		}
		if v == nil {
			return ErrVariantNotFound
		}

		after := v.Stock
		switch req.Type {
		case model.StockIn:
			after += req.Quantity
		case model.StockOut:
			after -= req.Quantity
		case model.StockAdjust:
			after = req.Quantity
		}
		if after < 0 {
			return ErrNegativeStockLevel
		}

		if err := products.UpdateVariantStock(ctx, v.ID, after); err != nil {
			return err
		}
		movement = &model.StockMovement{
			VariantID: v.ID,
			Type:      req.Type,
			Quantity:  req.Quantity,
			Before:    v.Stock,
			After:     after,
			Reason:    req.Reason,
			CreatedBy: operatorID,
		}
		return s.stockRepo.WithTx(tx).Create(ctx, movement)
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// Movements 库存流水
func (s *StockService) Movements(ctx context.Context, q *dto.StockMovementQuery) ([]model.StockMovement, int64, error) {
	return s.stockRepo.List(ctx, repository.StockFilter{
		VariantID: q.VariantID,
		Type:      q.Type,
		Page:      q.Page,
		PageSize:  q.PageSize,
	})
}

// LowStock 库存不高于阈值的启用变体
func (s *StockService) LowStock(ctx context.Context) ([]model.ProductVariant, error) {
	threshold := s.lowStock
	return s.productRepo.ListVariants(ctx, repository.VariantFilter{MaxStock: &threshold, Status: model.StatusActive})
}

// Rows 全部变体库存行
func (s *StockService) Rows(ctx context.Context) ([]*dto.StockRow, error) {
	variants, err := s.productRepo.ListVariants(ctx, repository.VariantFilter{})
	if err != nil {
		return nil, err
	}
	rows := make([]*dto.StockRow, 0, len(variants))
	for _, v := range variants {
		name := ""
		if v.Product != nil {
			name = v.Product.Name
		}
		rows = append(rows, &dto.StockRow{
			SKU:         v.SKU,
			ProductName: name,
			Size:        v.Size,
			Color:       v.Color,
			Stock:       v.Stock,
			Price:       v.Price.StringFixed(2),
			Status:      v.Status,
		})
	}
	return rows, nil
}

// ExportCSV 导出库存 CSV
func (s *StockService) ExportCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.Rows(ctx)
	if err != nil {
		return err
	}
	return gocsv.Marshal(rows, w)
}
