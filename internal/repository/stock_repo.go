package repository

import (
	"context"

	"gorm.io/gorm"

	"shopsmart_v1_202610/internal/model"
)

// ==================== StockRepository 库存流水仓库 ====================

// StockRepository 库存流水仓库接口
type StockRepository interface {
	Create(ctx context.Context, m *model.StockMovement) error
	List(ctx context.Context, filter StockFilter) ([]model.StockMovement, int64, error)
	WithTx(tx *gorm.DB) StockRepository
}

// StockFilter 流水筛选
type StockFilter struct {
	VariantID int64
	Type      string
	Page      int
	PageSize  int
}

type stockRepo struct {
	db *gorm.DB
}

// NewStockRepository 创建库存流水仓库
func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepo{db: db}
}

func (r *stockRepo) WithTx(tx *gorm.DB) StockRepository {
	return &stockRepo{db: tx}
}

func (r *stockRepo) Create(ctx context.Context, m *model.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *stockRepo) List(ctx context.Context, filter StockFilter) ([]model.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.StockMovement{})
	if filter.VariantID > 0 {
		query = query.Where("variant_id = ?", filter.VariantID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}

	var list []model.StockMovement
	err := query.
		Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&list).Error
	return list, total, err
}
