package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopsmart_v1_202610/internal/model"
)

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 订单仓库接口
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	AddEvent(ctx context.Context, event *model.OrderEvent) error
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	SalesSince(ctx context.Context, since time.Time, categoryID int64) ([]SalesRow, error)

	WithTx(tx *gorm.DB) OrderRepository
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderFilter 订单筛选
type OrderFilter struct {
	UserID   int64
	Status   string
	Page     int
	PageSize int
}

// SalesRow 销售明细行（用于预测）
type SalesRow struct {
	ProductID   int64
	ProductName string
	Quantity    int
	CreatedAt   time.Time
}

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepo{db: tx}
}

func (r *orderRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	// 订单项随主表一起写入
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("order_no = ?", orderNo).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *orderRepo) AddEvent(ctx context.Context, event *model.OrderEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	var orders []model.Order
	err := query.
		Preload("Items").
		Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&orders).Error
	return orders, total, err
}

// SalesSince 统计时间点之后的有效销售（排除待支付与已取消）
func (r *orderRepo) SalesSince(ctx context.Context, since time.Time, categoryID int64) ([]SalesRow, error) {
	var rows []SalesRow
	query := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.product_id, oi.product_name, oi.quantity, o.created_at").
		Joins("JOIN orders AS o ON o.id = oi.order_id").
		Where("o.created_at >= ? AND o.status NOT IN ? AND o.deleted_at IS NULL AND oi.deleted_at IS NULL",
			since, []string{model.OrderStatusPending, model.OrderStatusCancelled})
	if categoryID > 0 {
		query = query.Joins("JOIN products AS p ON p.id = oi.product_id").Where("p.category_id = ?", categoryID)
	}
	err := query.Order("o.created_at ASC").Scan(&rows).Error
	return rows, err
}
