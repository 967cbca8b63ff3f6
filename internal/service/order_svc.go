package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/internal/repository"
)

// ==================== OrderService 订单服务 ====================

// OrderService 结算、支付、追踪与后台订单管理
type OrderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	stockRepo    repository.StockRepository
	shippingCost decimal.Decimal
}

// NewOrderService 创建订单服务，shippingCost 为固定运费
func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository,
	stockRepo repository.StockRepository, shippingCost decimal.Decimal) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		stockRepo:    stockRepo,
		shippingCost: shippingCost,
	}
}

// ShippingCost 固定运费
func (s *OrderService) ShippingCost() decimal.Decimal {
	return s.shippingCost
}

// ==================== 结算 ====================

// Checkout 下单：校验收货信息，逐行扣减变体库存，写入订单
// 全部在一个事务内完成，任一行库存不足则整体回滚
func (s *OrderService) Checkout(ctx context.Context, userID int64, req *dto.CheckoutRequest, lines []dto.CheckoutLine) (*model.Order, error) {
	fe := FieldErrors{}
	if strings.TrimSpace(req.Address) == "" {
		fe.Add("address", "this field is required")
	}
	if strings.TrimSpace(req.City) == "" {
		fe.Add("city", "this field is required")
	}
	if strings.TrimSpace(req.Phone) == "" {
		fe.Add("phone", "this field is required")
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	order := &model.Order{
		OrderNo:       newOrderNo(),
		UserID:        userID,
		Status:        model.OrderStatusPending,
		Channel:       model.OrderChannelOnline,
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		Phone:         strings.TrimSpace(req.Phone),
		Notes:         req.Notes,
		PaymentMethod: req.PaymentMethod,
		ShippingCost:  roundMoney(s.shippingCost),
	}
	if err := s.place(ctx, userID, order, lines); err != nil {
		return nil, err
	}

	zap.L().Info("order placed",
		zap.String("order_no", order.OrderNo),
		zap.Int64("user_id", userID),
		zap.String("total", order.Total.StringFixed(2)))
	return order, nil
}

// place 逐行扣减变体库存并写入订单、库存流水与事件
// 全部在一个事务内完成，任一行库存不足则整体回滚
func (s *OrderService) place(ctx context.Context, operatorID int64, order *model.Order, lines []dto.CheckoutLine) error {
	return s.orderRepo.Transaction(ctx, func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)
		stocks := s.stockRepo.WithTx(tx)
		orders := s.orderRepo.WithTx(tx)

		subtotal := decimal.Zero
		var moves []*model.StockMovement
		for _, line := range lines {
			item := model.OrderItem{
				ProductID:   line.ProductID,
				ProductName: line.Name,
				Color:       line.Color,
				Size:        line.Size,
				Quantity:    line.Quantity,
				UnitPrice:   roundMoney(line.UnitPrice),
				LineTotal:   roundMoney(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))),
			}

			v, err := s.lockVariant(ctx, products, line)
			if err != nil {
				return err
			}
			if v != nil {
				if v.Stock < line.Quantity {
					return fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, v.SKU, v.Stock)
				}
				if err := products.UpdateVariantStock(ctx, v.ID, v.Stock-line.Quantity); err != nil {
					return err
				}
				item.VariantID = &v.ID
				item.SKU = v.SKU
				moves = append(moves, &model.StockMovement{
					VariantID: v.ID,
					Type:      model.StockSale,
					Quantity:  line.Quantity,
					Before:    v.Stock,
					After:     v.Stock - line.Quantity,
					Reason:    "order " + order.OrderNo,
					CreatedBy: operatorID,
				})
			}

			subtotal = subtotal.Add(item.LineTotal)
			order.Items = append(order.Items, item)
		}

		order.Subtotal = roundMoney(subtotal)
		order.Total = roundMoney(subtotal.Add(order.ShippingCost))
		if err := orders.Create(ctx, order); err != nil {
			return err
		}
		for _, m := range moves {
			m.OrderID = &order.ID
			if err := stocks.Create(ctx, m); err != nil {
				return err
			}
		}
		if err := orders.AddEvent(ctx, &model.OrderEvent{OrderID: order.ID, Status: model.OrderStatusPending, Operator: operatorID}); err != nil {
			return err
		}
		if order.Status == model.OrderStatusPaid {
			return orders.AddEvent(ctx, &model.OrderEvent{OrderID: order.ID, Status: model.OrderStatusPaid, Note: order.PaymentMethod, Operator: operatorID})
		}
		return nil
	})
}

// lockVariant 锁定购物车行对应的变体；未选择规格时返回 nil
func (s *OrderService) lockVariant(ctx context.Context, products repository.ProductRepository, line dto.CheckoutLine) (*model.ProductVariant, error) {
	if line.VariantID > 0 {
		return products.GetVariantForUpdate(ctx, line.VariantID)
	}
	if line.Color == "" && line.Size == "" {
		return nil, nil
	}
	v, err := products.FindVariant(ctx, line.ProductID, line.Color, line.Size)
	if err != nil {
		return nil, err
	}
	if v == nil {
		fe := FieldErrors{}
		fe.Add("items", fmt.Sprintf("%s (%s / %s) is not available", line.Name, line.Color, line.Size))
		return nil, fe
	}
	return products.GetVariantForUpdate(ctx, v.ID)
}

func newOrderNo() string {
	return "ORD-" + time.Now().Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// ==================== 门店收银 ====================

// InStoreSale 卖家在门店收银：按 SKU 或商品编码定位变体，无运费，直接记为已支付
// 与店面下单共用同一个扣库存事务
func (s *OrderService) InStoreSale(ctx context.Context, sellerID int64, req *dto.SaleRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrCartEmpty
	}
	fe := FieldErrors{}
	lines := make([]dto.CheckoutLine, 0, len(req.Items))
	for _, it := range req.Items {
		v, msg, err := s.variantByCode(ctx, it.Code)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			fe.Add("items", msg)
			continue
		}
		lines = append(lines, dto.CheckoutLine{
			ProductID: v.ProductID,
			VariantID: v.ID,
			Name:      v.Product.Name,
			Color:     v.Color,
			Size:      v.Size,
			Quantity:  it.Quantity,
			UnitPrice: v.Price,
		})
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}

	now := time.Now()
	order := &model.Order{
		OrderNo:       newOrderNo(),
		UserID:        sellerID,
		Status:        model.OrderStatusPaid,
		Channel:       model.OrderChannelStore,
		Notes:         req.Notes,
		PaymentMethod: req.PaymentMethod,
		PaymentInfo:   datatypes.JSONMap{"channel": model.OrderChannelStore},
		PaidAt:        &now,
		ShippingCost:  decimal.Zero,
	}
	if err := s.place(ctx, sellerID, order, lines); err != nil {
		return nil, err
	}

	zap.L().Info("in-store sale",
		zap.String("order_no", order.OrderNo),
		zap.Int64("seller_id", sellerID),
		zap.String("method", order.PaymentMethod),
		zap.String("total", order.Total.StringFixed(2)))
	return s.GetOrder(ctx, 0, order.ID)
}

// variantByCode SKU 优先；商品编码只在该商品恰好有一个启用变体时可用
// 找不到或无法确定时返回给收银员的提示
func (s *OrderService) variantByCode(ctx context.Context, raw string) (*model.ProductVariant, string, error) {
	code := strings.TrimSpace(raw)
	list, err := s.productRepo.ListVariants(ctx, repository.VariantFilter{SKU: code, Status: model.StatusActive})
	if err != nil {
		return nil, "", err
	}
	if len(list) == 1 && list[0].Product != nil && list[0].Product.Status == model.StatusActive {
		return &list[0], "", nil
	}

	p, err := s.productRepo.GetByCode(ctx, code)
	if err == nil && p == nil && code != strings.ToUpper(code) {
		p, err = s.productRepo.GetByCode(ctx, strings.ToUpper(code))
	}
	if err != nil {
		return nil, "", err
	}
	if p == nil || p.Status != model.StatusActive {
		return nil, fmt.Sprintf("%s: product not found", code), nil
	}
	list, err = s.productRepo.ListVariants(ctx, repository.VariantFilter{ProductID: p.ID, Status: model.StatusActive})
	if err != nil {
		return nil, "", err
	}
	switch len(list) {
	case 0:
		return nil, fmt.Sprintf("%s: no active variants", code), nil
	case 1:
		return &list[0], "", nil
	}
	return nil, fmt.Sprintf("%s: several variants, scan the SKU", code), nil
}

// ==================== 支付 ====================

// Pay 支付订单，userID 为 0 时不校验归属
func (s *OrderService) Pay(ctx context.Context, userID, orderID int64, req *dto.PaymentRequest) (*model.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanPay() {
		return nil, ErrOrderNotPayable
	}

	now := time.Now()
	err = s.orderRepo.Transaction(ctx, func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		if err := orders.UpdateFields(ctx, order.ID, map[string]interface{}{
			"status":         model.OrderStatusPaid,
			"payment_method": req.Method,
			"payment_info":   datatypes.JSONMap{"reference": req.Reference},
			"paid_at":        now,
		}); err != nil {
			return err
		}
		return orders.AddEvent(ctx, &model.OrderEvent{OrderID: order.ID, Status: model.OrderStatusPaid, Note: req.Method, Operator: userID})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, userID, orderID)
}

// ==================== 查询 ====================

// GetOrder 订单详情，userID 非 0 时只能查看自己的订单
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || (userID != 0 && order.UserID != userID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// MyOrders 当前用户订单
func (s *OrderService) MyOrders(ctx context.Context, userID int64, req *dto.OrderListRequest) ([]model.Order, int64, error) {
	return s.orderRepo.List(ctx, repository.OrderFilter{
		UserID:   userID,
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

// ListOrders 后台订单列表
func (s *OrderService) ListOrders(ctx context.Context, req *dto.OrderListRequest) ([]model.Order, int64, error) {
	return s.orderRepo.List(ctx, repository.OrderFilter{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

// Track 订单追踪时间线
func (s *OrderService) Track(ctx context.Context, userID, orderID int64) (*dto.TrackingResponse, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return BuildTracking(order), nil
}

// BuildTracking 由订单事件生成时间线
func BuildTracking(order *model.Order) *dto.TrackingResponse {
	reached := map[string]model.OrderEvent{}
	for _, e := range order.Events {
		reached[e.Status] = e
	}

	flow := []string{model.OrderStatusPending, model.OrderStatusPaid, model.OrderStatusShipped, model.OrderStatusDelivered}
	if _, ok := reached[model.OrderStatusCancelled]; ok || order.Status == model.OrderStatusCancelled {
		// 取消的订单只展示实际经过的节点
		var trimmed []string
		for _, st := range flow {
			if _, ok := reached[st]; ok {
				trimmed = append(trimmed, st)
			}
		}
		flow = append(trimmed, model.OrderStatusCancelled)
	}

	resp := &dto.TrackingResponse{
		OrderNo:      order.OrderNo,
		Status:       order.Status,
		TrackingCode: order.TrackingCode,
	}
	for _, st := range flow {
		step := dto.TrackingStep{Status: st}
		if e, ok := reached[st]; ok {
			at := e.CreatedAt
			step.Done = true
			step.At = &at
			step.Note = e.Note
		}
		resp.Steps = append(resp.Steps, step)
	}
	return resp
}

// ==================== 后台状态流转 ====================

// UpdateStatus 修改订单状态；取消时回补已扣减的库存
func (s *OrderService) UpdateStatus(ctx context.Context, operatorID, orderID int64, req *dto.OrderStatusRequest) (*model.Order, error) {
	order, err := s.GetOrder(ctx, 0, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, req.Status)
	}

	now := time.Now()
	fields := map[string]interface{}{"status": req.Status}
	switch req.Status {
	case model.OrderStatusPaid:
		fields["paid_at"] = now
	case model.OrderStatusShipped:
		fields["shipped_at"] = now
		if req.TrackingCode != "" {
			fields["tracking_code"] = req.TrackingCode
		}
	case model.OrderStatusDelivered:
		fields["delivered_at"] = now
	case model.OrderStatusCancelled:
		fields["cancelled_at"] = now
	}

	err = s.orderRepo.Transaction(ctx, func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		if err := orders.UpdateFields(ctx, order.ID, fields); err != nil {
			return err
		}
		if req.Status == model.OrderStatusCancelled {
			if err := s.restock(ctx, tx, operatorID, order); err != nil {
				return err
			}
		}
		return orders.AddEvent(ctx, &model.OrderEvent{OrderID: order.ID, Status: req.Status, Note: req.Note, Operator: operatorID})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order status changed",
		zap.String("order_no", order.OrderNo),
		zap.String("from", order.Status),
		zap.String("to", req.Status),
		zap.Int64("operator", operatorID))
	return s.GetOrder(ctx, 0, orderID)
}

func (s *OrderService) restock(ctx context.Context, tx *gorm.DB, operatorID int64, order *model.Order) error {
	products := s.productRepo.WithTx(tx)
	stocks := s.stockRepo.WithTx(tx)
	for _, item := range order.Items {
		if item.VariantID == nil {
			continue
		}
		v, err := products.GetVariantForUpdate(ctx, *item.VariantID)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if err := products.UpdateVariantStock(ctx, v.ID, v.Stock+item.Quantity); err != nil {
			return err
		}
		if err := stocks.Create(ctx, &model.StockMovement{
			VariantID: v.ID,
			Type:      model.StockIn,
			Quantity:  item.Quantity,
			Before:    v.Stock,
			After:     v.Stock + item.Quantity,
			Reason:    "cancelled " + order.OrderNo,
			OrderID:   &order.ID,
			CreatedBy: operatorID,
		}); err != nil {
			return err
		}
	}
	return nil
}
