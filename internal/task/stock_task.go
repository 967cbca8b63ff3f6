package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shopsmart_v1_202610/internal/model"
)

// LowStockSource 低库存查询
type LowStockSource interface {
	LowStock(ctx context.Context) ([]model.ProductVariant, error)
	Threshold() int
}

// StockAlertTask 每小时检查低库存
// 同一变体只在首次跌破阈值时告警，补货后重新计入
type StockAlertTask struct {
	stock   LowStockSource
	spec    string
	timeout time.Duration
	cron    *cron.Cron

	mu      sync.Mutex
	alerted map[int64]bool
}

// NewStockAlertTask 创建低库存告警任务
func NewStockAlertTask(stock LowStockSource) *StockAlertTask {
	return &StockAlertTask{
		stock:   stock,
		spec:    "0 0 * * * *",
		timeout: 2 * time.Minute,
		cron:    cron.New(cron.WithSeconds()),
		alerted: make(map[int64]bool),
	}
}

// Start 启动定时任务，并立即执行一次
func (t *StockAlertTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		_, _ = t.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		_, _ = t.RunOnce(ctx)
	}()

	t.cron.Start()
	zap.L().Info("stock alert task started", zap.String("spec", t.spec), zap.Int("threshold", t.stock.Threshold()))
	return nil
}

// Stop 停止并等待正在执行的任务
func (t *StockAlertTask) Stop() {
	<-t.cron.Stop().Done()
}

// RunOnce 执行一轮检查，返回本轮新增告警的变体
func (t *StockAlertTask) RunOnce(ctx context.Context) ([]model.ProductVariant, error) {
	list, err := t.stock.LowStock(ctx)
	if err != nil {
		zap.L().Error("low stock query failed", zap.Error(err))
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	low := make(map[int64]bool, len(list))
	var fresh []model.ProductVariant
	for _, v := range list {
		low[v.ID] = true
		if t.alerted[v.ID] {
			continue
		}
		fresh = append(fresh, v)
		zap.L().Warn("low stock",
			zap.Int64("variant_id", v.ID),
			zap.String("sku", v.SKU),
			zap.Int("stock", v.Stock),
			zap.Int("threshold", t.stock.Threshold()),
		)
	}
	t.alerted = low
	return fresh, nil
}
