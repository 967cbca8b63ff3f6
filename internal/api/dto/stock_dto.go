package dto

// ==================== 库存 ====================

// StockMovementRequest 库存变动
type StockMovementRequest struct {
	VariantID int64  `json:"variant_id" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=in out adjust"`
	Quantity  int    `json:"quantity" binding:"gte=0"`
	Reason    string `json:"reason" binding:"max=255"`
}

// StockMovementQuery 流水查询
type StockMovementQuery struct {
	VariantID int64  `form:"variant_id"`
	Type      string `form:"type"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=50"`
}

// StockRow 库存导出行
type StockRow struct {
	SKU         string `csv:"sku" json:"sku"`
	ProductName string `csv:"product" json:"product"`
	Size        string `csv:"size" json:"size"`
	Color       string `csv:"color" json:"color"`
	Stock       int    `csv:"stock" json:"stock"`
	Price       string `csv:"price" json:"price"`
	Status      string `csv:"status" json:"status"`
}

// ==================== 预测 ====================

// ForecastRequest 销售预测请求
type ForecastRequest struct {
	CategoryID  int64 `form:"category_id"`
	HistoryDays int   `form:"history_days,default=90"`
	HorizonDays int   `form:"horizon_days,default=30"`
	TopProducts int   `form:"top,default=5"`
}

// ForecastProduct 单品预测
type ForecastProduct struct {
	ProductID      int64   `json:"product_id"`
	Name           string  `json:"name"`
	SoldUnits      int     `json:"sold_units"`
	PredictedUnits float64 `json:"predicted_units"`
	CurrentStock   int     `json:"current_stock"`
	Shortfall      int     `json:"shortfall"`
}

// ForecastResponse 销售预测结果
type ForecastResponse struct {
	CategoryID     int64             `json:"category_id"`
	HistoryDays    int               `json:"history_days"`
	HorizonDays    int               `json:"horizon_days"`
	TotalUnits     int               `json:"total_units"`
	DailyMean      float64           `json:"daily_mean"`
	DailyStdDev    float64           `json:"daily_std_dev"`
	Trend          float64           `json:"trend"` // 回归斜率，单位/天
	PredictedUnits float64           `json:"predicted_units"`
	LowerBound     float64           `json:"lower_bound"` // 95% 区间
	UpperBound     float64           `json:"upper_bound"`
	Restock        []ForecastProduct `json:"restock"`
}
