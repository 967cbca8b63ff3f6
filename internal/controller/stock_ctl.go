package controller

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/middleware"
	"shopsmart_v1_202610/internal/service"
)

// StockController 库存控制器
type StockController struct {
	stock    *service.StockService
	forecast *service.ForecastService
}

// NewStockController 创建库存控制器
func NewStockController(stock *service.StockService, forecast *service.ForecastService) *StockController {
	return &StockController{stock: stock, forecast: forecast}
}

// ==================== 库存 ====================

// Move 登记库存变动
// @Summary 登记库存变动
// @Description in 入库，out 出库，adjust 直接设为 quantity
// @Tags Stock
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.StockMovementRequest true "变动"
// @Success 200 {object} model.StockMovement
// @Failure 409 {object} map[string]interface{}
// @Router /admin/stock/movements [post]
func (c *StockController) Move(ctx *gin.Context) {
	var req dto.StockMovementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	m, err := c.stock.Move(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "stock updated", m)
}

// Movements 库存流水
// @Summary 库存流水
// @Tags Stock
// @Produce json
// @Security BearerAuth
// @Param variant_id query int false "变体 ID"
// @Param type query string false "类型"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} map[string]interface{}
// @Router /admin/stock/movements [get]
func (c *StockController) Movements(ctx *gin.Context) {
	var q dto.StockMovementQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}
	q.Page, q.PageSize = pageOf(q.Page, q.PageSize)

	list, total, err := c.stock.Movements(ctx.Request.Context(), &q)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, gin.H{"list": list, "total": total})
}

// LowStock 低库存变体
// @Summary 低库存变体
// @Tags Stock
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /admin/stock/low [get]
func (c *StockController) LowStock(ctx *gin.Context) {
	list, err := c.stock.LowStock(ctx.Request.Context())
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, gin.H{"threshold": c.stock.Threshold(), "list": list})
}

// Export 导出库存 CSV
// @Summary 导出库存 CSV
// @Tags Stock
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /admin/stock/export [get]
func (c *StockController) Export(ctx *gin.Context) {
	filename := fmt.Sprintf("stock-%s.csv", time.Now().Format("20060102"))
	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := c.stock.ExportCSV(ctx.Request.Context(), ctx.Writer); err != nil {
		failErr(ctx, err)
	}
}

// ==================== 预测 ====================

// Forecast 销售预测
// @Summary 销售预测
// @Description 按历史日销量做线性趋势外推，并给出补货建议
// @Tags Stock
// @Produce json
// @Security BearerAuth
// @Param category_id query int false "分类"
// @Param history_days query int false "历史天数"
// @Param horizon_days query int false "预测天数"
// @Param top query int false "补货建议条数"
// @Success 200 {object} dto.ForecastResponse
// @Router /admin/forecast [get]
func (c *StockController) Forecast(ctx *gin.Context) {
	var req dto.ForecastRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	resp, err := c.forecast.Forecast(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, resp)
}
