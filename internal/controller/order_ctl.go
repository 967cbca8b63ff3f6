package controller

import (
	"github.com/gin-gonic/gin"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/middleware"
	"shopsmart_v1_202610/internal/service"
)

// OrderController 后台订单控制器
type OrderController struct {
	svc *service.OrderService
}

// NewOrderController 创建订单控制器
func NewOrderController(svc *service.OrderService) *OrderController {
	return &OrderController{svc: svc}
}

// ==================== 订单列表与详情 ====================

// List 订单列表
// @Summary 订单列表
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} map[string]interface{}
// @Router /admin/orders [get]
func (c *OrderController) List(ctx *gin.Context) {
	var req dto.OrderListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	req.Page, req.PageSize = pageOf(req.Page, req.PageSize)

	orders, total, err := c.svc.ListOrders(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, gin.H{
		"list":      orders,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

// GetByID 订单详情
// @Summary 订单详情
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单 ID"
// @Success 200 {object} model.Order
// @Failure 404 {object} map[string]interface{}
// @Router /admin/orders/{id} [get]
func (c *OrderController) GetByID(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	order, err := c.svc.GetOrder(ctx.Request.Context(), 0, id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, order)
}

// Track 订单追踪
// @Summary 订单追踪（后台）
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单 ID"
// @Success 200 {object} dto.TrackingResponse
// @Router /admin/orders/{id}/track [get]
func (c *OrderController) Track(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	resp, err := c.svc.Track(ctx.Request.Context(), 0, id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, resp)
}

// UpdateStatus 更新订单状态
// @Summary 更新订单状态
// @Description 取消已支付订单时回补库存
// @Tags Order
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单 ID"
// @Param request body dto.OrderStatusRequest true "新状态"
// @Success 200 {object} model.Order
// @Failure 409 {object} map[string]interface{}
// @Router /admin/orders/{id}/status [put]
func (c *OrderController) UpdateStatus(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	var req dto.OrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	order, err := c.svc.UpdateStatus(ctx.Request.Context(), middleware.GetUserID(ctx), id, &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "status updated", order)
}

// ==================== 门店收银 ====================

// InStoreSale 门店收银
// @Summary 门店收银
// @Description 按 SKU 或商品编码录入，现金或刷卡，订单直接记为已支付
// @Tags Order
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaleRequest true "收银明细"
// @Success 200 {object} model.Order
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /admin/sales [post]
func (c *OrderController) InStoreSale(ctx *gin.Context) {
	var req dto.SaleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	order, err := c.svc.InStoreSale(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "sale recorded", order)
}
