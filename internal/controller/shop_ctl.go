package controller

import (
	"github.com/gin-gonic/gin"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/console"
	"shopsmart_v1_202610/internal/storefront"
)

// ==================== ShopController 店面 ====================

// ShopController 店面浏览、购物车与下单
// 购物车跟随会话，访客也可以加购，下单需要登录
type ShopController struct {
	sessions *console.Manager
}

// NewShopController 创建店面控制器
func NewShopController(sessions *console.Manager) *ShopController {
	return &ShopController{sessions: sessions}
}

// ShopPage 店面商品分组结果
type ShopPage struct {
	Categories []string          `json:"categories"`
	Groups     storefront.Groups `json:"groups"`
	Count      int               `json:"count"`
}

// Products 店面商品
// @Summary 店面商品
// @Description 按关键词、分类、性别筛选后按分类分组；分类与性别传 all 表示不限
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Param search query string false "关键词"
// @Param category query string false "分类"
// @Param gender query string false "性别"
// @Success 200 {object} ShopPage
// @Router /shop/products [get]
func (c *ShopController) Products(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	var pred storefront.Predicate
	if err := ctx.ShouldBindQuery(&pred); err != nil {
		badRequest(ctx, err)
		return
	}

	all, err := sess.Shop(ctx.Request.Context())
	if err != nil {
		failErr(ctx, err)
		return
	}
	groups := storefront.FilterAndGroup(all, pred)
	ok(ctx, ShopPage{
		Categories: storefront.Categories(all),
		Groups:     groups,
		Count:      groups.Count(),
	})
}

// ==================== 购物车 ====================

// Cart 查看购物车
// @Summary 查看购物车
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Success 200 {object} console.CartView
// @Router /shop/cart [get]
func (c *ShopController) Cart(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	ok(ctx, sess.Cart())
}

type addToCartRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// AddToCart 加入购物车
// @Summary 加入购物车
// @Description 数量为 0 时按 1 处理；颜色与尺码需在商品可选范围内
// @Tags Shop
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body addToCartRequest true "加购"
// @Success 200 {object} console.CartView
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /shop/cart [post]
func (c *ShopController) AddToCart(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	var req addToCartRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	_, err := sess.AddToCart(ctx.Request.Context(), req.ProductID, storefront.Selection{
		Color:    req.Color,
		Size:     req.Size,
		Quantity: req.Quantity,
	})
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, sess.Cart())
}

// RemoveFromCart 移除条目
// @Summary 移除购物车条目
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Param cart_id path string true "条目 ID"
// @Success 200 {object} console.CartView
// @Router /shop/cart/{cart_id} [delete]
func (c *ShopController) RemoveFromCart(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	ok(ctx, sess.RemoveFromCart(ctx.Param("cart_id")))
}

// ClearCart 清空购物车
// @Summary 清空购物车
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Success 200 {object} console.CartView
// @Router /shop/cart [delete]
func (c *ShopController) ClearCart(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	ok(ctx, sess.ClearCart())
}

// ==================== 订单 ====================

// Checkout 下单
// @Summary 下单
// @Description 以购物车内容下单，成功后清空购物车
// @Tags Shop
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CheckoutRequest true "收货信息"
// @Success 200 {object} console.OrderSummary
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /shop/checkout [post]
func (c *ShopController) Checkout(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	var req dto.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	order, err := sess.Checkout(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "order placed", order)
}

// MyOrders 我的订单
// @Summary 我的订单
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Success 200 {array} console.OrderSummary
// @Failure 401 {object} map[string]interface{}
// @Router /shop/orders [get]
func (c *ShopController) MyOrders(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	list, err := sess.Orders(ctx.Request.Context())
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, list)
}

// Pay 支付订单
// @Summary 支付订单
// @Tags Shop
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单 ID"
// @Param request body dto.PaymentRequest true "支付方式"
// @Success 200 {object} console.OrderSummary
// @Failure 400 {object} map[string]interface{}
// @Failure 402 {object} map[string]interface{}
// @Router /shop/orders/{id}/pay [post]
func (c *ShopController) Pay(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	var req dto.PaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	order, err := sess.Pay(ctx.Request.Context(), id, &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "payment accepted", order)
}

// Track 订单追踪
// @Summary 订单追踪
// @Tags Shop
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单 ID"
// @Success 200 {object} dto.TrackingResponse
// @Failure 404 {object} map[string]interface{}
// @Router /shop/orders/{id}/track [get]
func (c *ShopController) Track(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	raw, err := sess.Track(ctx.Request.Context(), id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, raw)
}
