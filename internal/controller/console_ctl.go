package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopsmart_v1_202610/internal/console"
	"shopsmart_v1_202610/internal/middleware"
	"shopsmart_v1_202610/internal/wizard"
)

// ==================== ConsoleController 后台控制台 ====================

// ConsoleController 控制台入口与商品向导
// 向导状态保存在会话中，每个请求对应一个 Action
type ConsoleController struct {
	sessions *console.Manager
}

// NewConsoleController 创建控制台控制器
func NewConsoleController(sessions *console.Manager) *ConsoleController {
	return &ConsoleController{sessions: sessions}
}

// sessionOf 取当前请求的会话，失败时已写响应
func sessionOf(ctx *gin.Context, m *console.Manager) (*console.Session, bool) {
	sess, err := m.Get(middleware.GetSessionID(ctx))
	if err != nil {
		failErr(ctx, err)
		return nil, false
	}
	return sess, true
}

// author 只有管理员可以使用向导
func (c *ConsoleController) author(ctx *gin.Context) (*console.Session, bool) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return nil, false
	}
	if !console.CanAuthor(sess.Role()) {
		fail(ctx, http.StatusForbidden, "permission denied")
		return nil, false
	}
	return sess, true
}

// dispatch 执行一个向导动作；校验失败时仍返回当前状态
func (c *ConsoleController) dispatch(ctx *gin.Context, a wizard.Action) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	view, err := sess.Dispatch(a)
	if err != nil {
		failWith(ctx, err, view)
		return
	}
	ok(ctx, view)
}

// Gate 控制台入口
// @Summary 控制台入口
// @Description 按角色返回进入店面还是后台，以及可见模块
// @Tags Console
// @Produce json
// @Security BearerAuth
// @Success 200 {object} console.GateView
// @Router /console/gate [get]
func (c *ConsoleController) Gate(ctx *gin.Context) {
	sess, found := sessionOf(ctx, c.sessions)
	if !found {
		return
	}
	ok(ctx, console.Gate(sess.Role()))
}

// ==================== 向导 ====================

type openWizardRequest struct {
	ProductID int64 `json:"product_id"`
}

// OpenWizard 打开向导
// @Summary 打开商品向导
// @Description product_id 为空时新建，否则加载商品进入编辑
// @Tags Wizard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body openWizardRequest false "商品 ID"
// @Success 200 {object} console.WizardView
// @Failure 404 {object} map[string]interface{}
// @Router /console/wizard/open [post]
func (c *ConsoleController) OpenWizard(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	var req openWizardRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
	}
	if req.ProductID <= 0 {
		ok(ctx, sess.OpenCreate())
		return
	}
	view, err := sess.OpenEdit(ctx.Request.Context(), req.ProductID)
	if err != nil {
		failWith(ctx, err, view)
		return
	}
	ok(ctx, view)
}

// GetWizard 当前向导状态
// @Summary 当前向导状态
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} console.WizardView
// @Router /console/wizard [get]
func (c *ConsoleController) GetWizard(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	ok(ctx, sess.Wizard())
}

// CancelWizard 丢弃草稿
// @Summary 丢弃草稿
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} console.WizardView
// @Router /console/wizard/cancel [post]
func (c *ConsoleController) CancelWizard(ctx *gin.Context) {
	c.dispatch(ctx, wizard.Reset{})
}

type basicInfoRequest struct {
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	CategoryID  int64         `json:"category_id"`
	Description string        `json:"description"`
	Status      wizard.Status `json:"status"`
}

// SetBasicInfo 填写基础信息
// @Summary 填写基础信息
// @Tags Wizard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body basicInfoRequest true "基础信息"
// @Success 200 {object} console.WizardView
// @Failure 400 {object} map[string]interface{}
// @Router /console/wizard/basic [put]
func (c *ConsoleController) SetBasicInfo(ctx *gin.Context) {
	var req basicInfoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	c.dispatch(ctx, wizard.SetBasicInfo{
		Code:        req.Code,
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Status:      req.Status,
	})
}

// Next 下一阶段
// @Summary 进入下一阶段
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} console.WizardView
// @Failure 400 {object} map[string]interface{}
// @Router /console/wizard/next [post]
func (c *ConsoleController) Next(ctx *gin.Context) {
	c.dispatch(ctx, wizard.Next{})
}

type stageRequest struct {
	Stage wizard.Stage `json:"stage" binding:"required"`
}

// GoTo 切换阶段
// @Summary 切换阶段
// @Tags Wizard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body stageRequest true "阶段"
// @Success 200 {object} console.WizardView
// @Failure 400 {object} map[string]interface{}
// @Router /console/wizard/stage [post]
func (c *ConsoleController) GoTo(ctx *gin.Context) {
	var req stageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	c.dispatch(ctx, wizard.GoTo{Stage: req.Stage})
}

// AddImage 草稿添加图片
// @Summary 草稿添加图片
// @Description multipart 上传文件（字段 image）或提交 url，二者只能取一
// @Tags Wizard
// @Accept multipart/form-data,json
// @Produce json
// @Security BearerAuth
// @Param image formData file false "图片文件"
// @Param url formData string false "图片地址"
// @Param is_principal formData bool false "设为主图"
// @Success 200 {object} console.WizardView
// @Failure 400 {object} map[string]interface{}
// @Router /console/wizard/images [post]
func (c *ConsoleController) AddImage(ctx *gin.Context) {
	var action wizard.AddImage
	if ctx.ContentType() == "multipart/form-data" {
		action.URL = ctx.PostForm("url")
		action.Principal = formFlag(ctx, "is_principal")
		fh, err := ctx.FormFile("image")
		switch {
		case err == nil:
			data, err := readFormFile(fh)
			if err != nil {
				badRequest(ctx, err)
				return
			}
			action.File = &wizard.ImageFile{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			}
		case err != http.ErrMissingFile:
			badRequest(ctx, err)
			return
		}
	} else {
		var req struct {
			URL         string `json:"url"`
			IsPrincipal bool   `json:"is_principal"`
		}
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
		action.URL, action.Principal = req.URL, req.IsPrincipal
	}
	c.dispatch(ctx, action)
}

// RemoveImage 草稿删除图片
// @Summary 草稿删除图片
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Param key path string true "草稿图片 ID"
// @Success 200 {object} console.WizardView
// @Router /console/wizard/images/{key} [delete]
func (c *ConsoleController) RemoveImage(ctx *gin.Context) {
	c.dispatch(ctx, wizard.RemoveImage{ID: ctx.Param("key")})
}

// SetPrincipalImage 草稿设置主图
// @Summary 草稿设置主图
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Param key path string true "草稿图片 ID"
// @Success 200 {object} console.WizardView
// @Failure 400 {object} map[string]interface{}
// @Router /console/wizard/images/{key}/principal [post]
func (c *ConsoleController) SetPrincipalImage(ctx *gin.Context) {
	c.dispatch(ctx, wizard.SetPrincipalImage{ID: ctx.Param("key")})
}

type variantFormRequest struct {
	Color   string        `json:"color"`
	Price   string        `json:"price"`
	Cost    string        `json:"cost"`
	Stock   string        `json:"stock"`
	Barcode string        `json:"barcode"`
	Status  wizard.Status `json:"status"`
}

// SetVariantForm 填写变体表单
// @Summary 填写变体表单
// @Description 价格、成本、库存按文本提交，生成变体时统一校验
// @Tags Wizard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body variantFormRequest true "变体表单"
// @Success 200 {object} console.WizardView
// @Router /console/wizard/variant-form [put]
func (c *ConsoleController) SetVariantForm(ctx *gin.Context) {
	var req variantFormRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	c.dispatch(ctx, wizard.SetVariantForm{
		Color:   req.Color,
		Price:   req.Price,
		Cost:    req.Cost,
		Stock:   req.Stock,
		Barcode: req.Barcode,
		Status:  req.Status,
	})
}

// ToggleSize 勾选/取消尺码
// @Summary 勾选/取消尺码
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Param size path string true "尺码 S/M/L/XL"
// @Success 200 {object} console.WizardView
// @Failure 400 {object} map[string]interface{}
// @Router /console/wizard/variant-form/sizes/{size} [post]
func (c *ConsoleController) ToggleSize(ctx *gin.Context) {
	c.dispatch(ctx, wizard.ToggleSize{Size: wizard.Size(ctx.Param("size"))})
}

// AddVariants 按勾选尺码生成变体
// @Summary 生成变体
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} console.WizardView
// @Failure 400 {object} map[string]interface{}
// @Router /console/wizard/variants [post]
func (c *ConsoleController) AddVariants(ctx *gin.Context) {
	c.dispatch(ctx, wizard.AddVariants{})
}

// RemoveVariant 草稿删除变体
// @Summary 草稿删除变体
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Param key path string true "草稿变体 ID"
// @Success 200 {object} console.WizardView
// @Router /console/wizard/variants/{key} [delete]
func (c *ConsoleController) RemoveVariant(ctx *gin.Context) {
	c.dispatch(ctx, wizard.RemoveVariant{ID: ctx.Param("key")})
}

// Submit 提交草稿
// @Summary 提交草稿
// @Description 依次创建商品、图片、变体；部分失败时 report 中逐条列出
// @Tags Wizard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /console/wizard/submit [post]
func (c *ConsoleController) Submit(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	// 客户端断开不应中断已开始的批量写入
	view, report, err := sess.Submit(context.WithoutCancel(ctx.Request.Context()))
	data := gin.H{"wizard": view, "report": report}
	if err != nil {
		failWith(ctx, err, data)
		return
	}
	okMsg(ctx, view.Notice, data)
}

// ==================== 列表 ====================

// Products 控制台商品列表
// @Summary 控制台商品列表
// @Tags Console
// @Produce json
// @Security BearerAuth
// @Param reload query bool false "强制刷新"
// @Success 200 {array} wizard.Product
// @Router /console/products [get]
func (c *ConsoleController) Products(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	reload := queryFlag(ctx, "reload")
	list, err := sess.Products(ctx.Request.Context(), reload)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, list)
}

// Categories 向导可选分类
// @Summary 向导可选分类
// @Tags Console
// @Produce json
// @Security BearerAuth
// @Param reload query bool false "强制刷新"
// @Success 200 {array} wizard.Category
// @Router /console/categories [get]
func (c *ConsoleController) Categories(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	reload := queryFlag(ctx, "reload")
	list, err := sess.Categories(ctx.Request.Context(), reload)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, list)
}

// ==================== 已持久化商品 ====================

// DeleteProduct 删除商品
// @Summary 删除商品
// @Description 通过当前数据源删除；正在编辑该商品时向导回到新建状态
// @Tags Console
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 200 {object} console.WizardView
// @Failure 404 {object} map[string]interface{}
// @Router /console/products/{id} [delete]
func (c *ConsoleController) DeleteProduct(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	view, err := sess.DeleteProduct(ctx.Request.Context(), id)
	if err != nil {
		failWith(ctx, err, view)
		return
	}
	okMsg(ctx, "deleted", view)
}

// ProductImages 商品图片
// @Summary 商品图片
// @Tags Console
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 200 {array} wizard.Image
// @Router /console/products/{id}/images [get]
func (c *ConsoleController) ProductImages(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	list, err := sess.StoredImages(ctx.Request.Context(), id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, list)
}

// DeleteProductImage 删除商品图片
// @Summary 删除商品图片
// @Tags Console
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Param image_id path int true "图片 ID"
// @Success 200 {object} console.WizardView
// @Failure 404 {object} map[string]interface{}
// @Router /console/products/{id}/images/{image_id} [delete]
func (c *ConsoleController) DeleteProductImage(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	imageID, valid := paramID(ctx, "image_id")
	if !valid {
		return
	}
	view, err := sess.DeleteStoredImage(ctx.Request.Context(), id, imageID)
	if err != nil {
		failWith(ctx, err, view)
		return
	}
	okMsg(ctx, "deleted", view)
}

// ProductVariants 商品变体
// @Summary 商品变体
// @Tags Console
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 200 {array} wizard.Variant
// @Router /console/products/{id}/variants [get]
func (c *ConsoleController) ProductVariants(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	list, err := sess.StoredVariants(ctx.Request.Context(), id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, list)
}

// DeleteProductVariant 删除商品变体
// @Summary 删除商品变体
// @Tags Console
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Param variant_id path int true "变体 ID"
// @Success 200 {object} console.WizardView
// @Failure 404 {object} map[string]interface{}
// @Router /console/products/{id}/variants/{variant_id} [delete]
func (c *ConsoleController) DeleteProductVariant(ctx *gin.Context) {
	sess, found := c.author(ctx)
	if !found {
		return
	}
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	variantID, valid := paramID(ctx, "variant_id")
	if !valid {
		return
	}
	view, err := sess.DeleteStoredVariant(ctx.Request.Context(), id, variantID)
	if err != nil {
		failWith(ctx, err, view)
		return
	}
	okMsg(ctx, "deleted", view)
}
