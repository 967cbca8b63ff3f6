package controller

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/service"
)

// maxImageBytes 单张图片上限
const maxImageBytes = 5 << 20

// ==================== CatalogController 商品目录 ====================

// CatalogController 分类、商品、图片、变体的后台管理
type CatalogController struct {
	catalog *service.CatalogService
}

// NewCatalogController 创建目录控制器
func NewCatalogController(catalog *service.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// ==================== 分类 ====================

// ListCategories 分类列表
// @Summary 分类列表
// @Tags Catalog
// @Produce json
// @Param active query bool false "仅启用"
// @Success 200 {array} model.Category
// @Router /catalog/categories [get]
func (c *CatalogController) ListCategories(ctx *gin.Context) {
	activeOnly := queryFlag(ctx, "active")
	list, err := c.catalog.ListCategories(ctx.Request.Context(), activeOnly)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, list)
}

// GetCategory 分类详情
// @Summary 分类详情
// @Tags Catalog
// @Produce json
// @Param id path int true "分类 ID"
// @Success 200 {object} model.Category
// @Failure 404 {object} map[string]interface{}
// @Router /catalog/categories/{id} [get]
func (c *CatalogController) GetCategory(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	cat, err := c.catalog.GetCategory(ctx.Request.Context(), id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, cat)
}

// CreateCategory 创建分类
// @Summary 创建分类
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CategoryRequest true "分类"
// @Success 200 {object} model.Category
// @Failure 400 {object} map[string]interface{}
// @Router /catalog/categories [post]
func (c *CatalogController) CreateCategory(ctx *gin.Context) {
	var req dto.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	cat, err := c.catalog.CreateCategory(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "created", cat)
}

// UpdateCategory 更新分类
// @Summary 更新分类
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类 ID"
// @Param request body dto.CategoryRequest true "分类"
// @Success 200 {object} model.Category
// @Failure 400 {object} map[string]interface{}
// @Router /catalog/categories/{id} [put]
func (c *CatalogController) UpdateCategory(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	var req dto.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	cat, err := c.catalog.UpdateCategory(ctx.Request.Context(), id, &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "updated", cat)
}

// DeleteCategory 删除分类
// @Summary 删除分类
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /catalog/categories/{id} [delete]
func (c *CatalogController) DeleteCategory(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	if err := c.catalog.DeleteCategory(ctx.Request.Context(), id); err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "deleted", nil)
}

// ==================== 商品 ====================

// ListProducts 商品列表
// @Summary 商品列表
// @Tags Catalog
// @Produce json
// @Param category_id query int false "分类"
// @Param status query string false "状态"
// @Param gender query string false "性别"
// @Param keyword query string false "关键词"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.ProductListResponse
// @Router /catalog/products [get]
func (c *CatalogController) ListProducts(ctx *gin.Context) {
	var q dto.ProductQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}
	q.Page, q.PageSize = pageOf(q.Page, q.PageSize)

	list, total, err := c.catalog.ListProducts(ctx.Request.Context(), &q)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, dto.ProductListResponse{List: list, Total: total})
}

// GetProduct 商品详情
// @Summary 商品详情（含图片与变体）
// @Tags Catalog
// @Produce json
// @Param id path int true "商品 ID"
// @Success 200 {object} model.Product
// @Failure 404 {object} map[string]interface{}
// @Router /catalog/products/{id} [get]
func (c *CatalogController) GetProduct(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	p, err := c.catalog.GetProduct(ctx.Request.Context(), id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, p)
}

// CreateProduct 创建商品
// @Summary 创建商品
// @Description code 为空时自动分配
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ProductRequest true "商品"
// @Success 200 {object} model.Product
// @Failure 400 {object} map[string]interface{}
// @Router /catalog/products [post]
func (c *CatalogController) CreateProduct(ctx *gin.Context) {
	var req dto.ProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	p, err := c.catalog.CreateProduct(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "created", p)
}

// UpdateProduct 更新商品
// @Summary 更新商品
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Param request body dto.ProductRequest true "商品"
// @Success 200 {object} model.Product
// @Failure 400 {object} map[string]interface{}
// @Router /catalog/products/{id} [put]
func (c *CatalogController) UpdateProduct(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	var req dto.ProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	p, err := c.catalog.UpdateProduct(ctx.Request.Context(), id, &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "updated", p)
}

// DeleteProduct 删除商品
// @Summary 删除商品
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 200 {object} map[string]interface{}
// @Router /catalog/products/{id} [delete]
func (c *CatalogController) DeleteProduct(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	if err := c.catalog.DeleteProduct(ctx.Request.Context(), id); err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "deleted", nil)
}

// ==================== 图片 ====================

// ListImages 图片列表
// @Summary 图片列表
// @Tags Catalog
// @Produce json
// @Param product_id query int false "商品 ID"
// @Success 200 {array} model.ProductImage
// @Router /catalog/images [get]
func (c *CatalogController) ListImages(ctx *gin.Context) {
	productID, _ := strconv.ParseInt(ctx.Query("product_id"), 10, 64)
	list, err := c.catalog.ListImages(ctx.Request.Context(), productID)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, list)
}

// AddImage 添加图片
// @Summary 添加图片
// @Description multipart 上传文件（字段 image），或 JSON 提交外链
// @Tags Catalog
// @Accept multipart/form-data,json
// @Produce json
// @Security BearerAuth
// @Param product_id formData int false "商品 ID"
// @Param image formData file false "图片文件"
// @Param is_principal formData bool false "设为主图"
// @Success 200 {object} model.ProductImage
// @Failure 400 {object} map[string]interface{}
// @Router /catalog/images [post]
func (c *CatalogController) AddImage(ctx *gin.Context) {
	up, err := readImageUpload(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}
	img, err := c.catalog.AddImage(ctx.Request.Context(), up)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "created", img)
}

// readImageUpload 解析 multipart 或 JSON 请求
func readImageUpload(ctx *gin.Context) (*dto.ImageUpload, error) {
	if ctx.ContentType() != "multipart/form-data" {
		var req dto.ImageURLRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return &dto.ImageUpload{ProductID: req.ProductID, URL: req.URL, IsPrincipal: req.IsPrincipal}, nil
	}

	productID, _ := strconv.ParseInt(ctx.PostForm("product_id"), 10, 64)
	principal := formFlag(ctx, "is_principal")
	up := &dto.ImageUpload{ProductID: productID, URL: ctx.PostForm("url"), IsPrincipal: principal}

	fh, err := ctx.FormFile("image")
	if err == http.ErrMissingFile {
		return up, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := readFormFile(fh)
	if err != nil {
		return nil, err
	}
	up.Filename = fh.Filename
	up.ContentType = fh.Header.Get("Content-Type")
	up.Data = data
	return up, nil
}

// readFormFile 读取上传文件，超过上限直接拒绝
func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d MB", maxImageBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxImageBytes))
}

// SetPrincipalImage 设为主图
// @Summary 设为主图
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "图片 ID"
// @Success 200 {object} model.ProductImage
// @Failure 404 {object} map[string]interface{}
// @Router /catalog/images/{id}/principal [put]
func (c *CatalogController) SetPrincipalImage(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	img, err := c.catalog.SetPrincipalImage(ctx.Request.Context(), id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "updated", img)
}

// DeleteImage 删除图片
// @Summary 删除图片
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "图片 ID"
// @Success 200 {object} map[string]interface{}
// @Router /catalog/images/{id} [delete]
func (c *CatalogController) DeleteImage(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	if err := c.catalog.DeleteImage(ctx.Request.Context(), id); err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "deleted", nil)
}

// ==================== 变体 ====================

// ListVariants 变体列表
// @Summary 变体列表
// @Tags Catalog
// @Produce json
// @Param product_id query int false "商品 ID"
// @Success 200 {array} model.ProductVariant
// @Router /catalog/variants [get]
func (c *CatalogController) ListVariants(ctx *gin.Context) {
	productID, _ := strconv.ParseInt(ctx.Query("product_id"), 10, 64)
	list, err := c.catalog.ListVariants(ctx.Request.Context(), productID)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, list)
}

// CreateVariant 创建变体
// @Summary 创建变体
// @Description sku 为空时按 名称-颜色-尺码 生成
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.VariantRequest true "变体"
// @Success 200 {object} model.ProductVariant
// @Failure 400 {object} map[string]interface{}
// @Router /catalog/variants [post]
func (c *CatalogController) CreateVariant(ctx *gin.Context) {
	var req dto.VariantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	v, err := c.catalog.CreateVariant(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "created", v)
}

// UpdateVariant 更新变体
// @Summary 更新变体
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "变体 ID"
// @Param request body dto.VariantRequest true "变体"
// @Success 200 {object} model.ProductVariant
// @Failure 400 {object} map[string]interface{}
// @Router /catalog/variants/{id} [put]
func (c *CatalogController) UpdateVariant(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	var req dto.VariantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	v, err := c.catalog.UpdateVariant(ctx.Request.Context(), id, &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "updated", v)
}

// DeleteVariant 删除变体
// @Summary 删除变体
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "变体 ID"
// @Success 200 {object} map[string]interface{}
// @Router /catalog/variants/{id} [delete]
func (c *CatalogController) DeleteVariant(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	if err := c.catalog.DeleteVariant(ctx.Request.Context(), id); err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "deleted", nil)
}
