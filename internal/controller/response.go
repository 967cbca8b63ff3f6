package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"shopsmart_v1_202610/internal/console"
	"shopsmart_v1_202610/internal/service"
	"shopsmart_v1_202610/internal/storefront"
	"shopsmart_v1_202610/internal/wizard"
)

// ==================== 统一响应 ====================

func ok(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

func okMsg(ctx *gin.Context, msg string, data interface{}) {
	body := gin.H{"code": 0, "message": msg}
	if data != nil {
		body["data"] = data
	}
	ctx.JSON(http.StatusOK, body)
}

func fail(ctx *gin.Context, status int, msg string) {
	ctx.JSON(status, gin.H{"code": status, "message": msg})
}

func badRequest(ctx *gin.Context, err error) {
	fail(ctx, http.StatusBadRequest, "invalid request: "+err.Error())
}

// failErr 按错误类型决定状态码；字段错误放在 errors 中，形如 {"field": ["msg"]}
func failErr(ctx *gin.Context, err error) {
	status, body := errorBody(ctx, err)
	ctx.JSON(status, body)
}

// failWith 错误响应同时带回当前数据（如向导状态）
func failWith(ctx *gin.Context, err error, data interface{}) {
	status, body := errorBody(ctx, err)
	body["data"] = data
	ctx.JSON(status, body)
}

func errorBody(ctx *gin.Context, err error) (int, gin.H) {
	if fe, isField := service.AsFieldErrors(err); isField {
		return http.StatusBadRequest, gin.H{"code": 400, "message": fe.Error(), "errors": fe}
	}

	var ve *wizard.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, gin.H{
			"code": 400, "message": ve.Message, "errors": gin.H{ve.Field: []string{ve.Message}},
		}
	}
	var sve *storefront.ValidationError
	if errors.As(err, &sve) {
		return http.StatusBadRequest, gin.H{
			"code": 400, "message": sve.Message, "errors": gin.H{sve.Field: []string{sve.Message}},
		}
	}
	var ie *wizard.InconsistentStateError
	if errors.As(err, &ie) {
		zap.L().Error("product reload failed", zap.Int64("product_id", ie.ProductID), zap.Error(err))
		return http.StatusBadGateway, gin.H{"code": http.StatusBadGateway, "message": ie.Error()}
	}
	var te *wizard.TransportError
	if errors.As(err, &te) {
		status := te.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		body := gin.H{"code": status, "message": te.Error()}
		if len(te.FieldErrors) > 0 {
			body["errors"] = te.FieldErrors
		}
		if status >= 500 {
			zap.L().Error("upstream call failed", zap.String("op", te.Op), zap.Error(err))
		}
		return status, body
	}

	status := statusOf(err)
	if status >= 500 {
		zap.L().Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		return status, gin.H{"code": status, "message": "internal server error"}
	}
	return status, gin.H{"code": status, "message": err.Error()}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, console.ErrSessionNotFound),
		errors.Is(err, console.ErrLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserDisabled):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoleNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, console.ErrProductMissing),
		errors.Is(err, console.ErrItemMissing):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameExists),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrRoleExists),
		errors.Is(err, service.ErrRoleInUse),
		errors.Is(err, service.ErrCategoryInUse),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrNegativeStockLevel),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidOldPassword),
		errors.Is(err, service.ErrCannotDeleteAdmin),
		errors.Is(err, service.ErrBuiltinRole),
		errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrOrderNotPayable),
		errors.Is(err, service.ErrStorageDisabled),
		errors.Is(err, console.ErrCartEmpty),
		errors.Is(err, console.ErrRefreshDisabled):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// paramID 解析路径中的 ID，失败时直接写 400
func paramID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(ctx, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// pageOf 分页参数兜底
func pageOf(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 20
	}
	return page, size
}

// queryFlag 解析布尔查询参数，非法值视为 false
func queryFlag(ctx *gin.Context, key string) bool {
	return cast.ToBool(ctx.Query(key))
}

// formFlag 解析布尔表单字段
func formFlag(ctx *gin.Context, key string) bool {
	return cast.ToBool(ctx.PostForm(key))
}
