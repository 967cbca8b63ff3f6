package service

import (
	"errors"
	"sort"
	"strings"
)

// FieldErrors 按字段聚合的校验错误，对外输出为 {"field": ["msg", ...]}
type FieldErrors map[string][]string

// Add 追加一条字段错误
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, k := range fields {
		parts = append(parts, k+": "+strings.Join(f[k], ", "))
	}
	return strings.Join(parts, "; ")
}

// OrNil 没有错误时返回 nil
func (f FieldErrors) OrNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// AsFieldErrors 提取字段错误
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ==================== 错误定义 ====================

var (
	// 账号
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidOldPassword = errors.New("old password is incorrect")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrCannotDeleteAdmin  = errors.New("the last admin cannot be removed")
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleExists         = errors.New("role already exists")
	ErrRoleInUse          = errors.New("role is assigned to users")
	ErrBuiltinRole        = errors.New("built-in roles cannot be deleted")

	// 商品
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category has products or subcategories")
	ErrProductNotFound  = errors.New("product not found")
	ErrImageNotFound    = errors.New("image not found")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrStorageDisabled  = errors.New("file storage is not configured")

	// 订单
	ErrCartEmpty          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidTransition  = errors.New("order status transition not allowed")
	ErrOrderNotPayable    = errors.New("order cannot be paid in its current status")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrNegativeStockLevel = errors.New("stock cannot go below zero")
)
