package model

import (
	"time"

	"gorm.io/datatypes"
)

// 系统角色
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// 用户状态
const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)

// 权限
const (
	PermManageSales      = "manage_sales"
	PermManageStock      = "manage_stock"
	PermViewStock        = "view_stock"
	PermManageUsers      = "manage_users"
	PermAssignRoles      = "assign_roles"
	PermManageCategories = "manage_categories"
	PermManageProducts   = "manage_products"
	PermViewReports      = "view_reports"
)

// DefaultRolePermissions 内置角色的默认权限
var DefaultRolePermissions = map[string][]string{
	RoleAdmin: {
		PermManageSales, PermManageStock, PermViewStock, PermManageUsers,
		PermAssignRoles, PermManageCategories, PermManageProducts, PermViewReports,
	},
	RoleSeller: {PermManageSales, PermViewStock},
}

// SysUser 后台/店面用户
type SysUser struct {
	BaseModel
	Username    string     `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Password    string     `gorm:"size:255;not null" json:"-"` // 哈希密码
	Email       string     `gorm:"size:100;index" json:"email"`
	FullName    string     `gorm:"size:100" json:"full_name"`
	Phone       string     `gorm:"size:30" json:"phone"`
	Role        string     `gorm:"size:20;index;default:''" json:"role"` // 空角色为普通顾客
	Status      int        `gorm:"default:1" json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (SysUser) TableName() string {
	return "sys_users"
}

// IsStaff 是否为后台人员
func (u *SysUser) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleSeller
}

// Role 角色及其权限
type Role struct {
	BaseModel
	Name        string                      `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string                      `gorm:"size:255" json:"description"`
	Permissions datatypes.JSONSlice[string] `json:"permissions"`
}

func (Role) TableName() string {
	return "sys_roles"
}

// Has 是否拥有权限
func (r *Role) Has(perm string) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
