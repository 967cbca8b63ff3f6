package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopsmart_v1_202610/internal/model"
)

// ==================== UserRepository 用户仓库 ====================

// UserRepository 用户仓库；顾客账号 role 为空，其余为后台人员
type UserRepository interface {
	Create(ctx context.Context, user *model.SysUser) error
	GetByID(ctx context.Context, id int64) (*model.SysUser, error)
	// FindByLogin 用户名或邮箱登录，两者都命中时用户名优先
	FindByLogin(ctx context.Context, login string) (*model.SysUser, error)
	// Taken 用户名/邮箱是否已被 excludeID 以外的账号占用，空邮箱不检查
	Taken(ctx context.Context, username, email string, excludeID int64) (LoginTaken, error)
	Update(ctx context.Context, user *model.SysUser) error
	SetPassword(ctx context.Context, id int64, hashedPassword string) error
	TouchLogin(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter UserFilter) (*UserPage, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

// 账号类别
const (
	AudienceStaff    = "staff"
	AudienceCustomer = "customer"
)

// UserFilter 用户筛选条件
type UserFilter struct {
	Keyword  string
	Role     string
	Audience string // staff / customer，空为全部
	Status   *int
	Page     int
	PageSize int
}

// UserPage 一页用户；Staff/Customers 按关键词与状态统计，不受 Role/Audience 影响
type UserPage struct {
	Users     []model.SysUser
	Total     int64
	Staff     int64
	Customers int64
}

// LoginTaken 占用情况
type LoginTaken struct {
	Username bool
	Email    bool
}

// ==================== 实现 ====================

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.SysUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.SysUser, error) {
	var user model.SysUser
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &user, err
}

func (r *userRepository) FindByLogin(ctx context.Context, login string) (*model.SysUser, error) {
	if login == "" {
		return nil, nil
	}
	var users []model.SysUser
	err := r.db.WithContext(ctx).
		Where("username = ? OR (email = ? AND email <> '')", login, login).
		Order("id ASC").
		Find(&users).Error
	if err != nil || len(users) == 0 {
		return nil, err
	}
	for i := range users {
		if users[i].Username == login {
			return &users[i], nil
		}
	}
	return &users[0], nil
}

func (r *userRepository) Taken(ctx context.Context, username, email string, excludeID int64) (LoginTaken, error) {
	var out LoginTaken
	var rows []struct {
		Username string
		Email    string
	}
	query := r.db.WithContext(ctx).Model(&model.SysUser{}).Select("username", "email")
	if email != "" {
		query = query.Where("username = ? OR email = ?", username, email)
	} else {
		query = query.Where("username = ?", username)
	}
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Find(&rows).Error; err != nil {
		return out, err
	}
	for _, row := range rows {
		out.Username = out.Username || (username != "" && row.Username == username)
		out.Email = out.Email || (email != "" && row.Email == email)
	}
	return out, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.SysUser) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) SetPassword(ctx context.Context, id int64, hashedPassword string) error {
	return r.db.WithContext(ctx).
		Model(&model.SysUser{}).
		Where("id = ?", id).
		Update("password", hashedPassword).Error
}

func (r *userRepository) TouchLogin(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.SysUser{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now()).Error
}

// Delete 软删除
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.SysUser{}, id).Error
}

// ==================== 列表 ====================

// searchScope 关键词与状态
func searchScope(filter UserFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.Keyword != "" {
			kw := "%" + filter.Keyword + "%"
			db = db.Where("username LIKE ? OR email LIKE ? OR full_name LIKE ?", kw, kw, kw)
		}
		if filter.Status != nil {
			db = db.Where("status = ?", *filter.Status)
		}
		return db
	}
}

// audienceScope 角色与账号类别
func audienceScope(filter UserFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.Role != "" {
			db = db.Where("role = ?", filter.Role)
		}
		switch filter.Audience {
		case AudienceStaff:
			db = db.Where("role <> ''")
		case AudienceCustomer:
			db = db.Where("role = ''")
		}
		return db
	}
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) (*UserPage, error) {
	page := &UserPage{}
	base := r.db.WithContext(ctx).Model(&model.SysUser{}).Scopes(searchScope(filter))

	var split []struct {
		Staff bool
		N     int64
	}
	if err := base.Session(&gorm.Session{}).
		Select("role <> '' AS staff, COUNT(*) AS n").
		Group("role <> ''").
		Scan(&split).Error; err != nil {
		return nil, err
	}
	for _, row := range split {
		if row.Staff {
			page.Staff = row.N
		} else {
			page.Customers = row.N
		}
	}

	query := base.Session(&gorm.Session{}).Scopes(audienceScope(filter))
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	err := query.
		Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&page.Users).Error
	return page, err
}

func (r *userRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SysUser{}).
		Where("role = ?", role).
		Count(&count).Error
	return count, err
}

// ==================== RoleRepository 角色仓库 ====================

// RoleRepository 角色仓库接口
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	GetByName(ctx context.Context, name string) (*model.Role, error)
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]model.Role, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository 创建角色仓库
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &role, err
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Save(role).Error
}

func (r *roleRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&model.Role{}, id).Error
}

func (r *roleRepository) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Order("id ASC").Find(&roles).Error
	return roles, err
}
