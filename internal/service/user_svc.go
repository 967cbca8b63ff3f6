package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/internal/repository"
)

// ==================== UserService 用户服务 ====================

// UserService 用户与角色
type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository) *UserService {
	return &UserService{userRepo: userRepo, roleRepo: roleRepo}
}

// ==================== 认证相关 ====================

// Authenticate 校验账号密码，账号可以是用户名或邮箱
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*model.SysUser, error) {
	// 查找用户
	user, err := s.userRepo.FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// 检查状态
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 更新最后登录时间
	_ = s.userRepo.TouchLogin(ctx, user.ID)
	return user, nil
}

// Register 顾客注册
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserInfo, error) {
	return s.CreateUser(ctx, &dto.CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
}

// ChangePassword 修改密码
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	// 验证旧密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return ErrInvalidOldPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.SetPassword(ctx, userID, string(hashedPassword))
}

// GetProfile 获取当前用户信息
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	return s.GetUserByID(ctx, userID)
}

// ==================== 用户管理（管理员） ====================

// CreateUser 创建用户
func (s *UserService) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserInfo, error) {
	taken, err := s.userRepo.Taken(ctx, req.Username, req.Email, 0)
	if err != nil {
		return nil, err
	}
	switch {
	case taken.Username:
		return nil, ErrUsernameExists
	case taken.Email:
		return nil, ErrEmailExists
	}

	if req.Role != "" {
		if err := s.requireRole(ctx, req.Role); err != nil {
			return nil, err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.SysUser{
		Username: req.Username,
		Password: string(hashedPassword),
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
		Status:   model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.toUserInfo(ctx, user), nil
}

// UpdateUser 更新用户
func (s *UserService) UpdateUser(ctx context.Context, userID int64, req *dto.UpdateUserRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// 检查邮箱是否被其他用户使用
	if req.Email != "" && req.Email != user.Email {
		taken, err := s.userRepo.Taken(ctx, "", req.Email, userID)
		if err != nil {
			return nil, err
		}
		if taken.Email {
			return nil, ErrEmailExists
		}
		user.Email = req.Email
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Status != nil {
		if *req.Status == model.UserStatusDisabled && user.Role == model.RoleAdmin {
			if err := s.ensureAnotherAdmin(ctx); err != nil {
				return nil, err
			}
		}
		user.Status = *req.Status
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.toUserInfo(ctx, user), nil
}

// AssignRole 分配角色
func (s *UserService) AssignRole(ctx context.Context, userID int64, role string) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if role != "" {
		if err := s.requireRole(ctx, role); err != nil {
			return nil, err
		}
	}
	if user.Role == model.RoleAdmin && role != model.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	zap.L().Info("role assigned", zap.Int64("user_id", userID), zap.String("role", role))
	return s.toUserInfo(ctx, user), nil
}

// ResetPassword 重置密码（管理员）
func (s *UserService) ResetPassword(ctx context.Context, userID int64, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.SetPassword(ctx, userID, string(hashedPassword))
}

// DeleteUser 删除用户，不允许删除最后一个管理员
func (s *UserService) DeleteUser(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.Role == model.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}
	return s.userRepo.Delete(ctx, userID)
}

// ListUsers 用户列表
func (s *UserService) ListUsers(ctx context.Context, req *dto.UserListRequest) (*dto.UserListResponse, error) {
	page, err := s.userRepo.List(ctx, repository.UserFilter{
		Keyword:  req.Keyword,
		Role:     req.Role,
		Audience: req.Audience,
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]*dto.UserInfo, len(page.Users))
	for i := range page.Users {
		list[i] = s.toUserInfo(ctx, &page.Users[i])
	}
	return &dto.UserListResponse{List: list, Total: page.Total, Staff: page.Staff, Customers: page.Customers}, nil
}

// GetUserByID 获取用户详情
func (s *UserService) GetUserByID(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.toUserInfo(ctx, user), nil
}

// EnsureAdmin 不存在时创建管理员账号（seed 命令使用）
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	taken, err := s.userRepo.Taken(ctx, username, "", 0)
	if err != nil {
		return err
	}
	if taken.Username {
		return nil
	}
	_, err = s.CreateUser(ctx, &dto.CreateUserRequest{
		Username: username,
		Password: password,
		Role:     model.RoleAdmin,
	})
	return err
}

func (s *UserService) ensureAnotherAdmin(ctx context.Context) error {
	n, err := s.userRepo.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrCannotDeleteAdmin
	}
	return nil
}

// ==================== 角色 ====================

// EnsureBuiltinRoles 初始化内置角色
func (s *UserService) EnsureBuiltinRoles(ctx context.Context) error {
	for _, name := range []string{model.RoleAdmin, model.RoleSeller} {
		existing, err := s.roleRepo.GetByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		role := &model.Role{
			Name:        name,
			Description: "built-in " + name + " role",
			Permissions: model.DefaultRolePermissions[name],
		}
		if err := s.roleRepo.Create(ctx, role); err != nil {
			return fmt.Errorf("create role %s: %w", name, err)
		}
	}
	return nil
}

// ListRoles 角色列表
func (s *UserService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.roleRepo.List(ctx)
}

// CreateRole 创建角色
func (s *UserService) CreateRole(ctx context.Context, req *dto.RoleRequest) (*model.Role, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	existing, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRoleExists
	}
	role := &model.Role{Name: name, Description: req.Description, Permissions: req.Permissions}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole 更新角色描述与权限
func (s *UserService) UpdateRole(ctx context.Context, name string, req *dto.RoleRequest) (*model.Role, error) {
	role, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	role.Description = req.Description
	role.Permissions = req.Permissions
	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole 删除角色
func (s *UserService) DeleteRole(ctx context.Context, name string) error {
	if name == model.RoleAdmin || name == model.RoleSeller {
		return ErrBuiltinRole
	}
	role, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	n, err := s.userRepo.CountByRole(ctx, name)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrRoleInUse
	}
	return s.roleRepo.Delete(ctx, role.ID)
}

// Permissions 角色权限，角色表缺失时回退到内置默认值
func (s *UserService) Permissions(ctx context.Context, roleName string) []string {
	if roleName == "" {
		return []string{}
	}
	role, err := s.roleRepo.GetByName(ctx, roleName)
	if err == nil && role != nil {
		return role.Permissions
	}
	return model.DefaultRolePermissions[roleName]
}

func (s *UserService) requireRole(ctx context.Context, name string) error {
	role, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	return nil
}

// ==================== 辅助方法 ====================

// toUserInfo 转换为 DTO
func (s *UserService) toUserInfo(ctx context.Context, user *model.SysUser) *dto.UserInfo {
	return &dto.UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		Phone:       user.Phone,
		Role:        user.Role,
		Permissions: s.Permissions(ctx, user.Role),
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}
