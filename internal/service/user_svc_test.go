package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/internal/repository"
)

func newTestUserService(t *testing.T) *UserService {
	db := newServiceTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db), repository.NewRoleRepository(db))
	require.NoError(t, svc.EnsureBuiltinRoles(context.Background()))
	return svc
}

func TestUser_Authenticate(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	info, err := svc.Register(ctx, &dto.RegisterRequest{Username: "lucia", Password: "secreto1", Email: "lucia@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "", info.Role)
	assert.Empty(t, info.Permissions)

	user, err := svc.Authenticate(ctx, "lucia", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, info.ID, user.ID)

	// 邮箱也可登录
	user, err = svc.Authenticate(ctx, "lucia@example.com", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, info.ID, user.ID)

	_, err = svc.Authenticate(ctx, "lucia", "otra")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nadie", "secreto1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	disabled := model.UserStatusDisabled
	_, err = svc.UpdateUser(ctx, info.ID, &dto.UpdateUserRequest{Status: &disabled})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "lucia", "secreto1")
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestUser_RegisterDuplicates(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Username: "lucia", Password: "secreto1", Email: "l@example.com"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Username: "lucia", Password: "secreto1"})
	assert.ErrorIs(t, err, ErrUsernameExists)
	_, err = svc.Register(ctx, &dto.RegisterRequest{Username: "otra", Password: "secreto1", Email: "l@example.com"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUser_UpdateEmailConflict(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, &dto.RegisterRequest{Username: "lucia", Password: "secreto1", Email: "l@example.com"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, &dto.RegisterRequest{Username: "mario", Password: "secreto1", Email: "m@example.com"})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, a.ID, &dto.UpdateUserRequest{Email: "m@example.com"})
	assert.ErrorIs(t, err, ErrEmailExists)
	info, err := svc.UpdateUser(ctx, a.ID, &dto.UpdateUserRequest{Email: "lucia@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "lucia@example.com", info.Email)
}

func TestUser_ListStaffAndCustomers(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "admin123"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "otra-clave"))
	_, err := svc.CreateUser(ctx, &dto.CreateUserRequest{Username: "caja1", Password: "secreto1", Role: model.RoleSeller})
	require.NoError(t, err)
	_, err = svc.Register(ctx, &dto.RegisterRequest{Username: "lucia", Password: "secreto1"})
	require.NoError(t, err)

	resp, err := svc.ListUsers(ctx, &dto.UserListRequest{Audience: repository.AudienceStaff, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Total)
	assert.EqualValues(t, 2, resp.Staff)
	assert.EqualValues(t, 1, resp.Customers)
	for _, u := range resp.List {
		assert.NotEmpty(t, u.Role)
	}

	resp, err = svc.ListUsers(ctx, &dto.UserListRequest{Audience: repository.AudienceCustomer, Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, resp.List, 1)
	assert.Equal(t, "lucia", resp.List[0].Username)
}

func TestUser_AssignRoleAndPermissions(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	info, err := svc.CreateUser(ctx, &dto.CreateUserRequest{Username: "pedro", Password: "secreto1"})
	require.NoError(t, err)

	_, err = svc.AssignRole(ctx, info.ID, "gerente")
	assert.ErrorIs(t, err, ErrRoleNotFound)

	seller, err := svc.AssignRole(ctx, info.ID, model.RoleSeller)
	require.NoError(t, err)
	assert.ElementsMatch(t, model.DefaultRolePermissions[model.RoleSeller], seller.Permissions)

	_, err = svc.CreateRole(ctx, &dto.RoleRequest{Name: "Bodega", Permissions: []string{model.PermViewStock}})
	require.NoError(t, err)
	_, err = svc.CreateRole(ctx, &dto.RoleRequest{Name: "bodega"})
	assert.ErrorIs(t, err, ErrRoleExists)

	_, err = svc.AssignRole(ctx, info.ID, "bodega")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteRole(ctx, "bodega"), ErrRoleInUse)
	assert.ErrorIs(t, svc.DeleteRole(ctx, model.RoleSeller), ErrBuiltinRole)

	_, err = svc.AssignRole(ctx, info.ID, "")
	require.NoError(t, err)
	assert.NoError(t, svc.DeleteRole(ctx, "bodega"))
}

func TestUser_LastAdminIsProtected(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "admin123"))
	// 重复调用不报错
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "admin123"))

	admin, err := svc.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID), ErrCannotDeleteAdmin)
	_, err = svc.AssignRole(ctx, admin.ID, model.RoleSeller)
	assert.ErrorIs(t, err, ErrCannotDeleteAdmin)

	second, err := svc.CreateUser(ctx, &dto.CreateUserRequest{Username: "root2", Password: "secreto1", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.NoError(t, svc.DeleteUser(ctx, second.ID))
}

func TestUser_ChangePassword(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	info, err := svc.Register(ctx, &dto.RegisterRequest{Username: "lucia", Password: "secreto1"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, info.ID, &dto.ChangePasswordRequest{OldPassword: "mal", NewPassword: "nuevo123"})
	assert.ErrorIs(t, err, ErrInvalidOldPassword)

	require.NoError(t, svc.ChangePassword(ctx, info.ID, &dto.ChangePasswordRequest{OldPassword: "secreto1", NewPassword: "nuevo123"}))
	_, err = svc.Authenticate(ctx, "lucia", "nuevo123")
	assert.NoError(t, err)
}
