package controller

import (
	"github.com/gin-gonic/gin"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/service"
)

// ==================== UserController 用户控制器 ====================

// UserController 用户与角色管理（管理员）
type UserController struct {
	userService *service.UserService
}

// NewUserController 创建用户控制器
func NewUserController(userService *service.UserService) *UserController {
	return &UserController{userService: userService}
}

// ==================== 用户管理接口 ====================

// CreateUser 创建用户
// @Summary 创建用户
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "用户信息"
// @Success 200 {object} dto.UserInfo
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /admin/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req dto.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	user, err := c.userService.CreateUser(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "created", user)
}

// ListUsers 用户列表
// @Summary 用户列表
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param keyword query string false "关键词"
// @Param role query string false "角色"
// @Param audience query string false "staff 或 customer"
// @Param status query int false "状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.UserListResponse
// @Failure 403 {object} map[string]interface{}
// @Router /admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	var req dto.UserListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	req.Page, req.PageSize = pageOf(req.Page, req.PageSize)

	resp, err := c.userService.ListUsers(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, resp)
}

// GetUser 获取用户详情
// @Summary 获取用户详情
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户 ID"
// @Success 200 {object} dto.UserInfo
// @Failure 404 {object} map[string]interface{}
// @Router /admin/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}

	user, err := c.userService.GetUserByID(ctx.Request.Context(), id)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, user)
}

// UpdateUser 更新用户
// @Summary 更新用户
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户 ID"
// @Param request body dto.UpdateUserRequest true "用户信息"
// @Success 200 {object} dto.UserInfo
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /admin/users/{id} [put]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}

	var req dto.UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	user, err := c.userService.UpdateUser(ctx.Request.Context(), id, &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "updated", user)
}

// AssignRole 分配角色
// @Summary 分配角色
// @Description 空角色表示撤销后台权限，降为顾客
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户 ID"
// @Param request body dto.AssignRoleRequest true "角色"
// @Success 200 {object} dto.UserInfo
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /admin/users/{id}/role [put]
func (c *UserController) AssignRole(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}

	var req dto.AssignRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	user, err := c.userService.AssignRole(ctx.Request.Context(), id, req.Role)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "role assigned", user)
}

// ResetPassword 重置密码
// @Summary 重置密码（管理员）
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户 ID"
// @Param request body dto.ResetPasswordRequest true "新密码"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /admin/users/{id}/password [put]
func (c *UserController) ResetPassword(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}

	var req dto.ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	if err := c.userService.ResetPassword(ctx.Request.Context(), id, req.NewPassword); err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "password reset", nil)
}

// DeleteUser 删除用户
// @Summary 删除用户
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /admin/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}

	if err := c.userService.DeleteUser(ctx.Request.Context(), id); err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "deleted", nil)
}

// ==================== 角色接口 ====================

// ListRoles 角色列表
// @Summary 角色列表
// @Tags Role
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Role
// @Router /admin/roles [get]
func (c *UserController) ListRoles(ctx *gin.Context) {
	roles, err := c.userService.ListRoles(ctx.Request.Context())
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, roles)
}

// CreateRole 创建角色
// @Summary 创建角色
// @Tags Role
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RoleRequest true "角色"
// @Success 200 {object} model.Role
// @Failure 409 {object} map[string]interface{}
// @Router /admin/roles [post]
func (c *UserController) CreateRole(ctx *gin.Context) {
	var req dto.RoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	role, err := c.userService.CreateRole(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "created", role)
}

// UpdateRole 更新角色
// @Summary 更新角色
// @Tags Role
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "角色名"
// @Param request body dto.RoleRequest true "角色"
// @Success 200 {object} model.Role
// @Failure 404 {object} map[string]interface{}
// @Router /admin/roles/{name} [put]
func (c *UserController) UpdateRole(ctx *gin.Context) {
	var req dto.RoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	role, err := c.userService.UpdateRole(ctx.Request.Context(), ctx.Param("name"), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "updated", role)
}

// DeleteRole 删除角色
// @Summary 删除角色
// @Tags Role
// @Produce json
// @Security BearerAuth
// @Param name path string true "角色名"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /admin/roles/{name} [delete]
func (c *UserController) DeleteRole(ctx *gin.Context) {
	if err := c.userService.DeleteRole(ctx.Request.Context(), ctx.Param("name")); err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "deleted", nil)
}
