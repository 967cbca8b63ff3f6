package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopsmart_v1_202610/internal/api/dto"
	"shopsmart_v1_202610/internal/console"
	"shopsmart_v1_202610/internal/middleware"
	"shopsmart_v1_202610/internal/service"
)

// ==================== AuthController 登录与会话 ====================

// AuthController 登录、刷新、登出；每次登录创建一个控制台会话
type AuthController struct {
	users    *service.UserService
	sessions *console.Manager
}

// NewAuthController 创建认证控制器
func NewAuthController(users *service.UserService, sessions *console.Manager) *AuthController {
	return &AuthController{users: users, sessions: sessions}
}

// Login 用户登录
// @Summary 用户登录
// @Description 本地模式校验本地账号，远程模式转发到上游登录；返回的 token 绑定控制台会话
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	sess, err := c.sessions.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			failErr(ctx, err)
			return
		}
		fail(ctx, http.StatusUnauthorized, err.Error())
		return
	}

	resp, err := c.issue(ctx, sess)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "login successful", resp)
}

// issue 签发绑定会话的 token 对
func (c *AuthController) issue(ctx *gin.Context, sess *console.Session) (*dto.LoginResponse, error) {
	var userID int64
	var username, role string
	if u := sess.CurrentUser(); u != nil {
		userID, username, role = u.ID, u.Username, u.Role
	}
	access, refresh, err := middleware.GenerateTokenPair(userID, username, role, sess.ID)
	if err != nil {
		return nil, err
	}
	resp := &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(middleware.GetJWTConfig().AccessTokenTTL),
	}
	if userID > 0 {
		resp.User = c.userInfo(ctx, sess)
	}
	return resp, nil
}

// userInfo 本地模式读库，远程模式使用会话中的身份
func (c *AuthController) userInfo(ctx *gin.Context, sess *console.Session) *dto.UserInfo {
	u := sess.CurrentUser()
	if c.sessions.Backend().Name() == "local" {
		if info, err := c.users.GetProfile(ctx.Request.Context(), u.ID); err == nil {
			return info
		}
	}
	return &dto.UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Permissions: c.users.Permissions(ctx.Request.Context(), u.Role),
	}
}

// Guest 访客会话
// @Summary 创建访客会话
// @Description 未登录用户使用购物车前先获取访客 token
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.LoginResponse
// @Router /shop/session [post]
func (c *AuthController) Guest(ctx *gin.Context) {
	resp, err := c.issue(ctx, c.sessions.Guest())
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, resp)
}

// Register 顾客注册
// @Summary 顾客注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "注册信息"
// @Success 200 {object} dto.UserInfo
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	if c.sessions.Backend().Name() != "local" {
		fail(ctx, http.StatusNotImplemented, "registration is handled by the upstream system")
		return
	}
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	user, err := c.users.Register(ctx.Request.Context(), &req)
	if err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "registered", user)
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Description 会话仍然存在时签发新的 token 对，远程模式同时刷新上游 token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh Token"
// @Success 200 {object} dto.RefreshTokenResponse
// @Failure 401 {object} map[string]interface{}
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	claims, err := middleware.ParseToken(req.RefreshToken)
	if err != nil || claims.Subject != "refresh" {
		fail(ctx, http.StatusUnauthorized, service.ErrInvalidToken.Error())
		return
	}
	if _, err := c.sessions.Refresh(ctx.Request.Context(), claims.SessionID); err != nil {
		failErr(ctx, err)
		return
	}

	access, refresh, err := middleware.GenerateTokenPair(claims.UserID, claims.Username, claims.Role, claims.SessionID)
	if err != nil {
		failErr(ctx, err)
		return
	}
	ok(ctx, &dto.RefreshTokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(middleware.GetJWTConfig().AccessTokenTTL),
	})
}

// GetProfile 当前用户
// @Summary 获取当前用户信息
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserInfo
// @Failure 401 {object} map[string]interface{}
// @Router /auth/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	sess, err := c.sessions.Get(middleware.GetSessionID(ctx))
	if err != nil {
		failErr(ctx, err)
		return
	}
	if sess.CurrentUser() == nil {
		failErr(ctx, console.ErrLoginRequired)
		return
	}
	ok(ctx, c.userInfo(ctx, sess))
}

// Logout 结束会话
// @Summary 登出
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	c.sessions.Logout(middleware.GetSessionID(ctx))
	okMsg(ctx, "logged out", nil)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangePasswordRequest true "密码信息"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /auth/password [put]
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := c.users.ChangePassword(ctx.Request.Context(), middleware.GetUserID(ctx), &req); err != nil {
		failErr(ctx, err)
		return
	}
	okMsg(ctx, "password changed", nil)
}
