package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"estate_listing_v1/internal/api/dto"
	"estate_listing_v1/internal/middleware"
	"estate_listing_v1/internal/service"
)

// ==================== UserController 用户控制器 ====================

// UserController 用户控制器
type UserController struct {
	userService  *service.UserService
	secureCookie bool
}

// NewUserController 创建用户控制器
func NewUserController(userService *service.UserService, secureCookie bool) *UserController {
	return &UserController{userService: userService, secureCookie: secureCookie}
}

// ==================== 认证接口 ====================

// Signup 用户注册
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "注册信息"
// @Success 201 {object} dto.UserInfo
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/user/signup [post]
func (c *UserController) Signup(ctx *gin.Context) {
	var req dto.SignupRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid signup request", Details: err.Error()})
		return
	}

	user, err := c.userService.Signup(ctx.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
			return
		}
		_ = ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create user"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

// Login 用户登录
// @Summary 用户登录，同时写入 token Cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/user/login [post]
func (c *UserController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Email and password are required"})
		return
	}

	resp, err := c.userService.Login(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserDisabled):
			ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: err.Error()})
		default:
			_ = ctx.Error(err)
			ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	maxAge := int(time.Until(resp.ExpiresAt).Seconds())
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenField, resp.Token, maxAge, "/", "", c.secureCookie, true)

	ctx.JSON(http.StatusOK, resp)
}

// Logout 清除 token Cookie
// @Summary 退出登录
// @Tags Auth
// @Router /api/user/logout [post]
func (c *UserController) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenField, "", -1, "/", "", c.secureCookie, true)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserInfo
// @Router /api/user/me [get]
func (c *UserController) Me(ctx *gin.Context) {
	userID := middleware.GetUserID(ctx)
	user, err := c.userService.GetProfile(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load user"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": user})
}
