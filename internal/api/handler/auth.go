package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/clauseguard/clauseguard_server/internal/model/dto"
	"github.com/clauseguard/clauseguard_server/internal/pkg/response"
	"github.com/clauseguard/clauseguard_server/internal/service"
)

// StateStore OAuth state 的存取接口
type StateStore interface {
	GenerateState(ctx context.Context, redirectURI string) (string, error)
	ValidateState(ctx context.Context, state string) (string, error)
}

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrUsernameExists):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "注册成功，请查收验证邮件", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		case errors.Is(err, service.ErrEmailNotVerified):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// VerifyEmail 验证邮箱
// POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.VerifyEmail(req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVerifyCode):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "邮箱验证成功", resp)
}

// GoogleLogin 获取 Google 授权跳转地址
// GET /api/v1/auth/google
func (h *AuthHandler) GoogleLogin(stateStore StateStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		redirectURI := c.Query("redirect_uri")

		state, err := stateStore.GenerateState(c.Request.Context(), redirectURI)
		if err != nil {
			response.ServerError(c, "")
			return
		}

		response.Success(c, gin.H{
			"auth_url": h.authService.GetGoogleAuthURL(state),
		})
	}
}

// GoogleCallback 处理 Google OAuth 回调
// GET /api/v1/auth/google/callback?code=xxx&state=xxx
func (h *AuthHandler) GoogleCallback(stateStore StateStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		state := c.Query("state")
		if code == "" {
			response.ParamError(c, "缺少授权码")
			return
		}

		if _, err := stateStore.ValidateState(c.Request.Context(), state); err != nil {
			response.ParamError(c, "state 无效或已过期")
			return
		}

		resp, err := h.authService.GoogleCallback(c.Request.Context(), code)
		if err != nil {
			response.ServerError(c, "")
			return
		}

		response.SuccessWithMessage(c, "登录成功", resp)
	}
}
