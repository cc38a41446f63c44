package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clauseguard/clauseguard_server/internal/api/middleware"
	"github.com/clauseguard/clauseguard_server/internal/model/dto"
	"github.com/clauseguard/clauseguard_server/internal/pkg/response"
	"github.com/clauseguard/clauseguard_server/internal/service"
)

type UserHandler struct {
	authService  *service.AuthService
	quotaService *service.QuotaService
}

func NewUserHandler(authService *service.AuthService, quotaService *service.QuotaService) *UserHandler {
	return &UserHandler{
		authService:  authService,
		quotaService: quotaService,
	}
}

// Me 获取当前登录用户信息
// GET /api/v1/user/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundError(c, "用户不存在")
			return
		}
		response.ServerError(c, "")
		return
	}

	info := &dto.UserInfo{
		ID:            user.ID,
		Username:      user.Username,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
	if user.Email != nil {
		info.Email = *user.Email
	}

	if quota, err := h.quotaService.GetQuotaInfo(userID); err == nil {
		info.QuotaInfo = quota
	}

	response.Success(c, info)
}
