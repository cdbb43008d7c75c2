package public

import (
	"time"

	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/models"

	"github.com/gin-gonic/gin"
)

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Phone       string `json:"phone" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// UserRegister 用户注册
func (h *Handler) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	user, err := h.UserAuthService.Register(req.Phone, req.Password, req.DisplayName)
	if err != nil {
		respondServiceError(c, err, "注册失败")
		return
	}

	token, expiresAt, err := h.UserAuthService.GenerateJWT(user)
	if err != nil {
		respondError(c, response.CodeInternal, "注册失败", err)
		return
	}
	response.Success(c, userAuthResponse(user, token, expiresAt))
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserLogin 用户登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	user, token, expiresAt, err := h.UserAuthService.Login(req.Phone, req.Password)
	if err != nil {
		respondServiceError(c, err, "登录失败")
		return
	}
	response.Success(c, userAuthResponse(user, token, expiresAt))
}

// GetCurrentUser 获取当前用户信息
func (h *Handler) GetCurrentUser(c *gin.Context) {
	id, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserAuthService.GetProfile(id)
	if err != nil {
		respondServiceError(c, err, "获取用户信息失败")
		return
	}
	response.Success(c, userProfileResponse(user))
}

// SubmitVerification 提交实名认证
func (h *Handler) SubmitVerification(c *gin.Context) {
	id, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.AuditService.SubmitVerification(id)
	if err != nil {
		respondServiceError(c, err, "提交认证失败")
		return
	}
	response.Success(c, userProfileResponse(user))
}

func userAuthResponse(user *models.User, token string, expiresAt time.Time) gin.H {
	return gin.H{
		"user":       userProfileResponse(user),
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	}
}

func userProfileResponse(user *models.User) gin.H {
	return gin.H{
		"id":            user.ID,
		"phone":         user.Phone,
		"display_name":  user.DisplayName,
		"verify_status": user.VerifyStatus,
		"verify_reason": user.VerifyReason,
		"status":        user.Status,
		"last_login_at": user.LastLoginAt,
		"created_at":    user.CreatedAt,
	}
}
