package admin

import (
	"strings"

	handlershared "github.com/haoche-next/internal/http/handlers/shared"
	"github.com/haoche-next/internal/http/response"
	"github.com/haoche-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminListUsers 管理端用户列表
func (h *Handler) AdminListUsers(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.UserListFilter{
		Page:         page,
		PageSize:     pageSize,
		Keyword:      strings.TrimSpace(c.Query("keyword")),
		VerifyStatus: strings.TrimSpace(c.Query("verify_status")),
		Status:       strings.TrimSpace(c.Query("status")),
	}
	users, total, err := h.AuditService.ListUsers(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户列表失败", err)
		return
	}
	response.SuccessWithPage(c, users, response.NewPagination(page, pageSize, total))
}

// AdminGetUser 管理端用户详情
func (h *Handler) AdminGetUser(c *gin.Context) {
	userID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	user, err := h.AuditService.GetUser(userID)
	if err != nil {
		respondServiceError(c, err, "获取用户详情失败")
		return
	}
	response.Success(c, user)
}

// AuditUserRequest 实名认证审核请求
type AuditUserRequest struct {
	Decision string `json:"decision" binding:"required"` // approve / reject
	Reason   string `json:"reason"`
}

// AuditUser 审核用户实名认证
func (h *Handler) AuditUser(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	userID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req AuditUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	user, err := h.AuditService.AuditUser(userID, req.Decision, req.Reason, adminID)
	if err != nil {
		respondServiceError(c, err, "认证审核失败")
		return
	}
	requestLog(c).Infow("admin_user_audited",
		"admin_id", adminID,
		"user_id", userID,
		"decision", req.Decision,
		"verify_status", user.VerifyStatus,
	)
	response.Success(c, user)
}

// SetUserStatusRequest 用户状态调整请求
type SetUserStatusRequest struct {
	Status string `json:"status" binding:"required"` // active / disabled
}

// SetUserStatus 启用/禁用用户
func (h *Handler) SetUserStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	userID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req SetUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	user, err := h.AuditService.SetUserStatus(userID, req.Status, adminID)
	if err != nil {
		respondServiceError(c, err, "调整用户状态失败")
		return
	}
	requestLog(c).Infow("admin_user_status_changed",
		"admin_id", adminID,
		"user_id", userID,
		"status", user.Status,
	)
	response.Success(c, user)
}
