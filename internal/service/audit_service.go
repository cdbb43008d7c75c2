package service

import (
	"strings"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/repository"
)

// AuditService 审核服务，承载用户实名审核与账号启停
type AuditService struct {
	userRepo repository.UserRepository
}

// NewAuditService 创建审核服务实例
func NewAuditService(userRepo repository.UserRepository) *AuditService {
	return &AuditService{userRepo: userRepo}
}

// SubmitVerification 用户提交实名认证申请
func (s *AuditService) SubmitVerification(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}
	if user.VerifyStatus == constants.UserVerifyStatusPending || user.VerifyStatus == constants.UserVerifyStatusVerified {
		return nil, ErrUserStatusInvalid
	}

	ok, err := s.userRepo.UpdateVerifyStatusIf(user.ID,
		[]string{constants.UserVerifyStatusUnverified, constants.UserVerifyStatusRejected},
		constants.UserVerifyStatusPending,
		map[string]interface{}{"verify_reason": ""})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserStatusInvalid
	}

	logger.Infow("user_verification_submitted",
		"user_id", user.ID,
	)
	return s.userRepo.GetByID(user.ID)
}

// AuditUser 审核用户实名认证。驳回必须给出原因。
func (s *AuditService) AuditUser(userID uint, decision, reason string, adminID uint) (*models.User, error) {
	var target string
	switch decision {
	case constants.AuditDecisionApprove:
		target = constants.UserVerifyStatusVerified
	case constants.AuditDecisionReject:
		target = constants.UserVerifyStatusRejected
	default:
		return nil, ErrAuditDecisionInvalid
	}
	reason = strings.TrimSpace(reason)
	if decision == constants.AuditDecisionReject && reason == "" {
		return nil, ErrAuditReasonRequired
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.VerifyStatus != constants.UserVerifyStatusPending {
		return nil, ErrUserStatusInvalid
	}

	// 通过时不留存原因，verify_reason 只承载驳回说明
	if decision == constants.AuditDecisionApprove {
		reason = ""
	}
	updates := map[string]interface{}{"verify_reason": reason}
	ok, err := s.userRepo.UpdateVerifyStatusIf(user.ID,
		[]string{constants.UserVerifyStatusPending},
		target, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserStatusInvalid
	}

	logger.Infow("user_audited",
		"user_id", user.ID,
		"decision", decision,
		"admin_id", adminID,
	)
	return s.userRepo.GetByID(user.ID)
}

// SetUserStatus 启用/禁用用户账号
func (s *AuditService) SetUserStatus(userID uint, status string, adminID uint) (*models.User, error) {
	if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
		return nil, ErrUserStatusInvalid
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status == status {
		return user, nil
	}

	user.Status = status
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	logger.Infow("user_status_changed",
		"user_id", user.ID,
		"status", status,
		"admin_id", adminID,
	)
	return user, nil
}

// GetUser 管理端用户详情
func (s *AuditService) GetUser(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers 管理端用户列表
func (s *AuditService) ListUsers(filter repository.UserListFilter) ([]models.User, int64, error) {
	return s.userRepo.List(filter)
}
