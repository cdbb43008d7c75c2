package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuditServiceTest(t *testing.T) (*AuditService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:audit_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewAuditService(repository.NewUserRepository(db)), db
}

func createTestUser(t *testing.T, db *gorm.DB, verifyStatus string) *models.User {
	t.Helper()
	user := models.User{
		Phone:        fmt.Sprintf("138%08d", time.Now().UnixNano()%100000000),
		PasswordHash: "x",
		DisplayName:  "测试用户",
		VerifyStatus: verifyStatus,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return &user
}

func TestUserVerificationLifecycle(t *testing.T) {
	svc, db := setupAuditServiceTest(t)
	user := createTestUser(t, db, constants.UserVerifyStatusUnverified)

	submitted, err := svc.SubmitVerification(user.ID)
	if err != nil {
		t.Fatalf("submit verification failed: %v", err)
	}
	if submitted.VerifyStatus != constants.UserVerifyStatusPending {
		t.Fatalf("expected pending, got %s", submitted.VerifyStatus)
	}

	verified, err := svc.AuditUser(user.ID, constants.AuditDecisionApprove, "", 9)
	if err != nil {
		t.Fatalf("audit approve failed: %v", err)
	}
	if verified.VerifyStatus != constants.UserVerifyStatusVerified {
		t.Fatalf("expected verified, got %s", verified.VerifyStatus)
	}

	// 已通过后不允许重复提交
	if _, err := svc.SubmitVerification(user.ID); !errors.Is(err, ErrUserStatusInvalid) {
		t.Fatalf("expected ErrUserStatusInvalid, got %v", err)
	}
}

func TestAuditUserApproveDiscardsSuppliedReason(t *testing.T) {
	svc, db := setupAuditServiceTest(t)
	user := createTestUser(t, db, constants.UserVerifyStatusPending)

	verified, err := svc.AuditUser(user.ID, constants.AuditDecisionApprove, "资料齐全", 9)
	if err != nil {
		t.Fatalf("audit approve failed: %v", err)
	}
	if verified.VerifyStatus != constants.UserVerifyStatusVerified {
		t.Fatalf("expected verified, got %s", verified.VerifyStatus)
	}
	if verified.VerifyReason != "" {
		t.Fatalf("expected empty verify reason on approval, got %s", verified.VerifyReason)
	}
}

func TestAuditUserRejectRequiresReason(t *testing.T) {
	svc, db := setupAuditServiceTest(t)
	user := createTestUser(t, db, constants.UserVerifyStatusPending)

	if _, err := svc.AuditUser(user.ID, constants.AuditDecisionReject, "", 9); !errors.Is(err, ErrAuditReasonRequired) {
		t.Fatalf("expected ErrAuditReasonRequired, got %v", err)
	}

	rejected, err := svc.AuditUser(user.ID, constants.AuditDecisionReject, "证件照片模糊", 9)
	if err != nil {
		t.Fatalf("audit reject failed: %v", err)
	}
	if rejected.VerifyStatus != constants.UserVerifyStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.VerifyStatus)
	}
	if rejected.VerifyReason != "证件照片模糊" {
		t.Fatalf("unexpected verify reason: %s", rejected.VerifyReason)
	}

	// 被驳回后可重新提交
	resubmitted, err := svc.SubmitVerification(user.ID)
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if resubmitted.VerifyStatus != constants.UserVerifyStatusPending {
		t.Fatalf("expected pending, got %s", resubmitted.VerifyStatus)
	}
	if resubmitted.VerifyReason != "" {
		t.Fatalf("expected verify reason cleared, got %s", resubmitted.VerifyReason)
	}
}

func TestAuditUserRejectsInvalidDecision(t *testing.T) {
	svc, db := setupAuditServiceTest(t)
	user := createTestUser(t, db, constants.UserVerifyStatusPending)

	if _, err := svc.AuditUser(user.ID, "maybe", "", 9); !errors.Is(err, ErrAuditDecisionInvalid) {
		t.Fatalf("expected ErrAuditDecisionInvalid, got %v", err)
	}
}

func TestSetUserStatusDisableAndEnable(t *testing.T) {
	svc, db := setupAuditServiceTest(t)
	user := createTestUser(t, db, constants.UserVerifyStatusVerified)

	disabled, err := svc.SetUserStatus(user.ID, constants.UserStatusDisabled, 9)
	if err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	if disabled.Status != constants.UserStatusDisabled {
		t.Fatalf("expected disabled, got %s", disabled.Status)
	}

	// 禁用用户不允许提交实名申请
	if _, err := svc.SubmitVerification(user.ID); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}

	enabled, err := svc.SetUserStatus(user.ID, constants.UserStatusActive, 9)
	if err != nil {
		t.Fatalf("enable user failed: %v", err)
	}
	if enabled.Status != constants.UserStatusActive {
		t.Fatalf("expected active, got %s", enabled.Status)
	}
}
