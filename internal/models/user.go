package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（买家/卖家共用一张表）
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`              // 主键
	Phone        string         `gorm:"uniqueIndex;not null" json:"phone"` // 手机号
	PasswordHash string         `gorm:"not null" json:"-"`                 // 密码哈希（不返回给前端）
	DisplayName  string         `gorm:"default:''" json:"display_name"`    // 昵称
	VerifyStatus string         `gorm:"index;default:'unverified'" json:"verify_status"` // 实名认证状态
	VerifyReason string         `gorm:"type:varchar(500)" json:"verify_reason,omitempty"` // 认证驳回原因
	Status       string         `gorm:"default:'active'" json:"status"`    // 账号状态
	LastLoginAt  *time.Time     `json:"last_login_at"`                     // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
