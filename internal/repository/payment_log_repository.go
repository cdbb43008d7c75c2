package repository

import (
	"github.com/haoche-next/internal/models"

	"gorm.io/gorm"
)

// PaymentLogRepository 支付流水数据访问接口。
// 流水只追加不修改，接口上不提供更新与删除。
type PaymentLogRepository interface {
	Append(log *models.PaymentLog) error
	ListByPaymentID(paymentID uint) ([]models.PaymentLog, error)
	WithTx(tx *gorm.DB) *GormPaymentLogRepository
}

// GormPaymentLogRepository GORM 实现
type GormPaymentLogRepository struct {
	db *gorm.DB
}

// NewPaymentLogRepository 创建支付流水仓库
func NewPaymentLogRepository(db *gorm.DB) *GormPaymentLogRepository {
	return &GormPaymentLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentLogRepository) WithTx(tx *gorm.DB) *GormPaymentLogRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentLogRepository{db: tx}
}

// Append 追加一条流水
func (r *GormPaymentLogRepository) Append(log *models.PaymentLog) error {
	return r.db.Create(log).Error
}

// ListByPaymentID 按支付单获取流水，按写入顺序返回
func (r *GormPaymentLogRepository) ListByPaymentID(paymentID uint) ([]models.PaymentLog, error) {
	var logs []models.PaymentLog
	if err := r.db.Where("payment_id = ?", paymentID).Order("id asc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
