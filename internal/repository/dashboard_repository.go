package repository

import (
	"fmt"
	"time"

	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetOrderTrends(startAt, endAt time.Time) ([]DashboardOrderTrendRow, error)
	GetCarStatusStats() (DashboardCarStatsRow, error)
	GetTopBrands(startAt, endAt time.Time, limit int) ([]DashboardBrandRankingRow, error)
	GetChannelStats(startAt, endAt time.Time) ([]DashboardChannelStatsRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	OrdersTotal    int64
	PaidOrders     int64
	ClosedOrders   int64
	RefundedOrders int64
	DepositPaid    float64
	PaymentsTotal  int64
	PaymentsPaid   int64
	NewUsers       int64
	NewCars        int64
	SoldCars       int64
}

// DashboardOrderTrendRow 订单趋势统计
type DashboardOrderTrendRow struct {
	Day         string
	OrdersTotal int64
	OrdersPaid  int64
}

// DashboardCarStatsRow 车源状态分布
type DashboardCarStatsRow struct {
	Draft        int64
	PendingAudit int64
	Approved     int64
	OnSale       int64
	OffShelf     int64
	Sold         int64
	Rejected     int64
}

// DashboardBrandRankingRow 品牌成交排行原始行
type DashboardBrandRankingRow struct {
	BrandID    uint
	BrandName  string
	PaidOrders int64
	PaidAmount float64
}

// DashboardChannelStatsRow 支付渠道统计原始行
type DashboardChannelStatsRow struct {
	Channel    string
	PaidCount  int64
	PaidAmount float64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

func paidOrderStatuses() []string {
	return []string{
		constants.OrderStatusPaid,
		constants.OrderStatusRefunded,
	}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	orderBase := func() *gorm.DB {
		return r.db.Model(&models.Order{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}

	if err := orderBase().Count(&result.OrdersTotal).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status IN ?", paidOrderStatuses()).Count(&result.PaidOrders).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status = ?", constants.OrderStatusClosed).Count(&result.ClosedOrders).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("status = ?", constants.OrderStatusRefunded).Count(&result.RefundedOrders).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Order{}).
		Where("paid_at IS NOT NULL AND paid_at >= ? AND paid_at < ? AND status IN ?", startAt, endAt, paidOrderStatuses()).
		Select("COALESCE(SUM(deposit_amount), 0)").
		Scan(&result.DepositPaid).Error; err != nil {
		return result, err
	}

	paymentBase := func() *gorm.DB {
		return r.db.Model(&models.Payment{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := paymentBase().Count(&result.PaymentsTotal).Error; err != nil {
		return result, err
	}
	if err := paymentBase().Where("status IN ?", []string{constants.PaymentStatusPaid, constants.PaymentStatusRefunded}).
		Count(&result.PaymentsPaid).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewUsers).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Car{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewCars).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Car{}).
		Where("sold_at IS NOT NULL AND sold_at >= ? AND sold_at < ?", startAt, endAt).
		Count(&result.SoldCars).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetOrderTrends 获取订单趋势
func (r *GormDashboardRepository) GetOrderTrends(startAt, endAt time.Time) ([]DashboardOrderTrendRow, error) {
	type totalRow struct {
		Day   string
		Total int64
	}
	type paidRow struct {
		Day  string
		Paid int64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"

	var totals []totalRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var paids []paidRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as paid", dayExpr)).
		Where("created_at >= ? AND created_at < ? AND status IN ?", startAt, endAt, paidOrderStatuses()).
		Group(dayExpr).
		Order("day asc").
		Scan(&paids).Error; err != nil {
		return nil, err
	}

	paidMap := make(map[string]int64, len(paids))
	for _, item := range paids {
		paidMap[item.Day] = item.Paid
	}

	result := make([]DashboardOrderTrendRow, 0, len(totals))
	for _, item := range totals {
		result = append(result, DashboardOrderTrendRow{
			Day:         item.Day,
			OrdersTotal: item.Total,
			OrdersPaid:  paidMap[item.Day],
		})
	}
	return result, nil
}

// GetCarStatusStats 获取车源状态分布
func (r *GormDashboardRepository) GetCarStatusStats() (DashboardCarStatsRow, error) {
	type statusRow struct {
		Status string
		Total  int64
	}

	var rows []statusRow
	if err := r.db.Model(&models.Car{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return DashboardCarStatsRow{}, err
	}

	result := DashboardCarStatsRow{}
	for _, row := range rows {
		switch row.Status {
		case constants.CarStatusDraft:
			result.Draft = row.Total
		case constants.CarStatusPending:
			result.PendingAudit = row.Total
		case constants.CarStatusApproved:
			result.Approved = row.Total
		case constants.CarStatusOn:
			result.OnSale = row.Total
		case constants.CarStatusOff:
			result.OffShelf = row.Total
		case constants.CarStatusSold:
			result.Sold = row.Total
		case constants.CarStatusRejected:
			result.Rejected = row.Total
		}
	}
	return result, nil
}

// GetTopBrands 品牌成交排行
func (r *GormDashboardRepository) GetTopBrands(startAt, endAt time.Time, limit int) ([]DashboardBrandRankingRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []DashboardBrandRankingRow
	if err := r.db.Model(&models.Order{}).
		Select("cars.brand_id as brand_id, brands.name as brand_name, COUNT(*) as paid_orders, COALESCE(SUM(orders.deposit_amount), 0) as paid_amount").
		Joins("JOIN cars ON cars.id = orders.car_id").
		Joins("JOIN brands ON brands.id = cars.brand_id").
		Where("orders.paid_at IS NOT NULL AND orders.paid_at >= ? AND orders.paid_at < ? AND orders.status IN ?", startAt, endAt, paidOrderStatuses()).
		Group("cars.brand_id, brands.name").
		Order("paid_orders desc").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetChannelStats 支付渠道统计
func (r *GormDashboardRepository) GetChannelStats(startAt, endAt time.Time) ([]DashboardChannelStatsRow, error) {
	var rows []DashboardChannelStatsRow
	if err := r.db.Model(&models.Payment{}).
		Select("channel, COUNT(*) as paid_count, COALESCE(SUM(amount), 0) as paid_amount").
		Where("paid_at IS NOT NULL AND paid_at >= ? AND paid_at < ? AND status IN ?",
			startAt, endAt, []string{constants.PaymentStatusPaid, constants.PaymentStatusRefunded}).
		Group("channel").
		Order("paid_count desc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
