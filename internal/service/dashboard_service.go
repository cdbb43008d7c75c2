package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haoche-next/internal/cache"
	"github.com/haoche-next/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
	dashboardTopBrandLimit = 10
)

// DashboardService 仪表盘服务
// 说明：聚合后台首页核心经营数据。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range    string            `json:"range"`
	From     string            `json:"from"`
	To       string            `json:"to"`
	Timezone string            `json:"timezone"`
	KPI      DashboardKPI      `json:"kpi"`
	CarStats DashboardCarStats `json:"car_stats"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	OrdersTotal        int64  `json:"orders_total"`
	PaidOrders         int64  `json:"paid_orders"`
	ClosedOrders       int64  `json:"closed_orders"`
	RefundedOrders     int64  `json:"refunded_orders"`
	DepositPaid        string `json:"deposit_paid"`
	PaymentsTotal      int64  `json:"payments_total"`
	PaymentsPaid       int64  `json:"payments_paid"`
	PaymentSuccessRate string `json:"payment_success_rate"`
	NewUsers           int64  `json:"new_users"`
	NewCars            int64  `json:"new_cars"`
	SoldCars           int64  `json:"sold_cars"`
}

// DashboardCarStats 车源状态分布
type DashboardCarStats struct {
	Draft        int64 `json:"draft"`
	PendingAudit int64 `json:"pending_audit"`
	Approved     int64 `json:"approved"`
	OnSale       int64 `json:"on_sale"`
	OffShelf     int64 `json:"off_shelf"`
	Sold         int64 `json:"sold"`
	Rejected     int64 `json:"rejected"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date        string `json:"date"`
	OrdersTotal int64  `json:"orders_total"`
	OrdersPaid  int64  `json:"orders_paid"`
}

// DashboardRankingsResponse 仪表盘排行榜响应
type DashboardRankingsResponse struct {
	Range       string                      `json:"range"`
	From        string                      `json:"from"`
	To          string                      `json:"to"`
	Timezone    string                      `json:"timezone"`
	TopBrands   []DashboardBrandRanking     `json:"top_brands"`
	TopChannels []DashboardChannelBreakdown `json:"top_channels"`
}

// DashboardBrandRanking 品牌成交排行项
type DashboardBrandRanking struct {
	BrandID    uint   `json:"brand_id"`
	BrandName  string `json:"brand_name"`
	PaidOrders int64  `json:"paid_orders"`
	PaidAmount string `json:"paid_amount"`
}

// DashboardChannelBreakdown 支付渠道统计项
type DashboardChannelBreakdown struct {
	Channel    string `json:"channel"`
	PaidCount  int64  `json:"paid_count"`
	PaidAmount string `json:"paid_amount"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	carStats, err := s.repo.GetCarStatusStats()
	if err != nil {
		return nil, err
	}

	paymentSuccessRate := 0.0
	if overview.PaymentsTotal > 0 {
		paymentSuccessRate = float64(overview.PaymentsPaid) / float64(overview.PaymentsTotal) * 100
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		KPI: DashboardKPI{
			OrdersTotal:        overview.OrdersTotal,
			PaidOrders:         overview.PaidOrders,
			ClosedOrders:       overview.ClosedOrders,
			RefundedOrders:     overview.RefundedOrders,
			DepositPaid:        formatMoneyValue(overview.DepositPaid),
			PaymentsTotal:      overview.PaymentsTotal,
			PaymentsPaid:       overview.PaymentsPaid,
			PaymentSuccessRate: formatPercentValue(paymentSuccessRate),
			NewUsers:           overview.NewUsers,
			NewCars:            overview.NewCars,
			SoldCars:           overview.SoldCars,
		},
		CarStats: DashboardCarStats{
			Draft:        carStats.Draft,
			PendingAudit: carStats.PendingAudit,
			Approved:     carStats.Approved,
			OnSale:       carStats.OnSale,
			OffShelf:     carStats.OffShelf,
			Sold:         carStats.Sold,
			Rejected:     carStats.Rejected,
		},
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取仪表盘订单趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	orderRows, err := s.repo.GetOrderTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	orderMap := make(map[string]repository.DashboardOrderTrendRow, len(orderRows))
	for _, item := range orderRows {
		orderMap[item.Day] = item
	}

	points := make([]DashboardTrendPoint, 0)
	for cursor := time.Date(window.startAt.Year(), window.startAt.Month(), window.startAt.Day(), 0, 0, 0, 0, window.startAt.Location()); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		orderItem := orderMap[day]
		points = append(points, DashboardTrendPoint{
			Date:        day,
			OrdersTotal: orderItem.OrdersTotal,
			OrdersPaid:  orderItem.OrdersPaid,
		})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings 获取品牌成交排行与渠道统计
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:rankings:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	brandRows, err := s.repo.GetTopBrands(window.startAt, window.endAt, dashboardTopBrandLimit)
	if err != nil {
		return nil, err
	}
	channelRows, err := s.repo.GetChannelStats(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	brands := make([]DashboardBrandRanking, 0, len(brandRows))
	for _, item := range brandRows {
		name := strings.TrimSpace(item.BrandName)
		if name == "" {
			name = "-"
		}
		brands = append(brands, DashboardBrandRanking{
			BrandID:    item.BrandID,
			BrandName:  name,
			PaidOrders: item.PaidOrders,
			PaidAmount: formatMoneyValue(item.PaidAmount),
		})
	}

	channels := make([]DashboardChannelBreakdown, 0, len(channelRows))
	for _, item := range channelRows {
		channels = append(channels, DashboardChannelBreakdown{
			Channel:    item.Channel,
			PaidCount:  item.PaidCount,
			PaidAmount: formatMoneyValue(item.PaidAmount),
		})
	}

	response := &DashboardRankingsResponse{
		Range:       window.rangeKey,
		From:        window.startAt.Format(time.RFC3339),
		To:          window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:    window.timezone,
		TopBrands:   brands,
		TopChannels: channels,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
