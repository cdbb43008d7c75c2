package repository

import "time"

// CarListFilter 查询车源列表的过滤条件
type CarListFilter struct {
	Page       int
	PageSize   int
	OwnerID    uint
	BrandID    uint
	SeriesID   uint
	CityCode   string
	Status     string
	Statuses   []string
	PriceMin   *float64
	PriceMax   *float64
	OnlyOnSale bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	BuyerID     uint
	SellerID    uint
	CarID       uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderID     uint
	Channel     string
	Status      string
	PaymentNo   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page         int
	PageSize     int
	Keyword      string
	VerifyStatus string
	Status       string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}
