package models

import (
	"time"

	"gorm.io/gorm"
)

// Car 车源表
type Car struct {
	ID           uint           `gorm:"primarykey" json:"id"`                      // 主键
	OwnerID      uint           `gorm:"index;not null" json:"owner_id"`            // 卖家用户ID
	BrandID      uint           `gorm:"index;not null" json:"brand_id"`            // 品牌ID
	SeriesID     uint           `gorm:"index;not null" json:"series_id"`           // 车系ID
	Title        string         `gorm:"type:varchar(200);not null" json:"title"`   // 车源标题
	Price        Money          `gorm:"type:decimal(20,2);not null" json:"price"`  // 售价
	Mileage      int64          `gorm:"not null;default:0" json:"mileage"`         // 行驶里程（公里）
	CityCode     string         `gorm:"type:varchar(20);index" json:"city_code"`   // 所在城市编码
	Status       string         `gorm:"index;not null" json:"status"`              // 车源状态
	RejectReason string         `gorm:"type:varchar(500)" json:"reject_reason,omitempty"` // 驳回原因
	ListedAt     *time.Time     `gorm:"index" json:"listed_at"`                    // 上架时间
	SoldAt       *time.Time     `gorm:"index" json:"sold_at"`                      // 售出时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"` // 软删除时间（归档，不影响历史订单引用）

	Brand  *Brand  `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Series *Series `gorm:"foreignKey:SeriesID" json:"series,omitempty"`
}

// TableName 指定表名
func (Car) TableName() string {
	return "cars"
}
