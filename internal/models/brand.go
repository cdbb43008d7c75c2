package models

import "time"

// Brand 品牌表
// 基础参照数据，仅管理员维护；被车源引用后不允许删除。
type Brand struct {
	ID        uint      `gorm:"primarykey" json:"id"`             // 主键
	Name      string    `gorm:"uniqueIndex;not null" json:"name"` // 品牌名称
	Logo      string    `gorm:"type:varchar(500)" json:"logo"`    // 品牌 Logo
	SortOrder int       `gorm:"default:0;index" json:"sort_order"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Brand) TableName() string {
	return "brands"
}

// Series 车系表
type Series struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                 // 主键
	BrandID   uint      `gorm:"index:idx_series_brand_name,unique;not null" json:"brand_id"` // 所属品牌
	Name      string    `gorm:"index:idx_series_brand_name,unique;not null" json:"name"`     // 车系名称（品牌内唯一）
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Brand *Brand `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
}

// TableName 指定表名
func (Series) TableName() string {
	return "series"
}
