package model

import (
	"time"
)

// メニューの商品。価格は最小通貨単位の整数。
type Product struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Price       int64     `gorm:"not null" json:"price"`
	Description *string   `gorm:"column:description;type:varchar(500)" json:"desc"`
	Image       *string   `gorm:"type:varchar(2048)" json:"image"`
	Available   bool      `gorm:"not null;default:true" json:"available"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
