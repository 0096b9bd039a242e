package model

import "time"

// 注文レコード。1行 = 商品1個。
// 数量の列は持たない。数量Nの明細はN行になり、同じGuestIDでまとまる。
type OrderRecord struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	GuestID      string    `gorm:"type:varchar(64);not null;index" json:"guest_id"`
	GuestName    string    `gorm:"type:varchar(255);not null" json:"guest_name"`
	GuestEmail   string    `gorm:"type:varchar(255);not null" json:"guest_email"`
	GuestPhone   string    `gorm:"type:varchar(30);not null" json:"guest_phone"`
	GuestAddress string    `gorm:"type:varchar(255);not null" json:"guest_address"`
	Notes        *string   `gorm:"type:text" json:"notes"`
	ProductID    string    `gorm:"type:uuid;not null;index" json:"product_id"`
	Product      *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (OrderRecord) TableName() string {
	return "orders"
}

// 管理画面の集計
type OrderStats struct {
	TotalOrders     int64 `json:"total_orders"`
	TotalRevenue    int64 `json:"total_revenue"`
	UniqueCustomers int64 `json:"unique_customers"`
}
