package model

import "time"

// 注文確定イベント。1回のチェックアウトで1件。
type OrderPlaced struct {
	GuestID    string        `json:"guest_id"`
	OrderIDs   []string      `json:"order_ids"`
	GuestName  string        `json:"guest_name"`
	GuestEmail string        `json:"guest_email"`
	Lines      []OrderedLine `json:"lines"`
	TotalItems int64         `json:"total_items"`
	TotalPrice int64         `json:"total_price"`
	PlacedAt   time.Time     `json:"placed_at"`
}

type OrderedLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}
