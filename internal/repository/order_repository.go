package repository

import (
	"context"

	"coffeeshop/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page    int
	Limit   int
	GuestID string
}

// 管理画面から変更できる項目。nilは変更しない
type OrderUpdate struct {
	GuestName    *string
	GuestEmail   *string
	GuestPhone   *string
	GuestAddress *string
	Notes        *string
}

type OrderRepository interface {
	// 全件入るか全件入らないか。TxRepos経由で呼ぶこと
	CreateBulk(ctx context.Context, records []model.OrderRecord) ([]model.OrderRecord, error)

	FindByID(ctx context.Context, id string) (model.OrderRecord, error)
	// Productをpreloadして返す
	FindByIDs(ctx context.Context, ids []string) ([]model.OrderRecord, error)
	ListByGuestID(ctx context.Context, guestID string) ([]model.OrderRecord, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.OrderRecord, int64, error)
	Update(ctx context.Context, id string, u OrderUpdate) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (model.OrderStats, error)
}
