package repository

import (
	"coffeeshop/internal/domain/model"
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反（商品名など）
	ErrDuplicate = errors.New("duplicate")
)

// 一覧検索
type ProductListQuery struct {
	Q         string
	Available *bool
	MinPrice  *int64
	MaxPrice  *int64
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	// 新しい順
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (model.Product, error)
	// まとめて1クエリで引く。見つからないidは結果に含まれないだけ（エラーにしない）
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id string) error

	// 大文字小文字を無視して同名があるか。excludeIDは更新時の自分自身
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	// この商品を参照する注文があるか
	HasOrders(ctx context.Context, id string) (bool, error)
}
