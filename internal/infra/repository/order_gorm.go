package repository

import (
	"context"

	"coffeeshop/internal/domain/model"
	repo "coffeeshop/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// 1回のINSERTでまとめて作る。IDが空ならここで振る
const createBatchSize = 500

func (r *OrderGormRepository) CreateBulk(ctx context.Context, records []model.OrderRecord) ([]model.OrderRecord, error) {
	if len(records) == 0 {
		return []model.OrderRecord{}, nil
	}

	rows := make([]model.OrderRecord, len(records))
	copy(rows, records)
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		rows[i].Product = nil
	}

	// 1文のバインド変数は65535まで。分けて入れる（呼び出し側のtxの中）
	if err := r.db.WithContext(ctx).CreateInBatches(&rows, createBatchSize).Error; err != nil {
		return nil, mapErr(err)
	}
	return rows, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, id string) (model.OrderRecord, error) {
	var o model.OrderRecord
	err := r.db.WithContext(ctx).Preload("Product").Where("id = ?", id).First(&o).Error
	if err != nil {
		return model.OrderRecord{}, mapErr(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIDs(ctx context.Context, ids []string) ([]model.OrderRecord, error) {
	items := []model.OrderRecord{}
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id IN ?", ids).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return []model.OrderRecord{}, err
	}
	return items, nil
}

func (r *OrderGormRepository) ListByGuestID(ctx context.Context, guestID string) ([]model.OrderRecord, error) {
	items := []model.OrderRecord{}
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("guest_id = ?", guestID).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return []model.OrderRecord{}, err
	}
	return items, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.OrderRecord, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.OrderRecord{})

	//guest_id 絞り込み
	if f.GuestID != "" {
		q = q.Where("guest_id = ?", f.GuestID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.OrderRecord{}, 0, err
	}

	items := []model.OrderRecord{}
	offset := (f.Page - 1) * f.Limit
	if err := q.Preload("Product").Order("created_at desc").Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.OrderRecord{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) Update(ctx context.Context, id string, u repo.OrderUpdate) error {
	fields := map[string]interface{}{}
	if u.GuestName != nil {
		fields["guest_name"] = *u.GuestName
	}
	if u.GuestEmail != nil {
		fields["guest_email"] = *u.GuestEmail
	}
	if u.GuestPhone != nil {
		fields["guest_phone"] = *u.GuestPhone
	}
	if u.GuestAddress != nil {
		fields["guest_address"] = *u.GuestAddress
	}
	if u.Notes != nil {
		fields["notes"] = *u.Notes
	}

	// 変更なしでも存在確認はする
	if len(fields) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.OrderRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.OrderRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 売上は注文1行ごとに現在の商品価格を足す
func (r *OrderGormRepository) Stats(ctx context.Context) (model.OrderStats, error) {
	var s model.OrderStats
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("COUNT(orders.id) AS total_orders, COALESCE(SUM(products.price), 0) AS total_revenue, COUNT(DISTINCT orders.guest_id) AS unique_customers").
		Joins("JOIN products ON products.id = orders.product_id").
		Scan(&s).Error
	if err != nil {
		return model.OrderStats{}, err
	}
	return s, nil
}
