package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"coffeeshop/internal/domain/model"
	repo "coffeeshop/internal/repository"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
}

func NewAdminOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, orders: orders}
}

type AdminOrderListOutput struct {
	Items []model.OrderRecord `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// 管理画面から変更できるのは注文者情報とメモだけ
type AdminUpdateOrderInput struct {
	GuestName    *string `json:"guest_name"`
	GuestEmail   *string `json:"guest_email"`
	GuestPhone   *string `json:"guest_phone"`
	GuestAddress *string `json:"guest_address"`
	Notes        *string `json:"notes"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	f.GuestID = strings.TrimSpace(f.GuestID)

	items, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return AdminOrderListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, orderID string) (model.OrderRecord, error) {
	if strings.TrimSpace(orderID) == "" {
		return model.OrderRecord{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if isNotFound(err) {
		return model.OrderRecord{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.OrderRecord{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return o, nil
}

func (u *AdminOrderUsecase) Stats(ctx context.Context) (model.OrderStats, error) {
	s, err := u.orders.Stats(ctx)
	if err != nil {
		return model.OrderStats{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return s, nil
}

// 注文者情報の更新。空文字にはできない
func (u *AdminOrderUsecase) Update(ctx context.Context, actorAdminUserID int64, orderID string, in AdminUpdateOrderInput) (model.OrderRecord, error) {
	if actorAdminUserID <= 0 {
		return model.OrderRecord{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderID) == "" {
		return model.OrderRecord{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	upd := repo.OrderUpdate{}
	var bad []string
	trimRequired := func(field string, v *string) *string {
		if v == nil {
			return nil
		}
		s := strings.TrimSpace(*v)
		if s == "" {
			bad = append(bad, field)
			return nil
		}
		return &s
	}
	upd.GuestName = trimRequired("guest_name", in.GuestName)
	upd.GuestPhone = trimRequired("guest_phone", in.GuestPhone)
	upd.GuestAddress = trimRequired("guest_address", in.GuestAddress)
	upd.GuestEmail = trimRequired("guest_email", in.GuestEmail)
	if upd.GuestEmail != nil && !isValidEmail(*upd.GuestEmail) {
		bad = append(bad, "guest_email")
	}
	if len(bad) > 0 {
		return model.OrderRecord{}, &ValidationError{Fields: bad}
	}
	if in.Notes != nil {
		n := strings.TrimSpace(*in.Notes)
		upd.Notes = &n
	}

	var out model.OrderRecord
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Orders().FindByID(ctx, orderID)
		if isNotFound(err) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Orders().Update(ctx, orderID, upd); err != nil {
			if isNotFound(err) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		after, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログ（UPDATE_ORDER）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   orderAuditJSON(before),
			AfterJSON:    orderAuditJSON(after),
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = after
		return nil
	})
	if err != nil {
		return model.OrderRecord{}, err
	}
	return out, nil
}

func (u *AdminOrderUsecase) Delete(ctx context.Context, actorAdminUserID int64, orderID string) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderID) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Orders().FindByID(ctx, orderID)
		if isNotFound(err) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Orders().Delete(ctx, orderID); err != nil {
			if isNotFound(err) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionDeleteOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   orderAuditJSON(before),
			AfterJSON:    "{}",
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

type orderAudit struct {
	GuestID      string  `json:"guest_id"`
	GuestName    string  `json:"guest_name"`
	GuestEmail   string  `json:"guest_email"`
	GuestPhone   string  `json:"guest_phone"`
	GuestAddress string  `json:"guest_address"`
	Notes        *string `json:"notes"`
	ProductID    string  `json:"product_id"`
}

func orderAuditJSON(o model.OrderRecord) string {
	b, err := json.Marshal(orderAudit{
		GuestID:      o.GuestID,
		GuestName:    o.GuestName,
		GuestEmail:   o.GuestEmail,
		GuestPhone:   o.GuestPhone,
		GuestAddress: o.GuestAddress,
		Notes:        o.Notes,
		ProductID:    o.ProductID,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}
