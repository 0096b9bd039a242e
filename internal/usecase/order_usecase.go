package usecase

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"coffeeshop/internal/domain/cart"
	"coffeeshop/internal/domain/model"
	repo "coffeeshop/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 1回の注文で作る注文行の上限
const maxOrderUnits int64 = 1000

type OrderUsecase struct {
	tx       repo.TransactionManager
	products repo.ProductRepository
	orders   repo.OrderRepository
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

// timeoutが0なら締め切りなし
func NewOrderUsecase(
	tx repo.TransactionManager,
	products repo.ProductRepository,
	orders repo.OrderRepository,
	logger *zap.Logger,
	timeout time.Duration,
) *OrderUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderUsecase{
		tx:       tx,
		products: products,
		orders:   orders,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// 注文者の情報。notes以外は必須
type CustomerInfo struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Notes   *string `json:"notes"`
}

type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type SubmitInput struct {
	Customer CustomerInfo
	Lines    []OrderLine
}

type SubmitOutput struct {
	GuestID  string   `json:"guest_id"`
	OrderIDs []string `json:"order_ids"`
}

// Submitは注文を確定する。
// 数量Nの明細は注文N行になり、全行が同じguest_idを持つ。全行が1つのトランザクションで入る。
func (u *OrderUsecase) Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error) {
	customer, err := validateCustomer(in.Customer)
	if err != nil {
		return SubmitOutput{}, err
	}

	if len(in.Lines) == 0 {
		return SubmitOutput{}, ErrEmptyCart
	}
	ids := make([]string, 0, len(in.Lines))
	seen := make(map[string]struct{}, len(in.Lines))
	var units int64
	for _, l := range in.Lines {
		id := strings.TrimSpace(l.ProductID)
		if id == "" || l.Quantity < 1 || l.Quantity > cart.MaxLineQuantity {
			return SubmitOutput{}, &ValidationError{Fields: []string{"lines"}}
		}
		// 各明細はMaxLineQuantity以下なので桁あふれしない
		units += l.Quantity
		if units > maxOrderUnits {
			return SubmitOutput{}, &ValidationError{Fields: []string{"lines"}}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	// uuidでないidはDBに聞くまでもなく存在しない
	lookup := make([]string, 0, len(ids))
	for _, id := range ids {
		if parsed, err := uuid.Parse(id); err == nil && parsed.String() == id {
			lookup = append(lookup, id)
		}
	}

	exists := make(map[string]struct{}, len(lookup))
	if len(lookup) > 0 {
		//商品はまとめて1回で引く
		found, err := u.products.FindByIDs(ctx, lookup)
		if err != nil {
			u.logger.Error("order product lookup failed", zap.Error(err))
			return SubmitOutput{}, ErrSubmissionFailed
		}
		for _, p := range found {
			exists[p.ID] = struct{}{}
		}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := exists[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return SubmitOutput{}, &ProductsNotFoundError{IDs: missing}
	}

	guestID := newGuestID(u.now())
	records := fanOut(guestID, customer, in.Lines)

	var orderIDs []string
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		created, err := r.Orders().CreateBulk(ctx, records)
		if err != nil {
			return err
		}
		orderIDs = make([]string, 0, len(created))
		for _, o := range created {
			orderIDs = append(orderIDs, o.ID)
		}
		return nil
	})
	if err != nil {
		u.logger.Error("order submission failed",
			zap.String("guest_id", guestID),
			zap.Int("records", len(records)),
			zap.Error(err),
		)
		return SubmitOutput{}, ErrSubmissionFailed
	}

	u.logger.Info("order submitted", zap.String("guest_id", guestID), zap.Int("records", len(orderIDs)))
	return SubmitOutput{GuestID: guestID, OrderIDs: orderIDs}, nil
}

// 確認画面用。単位ごとの注文行と、商品ごとにまとめた明細
type OrderConfirmation struct {
	GuestID    string              `json:"guest_id"`
	Orders     []model.OrderRecord `json:"orders"`
	Items      []ConfirmedItem     `json:"items"`
	TotalItems int64               `json:"total_items"`
	TotalPrice int64               `json:"total_price"`
}

type ConfirmedItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

func (u *OrderUsecase) GetConfirmation(ctx context.Context, orderIDs []string) (OrderConfirmation, error) {
	ids := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return OrderConfirmation{}, NewHTTPError(http.StatusBadRequest, "ids required")
	}
	if len(ids) > 500 {
		return OrderConfirmation{}, NewHTTPError(http.StatusBadRequest, "too many ids")
	}

	orders, err := u.orders.FindByIDs(ctx, ids)
	if err != nil {
		return OrderConfirmation{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(orders) == 0 {
		return OrderConfirmation{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return summarize(orders[0].GuestID, orders), nil
}

func (u *OrderUsecase) GetByGuestID(ctx context.Context, guestID string) (OrderConfirmation, error) {
	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return OrderConfirmation{}, NewHTTPError(http.StatusBadRequest, "invalid guest id")
	}

	orders, err := u.orders.ListByGuestID(ctx, guestID)
	if err != nil {
		return OrderConfirmation{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(orders) == 0 {
		return OrderConfirmation{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return summarize(guestID, orders), nil
}

// 必須項目は name → phone → address → email の順で全部見る
func validateCustomer(c CustomerInfo) (CustomerInfo, error) {
	out := CustomerInfo{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
	if c.Notes != nil {
		if n := strings.TrimSpace(*c.Notes); n != "" {
			out.Notes = &n
		}
	}

	var fields []string
	if out.Name == "" {
		fields = append(fields, "name")
	}
	if out.Phone == "" {
		fields = append(fields, "phone")
	}
	if out.Address == "" {
		fields = append(fields, "address")
	}
	if out.Email == "" || !isValidEmail(out.Email) {
		fields = append(fields, "email")
	}
	if len(fields) > 0 {
		return CustomerInfo{}, &ValidationError{Fields: fields}
	}
	return out, nil
}

func isValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func fanOut(guestID string, c CustomerInfo, lines []OrderLine) []model.OrderRecord {
	var n int64
	for _, l := range lines {
		n += l.Quantity
	}

	records := make([]model.OrderRecord, 0, n)
	for _, l := range lines {
		pid := strings.TrimSpace(l.ProductID)
		for i := int64(0); i < l.Quantity; i++ {
			records = append(records, model.OrderRecord{
				ID:           uuid.NewString(),
				GuestID:      guestID,
				GuestName:    c.Name,
				GuestEmail:   c.Email,
				GuestPhone:   c.Phone,
				GuestAddress: c.Address,
				Notes:        c.Notes,
				ProductID:    pid,
			})
		}
	}
	return records
}

// guest_<unix-ms>_<base36 9文字>
func newGuestID(now time.Time) string {
	id := uuid.New()
	suffix := new(big.Int).SetBytes(id[:]).Text(36)
	if len(suffix) < 9 {
		suffix = strings.Repeat("0", 9-len(suffix)) + suffix
	}
	return "guest_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix[len(suffix)-9:]
}

func summarize(guestID string, orders []model.OrderRecord) OrderConfirmation {
	out := OrderConfirmation{
		GuestID: guestID,
		Orders:  orders,
		Items:   []ConfirmedItem{},
	}
	index := map[string]int{}
	for _, o := range orders {
		var name string
		var price int64
		if o.Product != nil {
			name = o.Product.Name
			price = o.Product.Price
		}

		i, ok := index[o.ProductID]
		if !ok {
			i = len(out.Items)
			index[o.ProductID] = i
			out.Items = append(out.Items, ConfirmedItem{ProductID: o.ProductID, Name: name, UnitPrice: price})
		}
		out.Items[i].Quantity++
		out.TotalItems++
		out.TotalPrice += price
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}
