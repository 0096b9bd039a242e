package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"coffeeshop/internal/domain/cart"
	"coffeeshop/internal/domain/model"
	repo "coffeeshop/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// 注文確定の窓口（OrderUsecase）
type OrderSubmitter interface {
	Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error)
}

// 注文確定イベントの送り先
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, ev model.OrderPlaced) error
}

// セッションごとのカート
type CartUsecase struct {
	carts    *cart.Registry
	products repo.ProductRepository
	orders   OrderSubmitter
	events   OrderEventPublisher
	logger   *zap.Logger

	// 同じセッションの同時チェックアウトは1回にまとめる
	checkout singleflight.Group
}

// DI
func NewCartUsecase(
	carts *cart.Registry,
	products repo.ProductRepository,
	orders OrderSubmitter,
	events OrderEventPublisher,
	logger *zap.Logger,
) *CartUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartUsecase{
		carts:    carts,
		products: products,
		orders:   orders,
		events:   events,
		logger:   logger,
	}
}

type AddCartInput struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

func (u *CartUsecase) GetCart(ctx context.Context, sessionID string) (cart.Snapshot, error) {
	if sessionID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	return u.carts.Get(ctx, sessionID).Snapshot(), nil
}

// 商品をカタログから引いて、その時点の名前・価格で入れる
func (u *CartUsecase) AddToCart(ctx context.Context, sessionID string, in AddCartInput) (cart.Snapshot, error) {
	if sessionID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	productID := strings.TrimSpace(in.ProductID)
	if _, err := uuid.Parse(productID); err != nil {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 || in.Quantity > cart.MaxLineQuantity {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "quantity out of range")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return cart.Snapshot{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return cart.Snapshot{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.Available {
		return cart.Snapshot{}, NewHTTPError(http.StatusConflict, "product not available")
	}

	store, release := u.carts.Acquire(ctx, sessionID)
	defer release()
	for _, l := range store.Snapshot().Lines {
		if l.ProductID == p.ID && l.Quantity+in.Quantity > cart.MaxLineQuantity {
			return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "quantity out of range")
		}
	}
	store.AddLine(ctx, cart.ProductRef{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Image:       p.Image,
	}, in.Quantity)
	return store.Snapshot(), nil
}

// 0以下は削除。カートに無い商品は何もしない
func (u *CartUsecase) UpdateQuantity(ctx context.Context, sessionID string, productID string, qty int64) (cart.Snapshot, error) {
	if sessionID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	if qty > cart.MaxLineQuantity {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "quantity out of range")
	}
	store, release := u.carts.Acquire(ctx, sessionID)
	defer release()
	store.SetQuantity(ctx, strings.TrimSpace(productID), qty)
	return store.Snapshot(), nil
}

func (u *CartUsecase) RemoveItem(ctx context.Context, sessionID string, productID string) (cart.Snapshot, error) {
	if sessionID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	store, release := u.carts.Acquire(ctx, sessionID)
	defer release()
	store.RemoveLine(ctx, strings.TrimSpace(productID))
	return store.Snapshot(), nil
}

func (u *CartUsecase) ClearCart(ctx context.Context, sessionID string) (cart.Snapshot, error) {
	if sessionID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	store, release := u.carts.Acquire(ctx, sessionID)
	defer release()
	store.Clear(ctx)
	return store.Snapshot(), nil
}

// Checkoutはカートの中身で注文を確定する。
// 成功したら注文に出した分だけカートから引く。失敗したらカートはそのまま。
func (u *CartUsecase) Checkout(ctx context.Context, sessionID string, customer CustomerInfo) (SubmitOutput, error) {
	if sessionID == "" {
		return SubmitOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	// まとめられた他の呼び出し元もいるので、最初の呼び出し元の切断では止めない。
	// 締め切りはSubmit側のタイムアウト
	work := context.WithoutCancel(ctx)

	v, err, shared := u.checkout.Do(sessionID, func() (interface{}, error) {
		store, release := u.carts.Acquire(work, sessionID)
		defer release()
		snap := store.Snapshot()

		lines := make([]OrderLine, 0, len(snap.Lines))
		for _, l := range snap.Lines {
			lines = append(lines, OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
		}

		out, err := u.orders.Submit(work, SubmitInput{Customer: customer, Lines: lines})
		if err != nil {
			return SubmitOutput{}, err
		}

		store.Subtract(work, snap.Lines)
		u.publishPlaced(work, customer, snap, out)
		return out, nil
	})
	if shared {
		u.logger.Info("checkout collapsed with in-flight request", zap.String("session", sessionID))
	}
	if err != nil {
		return SubmitOutput{}, err
	}
	return v.(SubmitOutput), nil
}

// 送れなくても注文は成立している。ログだけ
func (u *CartUsecase) publishPlaced(ctx context.Context, customer CustomerInfo, snap cart.Snapshot, out SubmitOutput) {
	if u.events == nil {
		return
	}

	lines := make([]model.OrderedLine, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		lines = append(lines, model.OrderedLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}

	ev := model.OrderPlaced{
		GuestID:    out.GuestID,
		OrderIDs:   out.OrderIDs,
		GuestName:  strings.TrimSpace(customer.Name),
		GuestEmail: strings.TrimSpace(customer.Email),
		Lines:      lines,
		TotalItems: snap.TotalItems,
		TotalPrice: snap.TotalPrice,
		PlacedAt:   time.Now().UTC(),
	}
	if err := u.events.PublishOrderPlaced(ctx, ev); err != nil {
		u.logger.Warn("order placed event not published", zap.String("guest_id", out.GuestID), zap.Error(err))
	}
}
