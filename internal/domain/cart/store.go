package cart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// 保存先にまだ何も無い
	ErrNotStored = errors.New("cart not stored")
	// 保存先が使えない。利用者には見せず、メモリだけで続ける
	ErrStorageUnavailable = errors.New("cart storage unavailable")
)

// 1明細あたりの数量上限。これを超える分は切り捨てる
const MaxLineQuantity int64 = 99

// カートの保存先（Redisなど）
type Storage interface {
	// 無ければErrNotStored
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Storeは1セッション分のカート。
// メモリ上の状態が正。保存は毎回のベストエフォートで、失敗しても操作は成功扱い。
type Store struct {
	mu      sync.Mutex
	key     string
	lines   []LineItem
	storage Storage
	logger  *zap.Logger
}

// Openは保存先から読み込んでStoreを作る。
// 読めない・壊れている場合は空カートから始める（エラーは返さない）。
func Open(ctx context.Context, key string, storage Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		key:     key,
		lines:   []LineItem{},
		storage: storage,
		logger:  logger,
	}
	if storage == nil {
		return s
	}

	data, err := storage.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotStored) {
			logger.Warn("cart load failed", zap.String("key", key), zap.Error(err))
		}
		return s
	}

	lines, err := Decode(data)
	if err != nil {
		logger.Warn("cart data corrupt, starting empty", zap.String("key", key), zap.Error(err))
		return s
	}
	s.lines = lines
	return s
}

func (s *Store) Key() string {
	return s.key
}

// AddLineは商品を追加する。既にあれば数量だけ増やす（価格・名前は上書きしない）。
// qtyが1未満なら何もしない。合計はMaxLineQuantityで頭打ち。
func (s *Store) AddLine(ctx context.Context, p ProductRef, qty int64) {
	if qty < 1 || p.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if qty > MaxLineQuantity {
		qty = MaxLineQuantity
	}
	if i := s.indexOf(p.ID); i >= 0 {
		s.lines[i].Quantity = min(s.lines[i].Quantity+qty, MaxLineQuantity)
	} else {
		s.lines = append(s.lines, LineItem{
			ProductID:   p.ID,
			Name:        p.Name,
			UnitPrice:   p.Price,
			Description: copyString(p.Description),
			ImageRef:    copyString(p.Image),
			Quantity:    qty,
		})
	}
	s.persist(ctx)
}

// RemoveLineは明細を消す。無いidなら何もしない。
func (s *Store) RemoveLine(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(ctx, productID)
}

// SetQuantityは数量を置き換える。0以下は削除と同じ。
// カートに無いidは何もしない。
func (s *Store) SetQuantity(ctx context.Context, productID string, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		s.removeLocked(ctx, productID)
		return
	}

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.lines[i].Quantity = min(qty, MaxLineQuantity)
	s.persist(ctx)
}

func (s *Store) TotalItems() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, _ := totals(s.lines)
	return items
}

func (s *Store) TotalPrice() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, price := totals(s.lines)
	return price
}

// Clearは空にする。
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = []LineItem{}
	s.persist(ctx)
}

// Subtractは注文に出した分だけ数量を減らす。0以下になった明細は消す。
// 注文中に追加・変更された分はカートに残る。
func (s *Store) Subtract(ctx context.Context, ordered []LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[:0]
	for _, l := range s.lines {
		for _, o := range ordered {
			if o.ProductID == l.ProductID {
				l.Quantity -= o.Quantity
			}
		}
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	s.persist(ctx)
}

// Snapshotはコピーを返す。返り値を変更してもStoreには影響しない。
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, price := totals(s.lines)
	return Snapshot{
		Lines:      copyLines(s.lines),
		TotalItems: items,
		TotalPrice: price,
	}
}

func (s *Store) removeLocked(ctx context.Context, productID string) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.persist(ctx)
}

func (s *Store) indexOf(productID string) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// 失敗はログだけ
func (s *Store) persist(ctx context.Context) {
	if s.storage == nil {
		return
	}

	data, err := Encode(s.lines)
	if err != nil {
		s.logger.Warn("cart encode failed", zap.String("key", s.key), zap.Error(err))
		return
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		s.logger.Warn("cart save failed", zap.String("key", s.key), zap.Error(err))
	}
}
