package cart

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Registryはセッションごとの開いたStoreを持つ。
// 上限を超えたら古いものから捨て、次のアクセスで保存先から開き直す。
// 使用中（Acquire中）のStoreは追い出されても返却まで同じものを返す。
type Registry struct {
	mu      sync.Mutex
	stores  *lru.Cache
	refs    map[*Store]int
	pinned  map[string]*Store
	opening singleflight.Group
	storage Storage
	logger  *zap.Logger
}

func NewRegistry(size int, storage Storage, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		refs:    map[*Store]int{},
		pinned:  map[string]*Store{},
		storage: storage,
		logger:  logger,
	}
	// onEvictはstores.Addの中から呼ばれる。Addは必ずr.muを持って呼ぶ
	cache, err := lru.NewWithEvict(size, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("cart registry: %w", err)
	}
	r.stores = cache
	return r, nil
}

// Getは読むだけの呼び出し用。更新するならAcquireを使う
func (r *Registry) Get(ctx context.Context, sessionID string) *Store {
	s, release := r.Acquire(ctx, sessionID)
	release()
	return s
}

// Acquireはセッションのカートを返す。無ければ保存先から開く。
// releaseを呼ぶまで、同じセッションに別のStoreが開かれることはない。
func (r *Registry) Acquire(ctx context.Context, sessionID string) (*Store, func()) {
	for {
		r.mu.Lock()
		if s, ok := r.lookupLocked(sessionID); ok {
			r.refs[s]++
			r.mu.Unlock()
			return s, r.releaser(sessionID, s)
		}
		r.mu.Unlock()

		// 同じセッションを同時に開かない
		r.opening.Do(sessionID, func() (interface{}, error) {
			r.mu.Lock()
			_, ok := r.lookupLocked(sessionID)
			r.mu.Unlock()
			if ok {
				return nil, nil
			}

			s := Open(ctx, StorageKey(sessionID), r.storage, r.logger)
			r.mu.Lock()
			r.stores.Add(sessionID, s)
			r.mu.Unlock()
			return nil, nil
		})
		// 開いた直後に追い出されていたらもう一度
	}
}

func (r *Registry) Len() int {
	return r.stores.Len()
}

func (r *Registry) lookupLocked(sessionID string) (*Store, bool) {
	if v, ok := r.stores.Get(sessionID); ok {
		return v.(*Store), true
	}
	s, ok := r.pinned[sessionID]
	if !ok {
		return nil, false
	}
	delete(r.pinned, sessionID)
	r.stores.Add(sessionID, s)
	return s, true
}

func (r *Registry) onEvict(key interface{}, value interface{}) {
	s := value.(*Store)
	if r.refs[s] > 0 {
		r.pinned[key.(string)] = s
	}
}

func (r *Registry) releaser(sessionID string, s *Store) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()

			r.refs[s]--
			if r.refs[s] > 0 {
				return
			}
			delete(r.refs, s)
			if r.pinned[sessionID] == s {
				delete(r.pinned, sessionID)
			}
		})
	}
}

// StorageKeyはセッションの保存キー
func StorageKey(sessionID string) string {
	return "cart:" + sessionID
}
