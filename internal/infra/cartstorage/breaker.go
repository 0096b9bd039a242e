package cartstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeeshop/internal/domain/cart"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerStorageは保存先が落ちている間、待たずにすぐ諦める。
// 連続で失敗したら一定時間は呼ばずにErrStorageUnavailableを返す。
type BreakerStorage struct {
	next Storage
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// Storageはcart.Storageと同じ
type Storage = cart.Storage

type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func NewBreakerStorage(next Storage, s BreakerSettings, logger *zap.Logger) *BreakerStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.Name == "" {
		s.Name = "cart-storage"
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		// 「まだ無い」は障害ではない
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, cart.ErrNotStored)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cart storage breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerStorage{next: next, cb: cb}
}

func (b *BreakerStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := b.cb.Execute(func() ([]byte, error) {
		return b.next.Load(ctx, key)
	})
	return data, b.mapErr(err)
}

func (b *BreakerStorage) Save(ctx context.Context, key string, data []byte) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Save(ctx, key, data)
	})
	return b.mapErr(err)
}

func (b *BreakerStorage) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStorage) mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", cart.ErrStorageUnavailable, err)
	}
	return err
}
