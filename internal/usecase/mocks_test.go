package usecase_test

import (
	"context"
	"sync"
	"testing"

	"coffeeshop/internal/domain/model"
	repo "coffeeshop/internal/repository"
	"coffeeshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id string) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProductRepoMock) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *ProductRepoMock) HasOrders(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) CreateBulk(ctx context.Context, records []model.OrderRecord) ([]model.OrderRecord, error) {
	args := m.Called(ctx, records)
	items, _ := args.Get(0).([]model.OrderRecord)
	return items, args.Error(1)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, id string) (model.OrderRecord, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(model.OrderRecord)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDs(ctx context.Context, ids []string) ([]model.OrderRecord, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]model.OrderRecord)
	return items, args.Error(1)
}

func (m *OrderRepoMock) ListByGuestID(ctx context.Context, guestID string) ([]model.OrderRecord, error) {
	args := m.Called(ctx, guestID)
	items, _ := args.Get(0).([]model.OrderRecord)
	return items, args.Error(1)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.OrderRecord, int64, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]model.OrderRecord)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Update(ctx context.Context, id string, u repo.OrderUpdate) error {
	args := m.Called(ctx, id, u)
	return args.Error(0)
}

func (m *OrderRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *OrderRepoMock) Stats(ctx context.Context) (model.OrderStats, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(model.OrderStats)
	return s, args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) Search(ctx context.Context, q repo.AuditLogQuery) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.AuditLog)
	return items, args.Get(1).(int64), args.Error(2)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var (
	_ repo.ProductRepository  = (*ProductRepoMock)(nil)
	_ repo.OrderRepository    = (*OrderRepoMock)(nil)
	_ repo.AuditLogRepository = (*AuditRepoMock)(nil)
	_ repo.UserRepository     = (*UserRepoMock)(nil)
)

// =====================
// Tx（fnをそのまま呼ぶ）
// =====================

type txRepos struct {
	orders   repo.OrderRepository
	products repo.ProductRepository
	audit    repo.AuditLogRepository
}

func (r *txRepos) Orders() repo.OrderRepository       { return r.orders }
func (r *txRepos) Products() repo.ProductRepository   { return r.products }
func (r *txRepos) AuditLogs() repo.AuditLogRepository { return r.audit }

type txManagerStub struct {
	repos repo.TxRepos
	calls int
}

func (tm *txManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	tm.calls++
	return fn(tm.repos)
}

// =====================
// 注文ストア（コミットされるまで見えない）
// =====================

// memOrderStoreはトランザクションの中で書いた行を、fnが成功したときだけ反映する。
// failAfterが正なら、その件数を書いたところでCreateBulkが失敗する。
type memOrderStore struct {
	repo.OrderRepository

	mu        sync.Mutex
	committed []model.OrderRecord
	pending   []model.OrderRecord
	failAfter int
	submits   int
}

func (s *memOrderStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submits++
	s.pending = nil
	if err := fn(&txRepos{orders: s}); err != nil {
		s.pending = nil
		return err
	}
	s.committed = append(s.committed, s.pending...)
	s.pending = nil
	return nil
}

func (s *memOrderStore) CreateBulk(ctx context.Context, records []model.OrderRecord) ([]model.OrderRecord, error) {
	for i, r := range records {
		if s.failAfter > 0 && i == s.failAfter {
			return nil, assert.AnError
		}
		s.pending = append(s.pending, r)
	}
	return records, nil
}

func (s *memOrderStore) Committed() []model.OrderRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OrderRecord(nil), s.committed...)
}

// =====================
// helper
// =====================

func assertHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "expected HTTPError, got %v", err) {
		assert.Equal(t, status, he.Status)
	}
}

func strPtr(s string) *string { return &s }
