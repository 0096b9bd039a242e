package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain/cart"
	"coffeeshop/internal/domain/model"
	"coffeeshop/internal/handler"
	"coffeeshop/internal/infra/cartstorage"
	"coffeeshop/internal/middleware"
	repo "coffeeshop/internal/repository"
	"coffeeshop/internal/server"
	"coffeeshop/internal/usecase"
	"coffeeshop/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	latteID = "11111111-1111-1111-1111-111111111111"
	mochaID = "22222222-2222-2222-2222-222222222222"
	ghostID = "99999999-9999-9999-9999-999999999999"
	secret  = "handler-test-secret"
)

// =====================
// インメモリ実装
// =====================

type memProducts struct {
	repo.ProductRepository
	items map[string]model.Product
}

func (m *memProducts) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProducts) FindByID(ctx context.Context, id string) (model.Product, error) {
	p, ok := m.items[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type memOrders struct {
	repo.OrderRepository
	products *memProducts
	audit    *memAudit

	mu   sync.Mutex
	rows []model.OrderRecord
}

func (m *memOrders) Orders() repo.OrderRepository       { return m }
func (m *memOrders) Products() repo.ProductRepository   { return m.products }
func (m *memOrders) AuditLogs() repo.AuditLogRepository { return m.audit }

func (m *memOrders) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

func (m *memOrders) CreateBulk(ctx context.Context, records []model.OrderRecord) ([]model.OrderRecord, error) {
	m.rows = append(m.rows, records...)
	return records, nil
}

func (m *memOrders) FindByIDs(ctx context.Context, ids []string) ([]model.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []model.OrderRecord{}
	for _, r := range m.rows {
		if want[r.ID] {
			p := m.products.items[r.ProductID]
			r.Product = &p
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memAudit struct {
	logs []model.AuditLog
}

func (m *memAudit) Create(ctx context.Context, log model.AuditLog) error {
	log.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, log)
	return nil
}

func (m *memAudit) Search(ctx context.Context, q repo.AuditLogQuery) ([]model.AuditLog, int64, error) {
	out := []model.AuditLog{}
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if q.Action != "" && l.Action != q.Action {
			continue
		}
		if q.ResourceType != "" && l.ResourceType != q.ResourceType {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

type memUsers struct {
	repo.UserRepository
	users map[int64]*model.User
}

func (m *memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return m.users[id], nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) Update(ctx context.Context, user *model.User) error { return nil }

func (m *memUsers) IncrementTokenVersion(ctx context.Context, id int64) error {
	u, ok := m.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

// =====================
// fixture
// =====================

type app struct {
	e      *echo.Echo
	orders *memOrders
	users  *memUsers
	audit  *memAudit
}

func newApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Config{JWTSecret: secret, TokenTTL: time.Hour, CartTTL: time.Hour}

	products := &memProducts{items: map[string]model.Product{
		latteID: {ID: latteID, Name: "Latte", Price: 450, Available: true},
		mochaID: {ID: mochaID, Name: "Mocha", Price: 500, Available: true},
	}}
	audit := &memAudit{}
	orders := &memOrders{products: products, audit: audit}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &memUsers{users: map[int64]*model.User{
		1: {ID: 1, Email: "admin@example.com", PasswordHash: string(hash), Role: model.RoleAdmin, IsActive: true},
		2: {ID: 2, Email: "user@example.com", PasswordHash: string(hash), Role: model.RoleUser, IsActive: true},
	}}

	carts, err := cart.NewRegistry(16, cartstorage.NewMemoryStorage(), nil)
	require.NoError(t, err)

	orderUC := usecase.NewOrderUsecase(orders, products, orders, nil, 0)
	cartUC := usecase.NewCartUsecase(carts, products, orderUC, nil, nil)
	productUC := usecase.NewProductUsecase(products, orders, validator.NewProductValidator())
	authUC := usecase.NewAuthUsecase(cfg, users, validator.NewAuthValidator(users))

	e := server.New(cfg, zap.NewNop(), users, server.Handlers{
		Auth:         handler.NewAuthHandler(authUC, cfg),
		Product:      handler.NewProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC, cartUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		AdminOrder:   handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(orders, orders)),
		AdminUser:    handler.NewAdminUserHandler(authUC),
		AdminAudit:   handler.NewAdminAuditHandler(usecase.NewAuditLogUsecase(audit)),
	})
	return &app{e: e, orders: orders, users: users, audit: audit}
}

type reqOpt func(r *http.Request)

func withCookie(ck *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(ck) }
}

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (a *app) do(t *testing.T, method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.CartSessionCookieName {
			return ck
		}
	}
	t.Fatal("cart_session cookie not set")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const customerJSON = `{"name":"Hanako","email":"hanako@example.com","phone":"090-0000-0000","address":"Shibuya"}`

// =====================
// カート → 注文
// =====================

func TestCartCheckoutFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/cart", `{"product_id":"`+latteID+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := sessionCookie(t, rec)

	rec = a.do(t, http.MethodPost, "/cart", `{"product_id":"`+mochaID+`","quantity":1}`, withCookie(sess))
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[cart.Snapshot](t, rec)
	assert.Equal(t, int64(3), snap.TotalItems)
	assert.Equal(t, int64(1400), snap.TotalPrice)

	rec = a.do(t, http.MethodPost, "/orders", `{"customer_info":`+customerJSON+`}`, withCookie(sess))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[handler.OrderResult](t, rec)
	assert.True(t, res.Success)
	assert.Len(t, res.OrderIDs, 3)
	assert.Equal(t, 3, a.orders.count())

	rec = a.do(t, http.MethodGet, "/orders/confirmation?ids="+strings.Join(res.OrderIDs, ","), "")
	require.Equal(t, http.StatusOK, rec.Code)
	conf := decode[usecase.OrderConfirmation](t, rec)
	assert.Equal(t, res.GuestID, conf.GuestID)
	assert.Equal(t, int64(1400), conf.TotalPrice)

	rec = a.do(t, http.MethodGet, "/cart", "", withCookie(sess))
	assert.True(t, decode[cart.Snapshot](t, rec).IsEmpty())
}

func TestCheckout_ValidationKeepsCart(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/cart", `{"product_id":"`+latteID+`","quantity":1}`)
	sess := sessionCookie(t, rec)

	rec = a.do(t, http.MethodPost, "/orders", `{"customer_info":{"email":"hanako@example.com"}}`, withCookie(sess))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[handler.OrderResult](t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"name", "phone", "address"}, res.Fields)

	rec = a.do(t, http.MethodGet, "/cart", "", withCookie(sess))
	assert.Equal(t, int64(1), decode[cart.Snapshot](t, rec).TotalItems)
	assert.Equal(t, 0, a.orders.count())
}

func TestCheckout_EmptyCart(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/orders", `{"customer_info":`+customerJSON+`}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", decode[handler.OrderResult](t, rec).Error)
}

func TestDirectOrder_MissingProduct(t *testing.T) {
	a := newApp(t)
	body := `{"customer_info":` + customerJSON + `,"lines":[{"product_id":"` + latteID + `","quantity":1},{"product_id":"` + ghostID + `","quantity":1}]}`

	rec := a.do(t, http.MethodPost, "/orders/direct", body)
	require.Equal(t, http.StatusNotFound, rec.Code)
	res := decode[handler.OrderResult](t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, []string{ghostID}, res.MissingIDs)
	assert.Equal(t, 0, a.orders.count())
}

func TestCart_PatchAndDelete(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/cart", `{"product_id":"`+latteID+`","quantity":1}`)
	sess := sessionCookie(t, rec)

	rec = a.do(t, http.MethodPatch, "/cart/"+latteID, `{"quantity":5}`, withCookie(sess))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), decode[cart.Snapshot](t, rec).TotalItems)

	rec = a.do(t, http.MethodDelete, "/cart/"+latteID, "", withCookie(sess))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[cart.Snapshot](t, rec).IsEmpty())
}

func TestCart_UnknownProduct(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/cart", `{"product_id":"`+ghostID+`","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", decode[handler.ErrorResponse](t, rec).Error)
}

// =====================
// 商品
// =====================

func TestProducts(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[usecase.ProductListOutput](t, rec).Total)

	rec = a.do(t, http.MethodGet, "/products?min_price=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/products/"+ghostID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =====================
// 認証・管理
// =====================

func token(t *testing.T, userID int64, role string, tv int) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID, "role": role, "tv": tv, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestLogin_SetsCookie(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var authCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.AuthCookieName {
			authCookie = ck
		}
	}
	require.NotNil(t, authCookie)
	assert.True(t, authCookie.HttpOnly)
	assert.Equal(t, 3600, authCookie.MaxAge)

	rec = a.do(t, http.MethodGet, "/auth/me", "", withCookie(authCookie))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	a := newApp(t)
	tok := token(t, 1, "ADMIN", 0)

	rec := a.do(t, http.MethodPost, "/auth/logout", "", withBearer(tok))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/auth/me", "", withBearer(tok))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGuards(t *testing.T) {
	a := newApp(t)
	body := `{"name":"Cold Brew","price":600}`

	rec := a.do(t, http.MethodPost, "/admin/products", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/admin/products", body, withBearer(token(t, 2, "USER", 0)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminProductValidation(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/admin/products", `{"name":"X","price":0}`, withBearer(token(t, 1, "ADMIN", 0)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"name", "price"}, decode[handler.ErrorResponse](t, rec).Fields)
}

// JWTのroleがADMINでも、DB側で降格済みなら403
func TestAdminGuards_DemotedUser(t *testing.T) {
	a := newApp(t)
	a.users.users[1].Role = model.RoleUser

	rec := a.do(t, http.MethodGet, "/admin/orders/stats", "", withBearer(token(t, 1, "ADMIN", 0)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminForceLogout(t *testing.T) {
	a := newApp(t)
	admin := token(t, 1, "ADMIN", 0)
	victim := token(t, 2, "USER", 0)

	rec := a.do(t, http.MethodGet, "/auth/me", "", withBearer(victim))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/admin/users/2/force-logout", "", withBearer(admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/auth/me", "", withBearer(victim))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/admin/users/42/force-logout", "", withBearer(admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/admin/users/abc/force-logout", "", withBearer(admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAuditLogs(t *testing.T) {
	a := newApp(t)
	admin := token(t, 1, "ADMIN", 0)
	ctx := context.Background()
	require.NoError(t, a.audit.Create(ctx, model.AuditLog{ActorUserID: 1, Action: model.AuditActionUpdateOrder, ResourceType: model.AuditResourceOrder, ResourceID: "o1"}))
	require.NoError(t, a.audit.Create(ctx, model.AuditLog{ActorUserID: 1, Action: model.AuditActionDeleteProduct, ResourceType: model.AuditResourceProduct, ResourceID: latteID}))

	rec := a.do(t, http.MethodGet, "/admin/audit-logs", "", withBearer(admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	all := decode[usecase.AuditLogListOutput](t, rec)
	assert.Equal(t, int64(2), all.Total)
	assert.Equal(t, 50, all.Limit)

	rec = a.do(t, http.MethodGet, "/admin/audit-logs?action=delete_product", "", withBearer(admin))
	require.Equal(t, http.StatusOK, rec.Code)
	filtered := decode[usecase.AuditLogListOutput](t, rec)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, latteID, filtered.Items[0].ResourceID)

	rec = a.do(t, http.MethodGet, "/admin/audit-logs?since=yesterday", "", withBearer(admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
