package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/money"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) PlaceOrder(ctx context.Context, buyerID, sellerID int64, lines []orders.LineItem) (orders.OrderView, error) {
	args := m.Called(ctx, buyerID, sellerID, lines)
	return args.Get(0).(orders.OrderView), args.Error(1)
}

func (m *MockOrders) UpdateStatus(ctx context.Context, orderID, sellerID int64, to orders.Status) (orders.OrderView, error) {
	args := m.Called(ctx, orderID, sellerID, to)
	return args.Get(0).(orders.OrderView), args.Error(1)
}

func (m *MockOrders) BuyerHistory(ctx context.Context, buyerID int64) ([]orders.OrderView, error) {
	args := m.Called(ctx, buyerID)
	return args.Get(0).([]orders.OrderView), args.Error(1)
}

func (m *MockOrders) SellerOrders(ctx context.Context, sellerID int64) ([]orders.OrderView, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]orders.OrderView), args.Error(1)
}

func (m *MockOrders) Get(ctx context.Context, orderID int64, viewer auth.Identity) (orders.OrderView, error) {
	args := m.Called(ctx, orderID, viewer)
	return args.Get(0).(orders.OrderView), args.Error(1)
}

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.ProductView, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(catalog.ProductView), args.Error(1)
}

func (m *MockCatalog) ListProducts(ctx context.Context, skip, limit int) ([]catalog.ProductView, error) {
	args := m.Called(ctx, skip, limit)
	return args.Get(0).([]catalog.ProductView), args.Error(1)
}

func (m *MockCatalog) GetProduct(ctx context.Context, id int64) (catalog.ProductView, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(catalog.ProductView), args.Error(1)
}

func (m *MockCatalog) AddListing(ctx context.Context, sellerID int64, in catalog.ListingInput) (catalog.ListingView, error) {
	args := m.Called(ctx, sellerID, in)
	return args.Get(0).(catalog.ListingView), args.Error(1)
}

func (m *MockCatalog) SellerInventory(ctx context.Context, sellerID int64) ([]catalog.ListingView, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]catalog.ListingView), args.Error(1)
}

// memIdem is an in-process Idempotency.
type memIdem struct {
	mu   sync.Mutex
	keys map[string]int64 // 0 = pending
}

func (m *memIdem) k(buyerID int64, key string) string {
	return fmt.Sprintf("%d|%s", buyerID, key)
}

func (m *memIdem) Begin(_ context.Context, buyerID int64, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[m.k(buyerID, key)]
	if !ok {
		m.keys[m.k(buyerID, key)] = 0
		return 0, true, nil
	}
	if id == 0 {
		return 0, false, apperr.New(apperr.KindConflict, "in progress")
	}
	return id, false, nil
}

func (m *memIdem) Complete(_ context.Context, buyerID int64, key string, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[m.k(buyerID, key)] = orderID
	return nil
}

func (m *memIdem) Abort(_ context.Context, buyerID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, m.k(buyerID, key))
	return nil
}

type memStatus struct {
	mu sync.Mutex
	m  map[int64]redisx.OrderStatus
}

func (c *memStatus) Put(_ context.Context, s redisx.OrderStatus) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[s.OrderID] = s
	return true, nil
}

func (c *memStatus) Get(_ context.Context, id int64) (redisx.OrderStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.m[id]
	return s, ok, nil
}

type testAPI struct {
	router  *chi.Mux
	orders  *MockOrders
	catalog *MockCatalog
	idem    *memIdem
	status  *memStatus
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zap.NewNop()
	api := &testAPI{
		router:  NewRouter(log, map[string]Check{"db": func(context.Context) error { return nil }}),
		orders:  new(MockOrders),
		catalog: new(MockCatalog),
		idem:    &memIdem{keys: map[string]int64{}},
		status:  &memStatus{m: map[int64]redisx.OrderStatus{}},
	}
	authn := Authenticate(auth.NewVerifier(testSecret, "test"), log)
	(&OrdersHandler{Orders: api.orders, Idem: api.idem, Status: api.status, Log: log}).Register(api.router, authn)
	(&CatalogHandler{Catalog: api.catalog, Log: log}).Register(api.router, authn)
	return api
}

func token(t *testing.T, id int64, role auth.Role) string {
	t.Helper()
	tok, err := auth.NewSigner(testSecret, "test").Sign(auth.Identity{UserID: id, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, tok, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sampleOrder() orders.OrderView {
	return orders.OrderView{
		Order: orders.Order{ID: 7, BuyerID: 1, SellerID: 2, TotalPrice: money.FromCents(2000), Status: orders.StatusPending},
		Items: []orders.OrderItemView{{
			OrderItem: orders.OrderItem{ID: 70, OrderID: 7, ListingID: 5, Quantity: 2, PriceAtPurchase: money.FromCents(1000)},
			Listing: catalog.ListingView{
				Listing: catalog.Listing{ID: 5, SellerID: 2, ProductID: 3, Price: money.FromCents(1000), Quantity: 3},
				Product: catalog.ProductSummary{ID: 3, Name: "Desk lamp"},
			},
		}},
	}
}

func TestPlaceOrder(t *testing.T) {
	api := newTestAPI(t)
	lines := []orders.LineItem{{ListingID: 5, Quantity: 2}}
	api.orders.On("PlaceOrder", mock.Anything, int64(1), int64(2), lines).Return(sampleOrder(), nil).Once()

	rec := api.do(t, http.MethodPost, "/orders/", token(t, 1, auth.RoleBuyer),
		`{"seller_id":2,"items":[{"seller_product_id":5,"quantity":2}]}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PENDING", body["status"])
	assert.Contains(t, rec.Body.String(), `"total_price":20.00`)
	assert.Contains(t, rec.Body.String(), `"price_at_purchase":10.00`)
	assert.Contains(t, rec.Body.String(), `"Desk lamp"`)

	cached, ok, _ := api.status.Get(context.Background(), 7)
	require.True(t, ok)
	assert.Equal(t, "PENDING", cached.Status)
	api.orders.AssertExpectations(t)
}

func TestPlaceOrderErrors(t *testing.T) {
	buyer := func(t *testing.T) string { return token(t, 1, auth.RoleBuyer) }
	body := `{"seller_id":2,"items":[{"seller_product_id":5,"quantity":10}]}`

	t.Run("insufficient stock carries details", func(t *testing.T) {
		api := newTestAPI(t)
		api.orders.On("PlaceOrder", mock.Anything, int64(1), int64(2), mock.Anything).
			Return(orders.OrderView{}, apperr.InsufficientStock(5, 3, 10))

		rec := api.do(t, http.MethodPost, "/orders", buyer(t), body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		e := decodeErr(t, rec)
		assert.Equal(t, "insufficient_stock", e["error"])
		assert.Equal(t, map[string]any{"listing_id": float64(5), "available": float64(3), "requested": float64(10)}, e["details"])
	})

	for name, tc := range map[string]struct {
		err  error
		code int
	}{
		"not found":  {apperr.New(apperr.KindNotFound, "listing 5 not found"), http.StatusNotFound},
		"mismatch":   {apperr.New(apperr.KindMismatch, "wrong seller"), http.StatusBadRequest},
		"empty":      {apperr.New(apperr.KindEmptyOrder, "no items"), http.StatusBadRequest},
		"unexpected": {assert.AnError, http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			api := newTestAPI(t)
			api.orders.On("PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(orders.OrderView{}, tc.err)

			rec := api.do(t, http.MethodPost, "/orders", buyer(t), body)

			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
			}
		})
	}

	t.Run("validation", func(t *testing.T) {
		api := newTestAPI(t)

		rec := api.do(t, http.MethodPost, "/orders", buyer(t), `{"seller_id":2,"items":[{"seller_product_id":5,"quantity":0}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		e := decodeErr(t, rec)
		assert.Equal(t, "invalid_input", e["error"])
		assert.Equal(t, map[string]any{"items[0].quantity": "gt"}, e["details"])

		rec = api.do(t, http.MethodPost, "/orders", buyer(t), `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		api.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty items reach the engine", func(t *testing.T) {
		api := newTestAPI(t)
		api.orders.On("PlaceOrder", mock.Anything, int64(1), int64(2), []orders.LineItem{}).
			Return(orders.OrderView{}, apperr.New(apperr.KindEmptyOrder, "order has no items"))

		rec := api.do(t, http.MethodPost, "/orders", buyer(t), `{"seller_id":2,"items":[]}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "empty_order", decodeErr(t, rec)["error"])
	})
}

func TestAuthAndRoles(t *testing.T) {
	api := newTestAPI(t)
	body := `{"seller_id":2,"items":[{"seller_product_id":5,"quantity":1}]}`

	rec := api.do(t, http.MethodPost, "/orders", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/orders", "garbage", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/orders", token(t, 2, auth.RoleSeller), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, "/seller/orders", token(t, 1, auth.RoleBuyer), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/products", token(t, 2, auth.RoleSeller), `{"name":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	api.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentPlacement(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, 1, auth.RoleBuyer)
	buyer := auth.Identity{UserID: 1, Role: auth.RoleBuyer}
	body := `{"seller_id":2,"items":[{"seller_product_id":5,"quantity":2}]}`
	api.orders.On("PlaceOrder", mock.Anything, int64(1), int64(2), mock.Anything).Return(sampleOrder(), nil).Once()
	api.orders.On("Get", mock.Anything, int64(7), buyer).Return(sampleOrder(), nil).Once()

	first := api.do(t, http.MethodPost, "/orders", tok, body, "Idempotency-Key", "abc")
	second := api.do(t, http.MethodPost, "/orders", tok, body, "Idempotency-Key", "abc")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	api.orders.AssertNumberOfCalls(t, "PlaceOrder", 1)
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, 1, auth.RoleBuyer)
	body := `{"seller_id":2,"items":[{"seller_product_id":5,"quantity":2}]}`
	api.orders.On("PlaceOrder", mock.Anything, int64(1), int64(2), mock.Anything).
		Return(orders.OrderView{}, apperr.InsufficientStock(5, 1, 2)).Once()
	api.orders.On("PlaceOrder", mock.Anything, int64(1), int64(2), mock.Anything).
		Return(sampleOrder(), nil).Once()

	rec := api.do(t, http.MethodPost, "/orders", tok, body, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/orders", tok, body, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusOK, rec.Code)
	api.orders.AssertNumberOfCalls(t, "PlaceOrder", 2)
}

func TestIdempotencyKeyKeptWhenOrderCommitted(t *testing.T) {
	api := newTestAPI(t)
	tok := token(t, 1, auth.RoleBuyer)
	buyer := auth.Identity{UserID: 1, Role: auth.RoleBuyer}
	body := `{"seller_id":2,"items":[{"seller_product_id":5,"quantity":2}]}`
	partial := orders.OrderView{Order: sampleOrder().Order}
	api.orders.On("PlaceOrder", mock.Anything, int64(1), int64(2), mock.Anything).
		Return(partial, errors.New("reload: connection reset")).Once()
	api.orders.On("Get", mock.Anything, int64(7), buyer).Return(sampleOrder(), nil).Once()

	rec := api.do(t, http.MethodPost, "/orders", tok, body, "Idempotency-Key", "k2")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = api.do(t, http.MethodPost, "/orders", tok, body, "Idempotency-Key", "k2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	api.orders.AssertNumberOfCalls(t, "PlaceOrder", 1)
}

func TestUpdateStatus(t *testing.T) {
	seller := func(t *testing.T) string { return token(t, 2, auth.RoleSeller) }

	t.Run("confirm", func(t *testing.T) {
		api := newTestAPI(t)
		confirmed := sampleOrder()
		confirmed.Status = orders.StatusConfirmed
		api.orders.On("UpdateStatus", mock.Anything, int64(7), int64(2), orders.StatusConfirmed).Return(confirmed, nil)

		rec := api.do(t, http.MethodPut, "/seller/orders/7", seller(t), `{"status":"confirmed"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		s, ok, _ := api.status.Get(context.Background(), 7)
		require.True(t, ok)
		assert.Equal(t, "CONFIRMED", s.Status)
	})

	t.Run("other seller", func(t *testing.T) {
		api := newTestAPI(t)
		api.orders.On("UpdateStatus", mock.Anything, int64(7), int64(2), orders.StatusCanceled).
			Return(orders.OrderView{}, apperr.New(apperr.KindForbidden, "order 7 belongs to another seller"))

		rec := api.do(t, http.MethodPut, "/seller/orders/7", seller(t), `{"status":"CANCELED"}`)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bad status", func(t *testing.T) {
		api := newTestAPI(t)

		rec := api.do(t, http.MethodPut, "/seller/orders/7", seller(t), `{"status":"SHIPPED"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_status", decodeErr(t, rec)["error"])
	})

	t.Run("illegal transition", func(t *testing.T) {
		api := newTestAPI(t)
		api.orders.On("UpdateStatus", mock.Anything, int64(7), int64(2), orders.StatusConfirmed).
			Return(orders.OrderView{}, apperr.New(apperr.KindInvalidTransition, "canceled is terminal"))

		rec := api.do(t, http.MethodPut, "/seller/orders/7", seller(t), `{"status":"CONFIRMED"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		api := newTestAPI(t)
		rec := api.do(t, http.MethodPut, "/seller/orders/abc", seller(t), `{"status":"CONFIRMED"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderStatusReadsCache(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.status.Put(context.Background(), redisx.OrderStatus{OrderID: 7, BuyerID: 1, SellerID: 2, Status: "CONFIRMED"})

	rec := api.do(t, http.MethodGet, "/orders/7/status", token(t, 1, auth.RoleBuyer), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cached":true`)

	rec = api.do(t, http.MethodGet, "/orders/7/status", token(t, 99, auth.RoleBuyer), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	api.orders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderStatusFallsBackToStore(t *testing.T) {
	api := newTestAPI(t)
	buyer := auth.Identity{UserID: 1, Role: auth.RoleBuyer}
	api.orders.On("Get", mock.Anything, int64(7), buyer).Return(sampleOrder(), nil).Once()

	rec := api.do(t, http.MethodGet, "/orders/7/status", token(t, 1, auth.RoleBuyer), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cached":false`)
	_, ok, _ := api.status.Get(context.Background(), 7)
	assert.True(t, ok)
}

func TestHistories(t *testing.T) {
	api := newTestAPI(t)
	api.orders.On("BuyerHistory", mock.Anything, int64(1)).Return([]orders.OrderView{sampleOrder()}, nil)
	api.orders.On("SellerOrders", mock.Anything, int64(2)).Return([]orders.OrderView{}, nil)

	rec := api.do(t, http.MethodGet, "/orders/my-history", token(t, 1, auth.RoleBuyer), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = api.do(t, http.MethodGet, "/seller/orders", token(t, 2, auth.RoleSeller), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCatalogRoutes(t *testing.T) {
	t.Run("public list with paging", func(t *testing.T) {
		api := newTestAPI(t)
		api.catalog.On("ListProducts", mock.Anything, 10, 5).Return([]catalog.ProductView{}, nil)

		rec := api.do(t, http.MethodGet, "/products/?skip=10&limit=5", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodGet, "/products?skip=-1", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin creates product", func(t *testing.T) {
		api := newTestAPI(t)
		in := catalog.ProductInput{Name: "Lamp", Description: "warm"}
		api.catalog.On("CreateProduct", mock.Anything, in).
			Return(catalog.ProductView{Product: catalog.Product{ID: 3, Name: "Lamp"}, Sellers: []catalog.Listing{}}, nil)

		rec := api.do(t, http.MethodPost, "/products", token(t, 9, auth.RoleAdmin), `{"name":"Lamp","description":"warm"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"sellers":[]`)
	})

	t.Run("seller adds listing", func(t *testing.T) {
		api := newTestAPI(t)
		in := catalog.ListingInput{ProductID: 3, Price: money.FromCents(1000), Quantity: 5}
		api.catalog.On("AddListing", mock.Anything, int64(2), in).
			Return(catalog.ListingView{Listing: catalog.Listing{ID: 5, SellerID: 2, ProductID: 3, Price: in.Price, Quantity: 5}}, nil)

		rec := api.do(t, http.MethodPost, "/seller/inventory", token(t, 2, auth.RoleSeller), `{"product_id":3,"price":10.00,"quantity":5}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"price":10.00`)
	})

	t.Run("duplicate listing conflicts", func(t *testing.T) {
		api := newTestAPI(t)
		api.catalog.On("AddListing", mock.Anything, int64(2), mock.Anything).
			Return(catalog.ListingView{}, apperr.New(apperr.KindConflict, "already listed"))

		rec := api.do(t, http.MethodPost, "/seller/inventory", token(t, 2, auth.RoleSeller), `{"product_id":3,"price":1,"quantity":1}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("price with too many decimals", func(t *testing.T) {
		api := newTestAPI(t)
		rec := api.do(t, http.MethodPost, "/seller/inventory", token(t, 2, auth.RoleSeller), `{"product_id":3,"price":1.005,"quantity":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing product", func(t *testing.T) {
		api := newTestAPI(t)
		api.catalog.On("GetProduct", mock.Anything, int64(44)).
			Return(catalog.ProductView{}, apperr.New(apperr.KindNotFound, "product 44 not found"))

		rec := api.do(t, http.MethodGet, "/products/44", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProbes(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"db":"ok"}`, rec.Body.String())
}
