package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Congxabeng103/bez-storefront/internal/address"
	"github.com/Congxabeng103/bez-storefront/internal/admin"
	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/checkout"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/pricing"
	"github.com/Congxabeng103/bez-storefront/internal/session"
	"github.com/Congxabeng103/bez-storefront/internal/store"
)

var today = models.NewDate(2024, time.June, 15)

// fakeSessions keeps sessions and carts in memory.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	carts    map[string][]models.CartLine
	created  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*models.Session{}, carts: map[string][]models.CartLine{}}
}

func (f *fakeSessions) Open(_ context.Context, id string) (*models.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		cp := *s
		return &cp, false, nil
	}
	f.created++
	s := &models.Session{ID: "sess-" + string(rune('a'+f.created)), ExpiresAt: time.Now().Add(time.Hour)}
	f.sessions[s.ID] = s
	cp := *s
	return &cp, true, nil
}

func (f *fakeSessions) Login(_ context.Context, s *models.Session, token string) (*models.Session, error) {
	id, err := session.ParseIdentity(token)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next := *s
	next.Token, next.UserID, next.Email, next.Role = token, id.UserID, id.Email, id.Role
	f.sessions[s.ID] = &next
	return &next, nil
}

func (f *fakeSessions) Logout(_ context.Context, s *models.Session) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := models.Session{ID: s.ID, ExpiresAt: s.ExpiresAt}
	f.sessions[s.ID] = &next
	delete(f.carts, s.ID)
	return &next, nil
}

func (f *fakeSessions) Cart(_ context.Context, s *models.Session) ([]models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CartLine(nil), f.carts[s.ID]...), nil
}

func (f *fakeSessions) AddItem(_ context.Context, s *models.Session, variantID int64, quantity int) (*models.CartLine, error) {
	if quantity > 5 {
		return nil, session.ErrOutOfStock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	line := models.CartLine{
		SessionID: s.ID,
		VariantID: variantID,
		ProductID: 7,
		UnitPrice: decimal.NewFromInt(100000),
		Quantity:  quantity,
		Version:   1,
	}
	f.carts[s.ID] = append(f.carts[s.ID], line)
	return &line, nil
}

func (f *fakeSessions) SetQuantity(_ context.Context, s *models.Session, variantID int64, quantity, version int) (*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.carts[s.ID] {
		if l.VariantID != variantID {
			continue
		}
		if l.Version != version {
			return nil, session.ErrStaleCart
		}
		f.carts[s.ID][i].Quantity = quantity
		f.carts[s.ID][i].Version++
		line := f.carts[s.ID][i]
		return &line, nil
	}
	return nil, session.ErrNotInCart
}

func (f *fakeSessions) RemoveItem(_ context.Context, s *models.Session, variantID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.carts[s.ID]
	for i, l := range lines {
		if l.VariantID == variantID {
			f.carts[s.ID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return session.ErrNotInCart
}

func (f *fakeSessions) ClearCart(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, s.ID)
	return nil
}

type memAttempts struct {
	mu    sync.Mutex
	items []models.CheckoutAttempt
}

func (m *memAttempts) Record(_ context.Context, a models.CheckoutAttempt) (*models.CheckoutAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, a)
	return &a, nil
}

func (m *memAttempts) List(_ context.Context, sessionID, _ string, limit int) (*store.CursorPage[models.CheckoutAttempt], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &store.CursorPage[models.CheckoutAttempt]{Items: []models.CheckoutAttempt{}}
	for _, a := range m.items {
		if a.SessionID == sessionID && len(page.Items) < limit {
			page.Items = append(page.Items, a)
		}
	}
	return page, nil
}

type fakeAddress struct{}

func (fakeAddress) Provinces(context.Context) ([]address.Division, error) {
	return []address.Division{{Code: 1, Name: "Thành phố Hà Nội"}}, nil
}

func (fakeAddress) Districts(_ context.Context, code int) ([]address.Division, error) {
	if code != 1 {
		return nil, address.ErrNotFound
	}
	return []address.Division{{Code: 1, Name: "Quận Ba Đình"}}, nil
}

func (fakeAddress) Wards(context.Context, int) ([]address.Division, error) {
	return nil, nil
}

func signToken(t *testing.T, email, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    email,
		"role":   role,
		"userId": 1,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return tok
}

func writeEnvelope(w http.ResponseWriter, status int, env models.Envelope[any]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

func ok(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, models.Envelope[any]{Status: models.StatusSuccess, Data: data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, models.Envelope[any]{Status: models.StatusError, Message: msg})
}

// fakeBackend answers the handful of REST endpoints the tests touch.
type fakeBackend struct {
	mu        sync.Mutex
	order     models.Order
	userRoles []string
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds backend.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			fail(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		role := models.RoleCustomer
		switch {
		case strings.HasPrefix(creds.Email, "admin"):
			role = models.RoleAdmin
		case strings.HasPrefix(creds.Email, "staff"):
			role = models.RoleStaff
		}
		ok(w, models.AuthToken{
			Token: signToken(t, creds.Email, role),
			User:  &models.User{ID: 1, Email: creds.Email, Role: role, Active: true},
		})
	})

	mux.HandleFunc("GET /v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			fail(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ok(w, models.User{ID: 1, Email: "an@bez.vn", Role: models.RoleCustomer})
	})

	mux.HandleFunc("GET /v1/users", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.userRoles = append(b.userRoles, r.URL.Query().Get("role"))
		b.mu.Unlock()
		ok(w, models.Page[models.User]{Content: []models.User{}})
	})

	mux.HandleFunc("GET /v1/products", func(w http.ResponseWriter, r *http.Request) {
		ok(w, models.Page[models.Product]{
			Content:       []models.Product{{ID: 7, Name: "Running shoe", Price: decimal.NewFromInt(100000), Active: true}},
			TotalPages:    1,
			TotalElements: 1,
		})
	})

	mux.HandleFunc("GET /v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			fail(w, http.StatusNotFound, "Product not found")
			return
		}
		ok(w, models.Product{ID: 7, Name: "Running shoe", Price: decimal.NewFromInt(100000), Active: true})
	})

	mux.HandleFunc("GET /v1/promotions/active", func(w http.ResponseWriter, r *http.Request) {
		ok(w, []models.Promotion{})
	})

	mux.HandleFunc("GET /v1/coupons/code/{code}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("code") != "SALE10" {
			fail(w, http.StatusNotFound, "Coupon not found")
			return
		}
		ok(w, models.Coupon{ID: 1, Code: "SALE10", DiscountValue: decimal.NewFromInt(10), Active: true})
	})

	mux.HandleFunc("POST /v1/orders", func(w http.ResponseWriter, r *http.Request) {
		var in models.OrderInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		ok(w, models.Order{
			ID:            50,
			OrderNumber:   "ORD-50",
			TotalAmount:   in.TotalAmount,
			PaymentMethod: in.PaymentMethod,
			PaymentStatus: models.PaymentStatusPending,
			OrderStatus:   models.OrderStatusPending,
		})
	})

	mux.HandleFunc("GET /v1/orders/1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		ok(w, b.order)
	})

	mux.HandleFunc("PUT /v1/orders/1/status", func(w http.ResponseWriter, r *http.Request) {
		var upd models.OrderStatusUpdate
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&upd))
		b.mu.Lock()
		defer b.mu.Unlock()
		b.order.OrderStatus = upd.Status
		b.order.TrackingCode = upd.TrackingCode
		ok(w, b.order)
	})

	return mux
}

type harness struct {
	srv      *httptest.Server
	client   *http.Client
	sessions *fakeSessions
	backend  *fakeBackend
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fb := &fakeBackend{order: models.Order{
		ID:            1,
		OrderNumber:   "ORD-1",
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusConfirmed,
	}}
	backendSrv := httptest.NewServer(fb.handler(t))
	t.Cleanup(backendSrv.Close)

	api := backend.NewAPI(backend.New(backendSrv.URL))
	sessions := newFakeSessions()
	clock := func() time.Time { return today.Time().Add(10 * time.Hour) }

	server := NewServer(Deps{
		Sessions: sessions,
		Checkout: checkout.NewService(checkout.Deps{
			Carts:      sessions,
			Promotions: api.Promotions,
			Coupons:    api.Coupons,
			Orders:     api.Orders,
			Attempts:   &memAttempts{},
			Shipping:   pricing.NewShippingPolicy(30000),
			Location:   time.UTC,
			Now:        clock,
		}),
		Backend: api,
		Address: fakeAddress{},
		Admin:   admin.NewConsole(api, func() models.Date { return today }),
	})
	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{srv: srv, client: &http.Client{Jar: jar}, sessions: sessions, backend: fb}
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, models.Envelope[json.RawMessage]) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(payload)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env models.Envelope[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	status, env := h.do(t, http.MethodPost, "/api/auth/login", backend.Credentials{Email: email, Password: "secret"})
	require.Equal(t, http.StatusOK, status, env.Message)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Get(h.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionCookieIsIssuedOnce(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.StatusSuccess, env.Status)

	var cart struct {
		Lines []models.CartLine `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Empty(t, cart.Lines)

	h.do(t, http.MethodGet, "/api/cart", nil)
	h.sessions.mu.Lock()
	defer h.sessions.mu.Unlock()
	assert.Equal(t, 1, h.sessions.created)
}

func TestLoginAndMe(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodPost, "/api/auth/login", backend.Credentials{Email: "an@bez.vn", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Bad credentials", env.Message)

	status, env = h.do(t, http.MethodPost, "/api/auth/login", backend.Credentials{Email: "not-an-email", Password: "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(env.Data), "email")

	h.login(t, "an@bez.vn")
	status, env = h.do(t, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)

	var view struct {
		User *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.User)
	assert.Equal(t, "an@bez.vn", view.User.Email)

	status, _ = h.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = h.do(t, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), `"user"`)
}

func TestAdminRoleGate(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(t, http.MethodGet, "/api/admin/products", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	h.login(t, "an@bez.vn")
	status, _ = h.do(t, http.MethodGet, "/api/admin/products", nil)
	assert.Equal(t, http.StatusForbidden, status)

	h.login(t, "staff@bez.vn")
	status, _ = h.do(t, http.MethodGet, "/api/admin/products", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.do(t, http.MethodGet, "/api/admin/employees", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(t, http.MethodDelete, "/api/admin/brands/2/permanent", nil)
	assert.Equal(t, http.StatusForbidden, status)

	h.login(t, "admin@bez.vn")
	status, _ = h.do(t, http.MethodGet, "/api/admin/employees", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = h.do(t, http.MethodGet, "/api/admin/customers?role=ADMIN", nil)
	assert.Equal(t, http.StatusOK, status)
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	assert.Equal(t, []string{"STAFF,ADMIN", "CUSTOMER"}, h.backend.userRoles)
}

func TestAdminCatalogItemReportsHardDelete(t *testing.T) {
	h := newHarness(t)

	canDelete := func(t *testing.T) bool {
		t.Helper()
		status, env := h.do(t, http.MethodGet, "/api/admin/products/7", nil)
		require.Equal(t, http.StatusOK, status)
		var item struct {
			Item                 *models.Product `json:"item"`
			CanDeletePermanently bool            `json:"canDeletePermanently"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &item))
		require.NotNil(t, item.Item)
		assert.Equal(t, int64(7), item.Item.ID)
		return item.CanDeletePermanently
	}

	h.login(t, "staff@bez.vn")
	assert.False(t, canDelete(t))

	h.login(t, "admin@bez.vn")
	assert.True(t, canDelete(t))
}

func TestOrderStatusChange(t *testing.T) {
	h := newHarness(t)
	h.login(t, "staff@bez.vn")

	status, env := h.do(t, http.MethodPut, "/api/admin/orders/1/status", statusRequest{Status: "SHIPPING"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(env.Data), "trackingCode")

	status, _ = h.do(t, http.MethodPut, "/api/admin/orders/1/status", statusRequest{Status: "COMPLETED"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(t, http.MethodPut, "/api/admin/orders/1/status", statusRequest{Status: "LOST"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.do(t, http.MethodPut, "/api/admin/orders/1/status", statusRequest{Status: "shipping", TrackingCode: "GHN-1"})
	require.Equal(t, http.StatusOK, status, env.Message)

	var view struct {
		Order   models.Order `json:"order"`
		Actions []actionView `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, models.OrderStatusShipping, view.Order.OrderStatus)
	assert.Equal(t, "GHN-1", view.Order.TrackingCode)
	require.Len(t, view.Actions, 2)
	assert.Equal(t, "Mark delivered", view.Actions[0].Action)
}

type actionView struct {
	To     string `json:"to"`
	Action string `json:"action"`
}

func TestCheckoutFlow(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(t, http.MethodPost, "/api/checkout", validCheckout())
	assert.Equal(t, http.StatusBadRequest, status, "empty cart")

	status, _ = h.do(t, http.MethodPost, "/api/cart/items", addItemRequest{VariantID: 101, Quantity: 9})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = h.do(t, http.MethodPost, "/api/cart/items", addItemRequest{VariantID: 101, Quantity: 3})
	require.Equal(t, http.StatusCreated, status)

	status, env := h.do(t, http.MethodPost, "/api/checkout/coupon", couponRequest{Code: "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(env.Data), "NOT_FOUND")

	status, env = h.do(t, http.MethodGet, "/api/checkout/quote?coupon=sale10", nil)
	require.Equal(t, http.StatusOK, status)
	var q pricing.Quote
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, "300000", q.Subtotal.String())
	assert.Equal(t, "30000", q.CouponDiscount.String())
	assert.Equal(t, "300000", q.Total.String())

	status, env = h.do(t, http.MethodPost, "/api/checkout", validCheckout())
	require.Equal(t, http.StatusCreated, status, env.Message)
	var res checkout.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "ORD-50", res.Order.OrderNumber)
	assert.False(t, res.PriceChanged)

	status, env = h.do(t, http.MethodGet, "/api/checkout/history", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "ORD-50")

	_, env = h.do(t, http.MethodGet, "/api/cart", nil)
	assert.Contains(t, string(env.Data), `"lines":[]`)
}

func TestCartQuantityConflicts(t *testing.T) {
	h := newHarness(t)
	status, _ := h.do(t, http.MethodPost, "/api/cart/items", addItemRequest{VariantID: 101, Quantity: 1})
	require.Equal(t, http.StatusCreated, status)

	status, _ = h.do(t, http.MethodPut, "/api/cart/items/101", setQuantityRequest{Quantity: 2, Version: 7})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(t, http.MethodPut, "/api/cart/items/101", setQuantityRequest{Quantity: 2, Version: 1})
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.do(t, http.MethodDelete, "/api/cart/items/202", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(t, http.MethodPut, "/api/cart/items/abc", setQuantityRequest{Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, status)
}

func validCheckout() checkout.Request {
	return checkout.Request{
		CustomerName:  "Nguyen Van An",
		Phone:         "0901234567",
		Province:      "Thành phố Hà Nội",
		District:      "Quận Ba Đình",
		Ward:          "Phường Phúc Xá",
		Street:        "12 Nguyen Trung Truc",
		PaymentMethod: models.PaymentMethodCOD,
		CouponCode:    "SALE10",
	}
}

func TestCatalog(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodGet, "/api/catalog/products", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "Running shoe")

	status, env = h.do(t, http.MethodGet, "/api/catalog/products/8", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Product not found", env.Message)

	status, _ = h.do(t, http.MethodGet, "/api/catalog/variants", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAddress(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodGet, "/api/address/provinces", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "Hà Nội")

	status, _ = h.do(t, http.MethodGet, "/api/address/provinces/999/districts", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = h.do(t, http.MethodGet, "/api/address/districts/1/wards", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))
}
