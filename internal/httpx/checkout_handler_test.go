package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Muthumalai/E-Commerce-front/internal/orders"
	"github.com/S-Muthumalai/E-Commerce-front/internal/otp"
	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
)

type fakeGate struct {
	issuedPhone   string
	issueErr      error
	verifiedPhone string
	verifiedCode  string
	verifyErr     error
}

func (g *fakeGate) Issue(ctx context.Context, phone string) (string, error) {
	g.issuedPhone = phone
	return "123456", g.issueErr
}

func (g *fakeGate) Verify(ctx context.Context, phone, code string) error {
	g.verifiedPhone = phone
	g.verifiedCode = code
	return g.verifyErr
}

type fakePlacer struct {
	placedUser  string
	placedItems []orders.ItemInput
	placeErr    error
	stockErr    error
	order       orders.Order
}

func (p *fakePlacer) PlaceOrder(ctx context.Context, userID string, items []orders.ItemInput, shippingAddress, contact string, deliveryDate *time.Time) (orders.Order, error) {
	p.placedUser = userID
	p.placedItems = items
	return p.order, p.placeErr
}

func (p *fakePlacer) CheckStock(ctx context.Context, items []orders.ItemInput) error {
	return p.stockErr
}

type fakeCache struct {
	deleted []string
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	c.deleted = append(c.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func checkoutRouter(gate *fakeGate, placer *fakePlacer, cache *fakeCache) *chi.Mux {
	r := chi.NewRouter()
	(&CheckoutHandler{Gate: gate, Placer: placer, Cache: cache}).Register(r, &Auth{Secret: testSecret})
	return r
}

func TestSendOTP_Unauthenticated(t *testing.T) {
	r := checkoutRouter(&fakeGate{}, &fakePlacer{}, &fakeCache{})

	req := httptest.NewRequest(http.MethodPost, "/api/send-otp", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendOTP_UsesTokenPhone(t *testing.T) {
	gate := &fakeGate{}
	r := checkoutRouter(gate, &fakePlacer{}, &fakeCache{})

	req := httptest.NewRequest(http.MethodPost, "/api/send-otp", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "u1", users.RoleCustomer, "+15550001111"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+15550001111", gate.issuedPhone)
}

func TestSendOTP_BodyPhoneWins(t *testing.T) {
	gate := &fakeGate{}
	r := checkoutRouter(gate, &fakePlacer{}, &fakeCache{})

	body := bytes.NewBufferString(`{"phone":"+15559998888"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/send-otp", body)
	req.Header.Set("Authorization", "Bearer "+token(t, "u1", users.RoleCustomer, "+15550001111"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+15559998888", gate.issuedPhone)
}

func TestSendOTP_NoPhoneAnywhere(t *testing.T) {
	gate := &fakeGate{}
	r := checkoutRouter(gate, &fakePlacer{}, &fakeCache{})

	req := httptest.NewRequest(http.MethodPost, "/api/send-otp", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "u1", users.RoleCustomer, ""))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, gate.issuedPhone)
}

func placeOrderBody() *bytes.Buffer {
	return bytes.NewBufferString(`{
		"items":[
			{"product_id":"p1","qty":1,"price_cents":1000},
			{"product_id":"p2","qty":3,"price_cents":500}
		],
		"shipping_address":"42 Main St",
		"contact":"+15550001111",
		"otp":"123456"
	}`)
}

func TestPlaceOrder_OK(t *testing.T) {
	gate := &fakeGate{}
	placer := &fakePlacer{order: orders.Order{ID: "o1", UserID: "u1", TotalCents: 2500, Status: orders.StatusPending}}
	cache := &fakeCache{}
	r := checkoutRouter(gate, placer, cache)

	req := httptest.NewRequest(http.MethodPost, "/api/place-order", placeOrderBody())
	req.Header.Set("Authorization", "Bearer "+token(t, "u1", users.RoleCustomer, "+15550001111"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, "+15550001111", gate.verifiedPhone)
	assert.Equal(t, "123456", gate.verifiedCode)
	assert.Equal(t, "u1", placer.placedUser)
	require.Len(t, placer.placedItems, 2)

	var o orders.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&o))
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, 2500, o.TotalCents)

	// cached product rows carry pre-checkout stock; they must be dropped
	assert.ElementsMatch(t, []string{"product:p1", "product:p2"}, cache.deleted)
}

func TestPlaceOrder_InvalidOTPLeavesStockAlone(t *testing.T) {
	gate := &fakeGate{verifyErr: otp.ErrInvalidOTP}
	placer := &fakePlacer{}
	cache := &fakeCache{}
	r := checkoutRouter(gate, placer, cache)

	req := httptest.NewRequest(http.MethodPost, "/api/place-order", placeOrderBody())
	req.Header.Set("Authorization", "Bearer "+token(t, "u1", users.RoleCustomer, "+15550001111"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid otp")
	assert.Empty(t, placer.placedUser)
	assert.Empty(t, cache.deleted)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	gate := &fakeGate{}
	placer := &fakePlacer{stockErr: &orders.InsufficientStockError{ProductID: "p2", Requested: 3, Available: 1}}
	r := checkoutRouter(gate, placer, &fakeCache{})

	req := httptest.NewRequest(http.MethodPost, "/api/place-order", placeOrderBody())
	req.Header.Set("Authorization", "Bearer "+token(t, "u1", users.RoleCustomer, "+15550001111"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "insufficient stock", body["error"])
	assert.Equal(t, "p2", body["product_id"])
	assert.EqualValues(t, 3, body["requested"])
	assert.EqualValues(t, 1, body["available"])
	assert.Empty(t, placer.placedUser)
}

func TestPlaceOrder_MissingFields(t *testing.T) {
	r := checkoutRouter(&fakeGate{}, &fakePlacer{}, &fakeCache{})

	cases := map[string]string{
		"no items":    `{"items":[],"shipping_address":"a","contact":"c","otp":"1"}`,
		"no address":  `{"items":[{"product_id":"p1","qty":1}],"contact":"c","otp":"1"}`,
		"no contact":  `{"items":[{"product_id":"p1","qty":1}],"shipping_address":"a","otp":"1"}`,
		"broken json": `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/place-order", bytes.NewBufferString(body))
			req.Header.Set("Authorization", "Bearer "+token(t, "u1", users.RoleCustomer, "+15550001111"))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
