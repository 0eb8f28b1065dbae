package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/electromart/internal/payment/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(adminToken string) (http.Handler, *CartOperationsMock) {
	carts := newCartMock()
	h := Handlers{
		Payment:  NewPaymentHandler(&GatewayOrdersMock{}, signature.NewVerifier(handlerSecret), "INR", "pong", time.Second),
		Products: NewProductHandler(&ProductReaderMock{products: sampleProducts()}, time.Second),
		Cart:     NewCartHandler(carts, time.Second),
		Checkout: NewCheckoutHandler(&CheckoutMock{}, time.Second),
		Orders:   NewOrdersHandler(newOrdersMock(placedOrder("o-1", "user-1")), time.Second),
		Admin:    NewAdminHandler(newOrdersMock(placedOrder("o-1", "user-1")), time.Second),
	}
	return NewRouter(h, RouterConfig{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		AdminToken:         adminToken,
	}), carts
}

func serve(handler http.Handler, r *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, r)
	return recorder
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter("")

	recorder := serve(router, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
	assert.NotEmpty(t, recorder.Header().Get(HeaderRequestID))
}

func TestRouter_PingUsesConfiguredMessage(t *testing.T) {
	router, _ := newTestRouter("")

	recorder := serve(router, httptest.NewRequest("GET", "/api/ping", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"message":"pong"}`, recorder.Body.String())
}

func TestRouter_MintsSessionCookie(t *testing.T) {
	router, _ := newTestRouter("")

	recorder := serve(router, httptest.NewRequest("GET", "/api/v1/cart", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, recorder.Header().Get(HeaderSessionID))
}

func TestRouter_SessionFromHeaderAndCookie(t *testing.T) {
	router, carts := newTestRouter("")

	add := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":"esp32-devkit"}`))
	add.Header.Set(HeaderSessionID, "sess-header")
	recorder := serve(router, add)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	assert.Empty(t, recorder.Result().Cookies(), "no cookie when the caller names a session")
	assert.Equal(t, "sess-header", recorder.Header().Get(HeaderSessionID))
	require.Contains(t, carts.carts, "sess-header")
	assert.Equal(t, 1, carts.carts["sess-header"].TotalItems)

	get := httptest.NewRequest("GET", "/api/v1/cart", nil)
	get.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess-header"})
	recorder = serve(router, get)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"session_id":"sess-header"`)
}

func TestRouter_UserHeaderScopesOrders(t *testing.T) {
	router, _ := newTestRouter("")

	request := httptest.NewRequest("GET", "/api/v1/orders/o-1", nil)
	request.Header.Set(HeaderUserID, "user-1")
	assert.Equal(t, http.StatusOK, serve(router, request).Code)

	// no X-User-ID means the guest user
	assert.Equal(t, http.StatusNotFound, serve(router, httptest.NewRequest("GET", "/api/v1/orders/o-1", nil)).Code)
}

func TestRouter_GuestOrdersScopedToSession(t *testing.T) {
	orders := newOrdersMock(placedOrder("o-guest", guestUserID("sess-a")))
	h := Handlers{
		Payment:  NewPaymentHandler(&GatewayOrdersMock{}, signature.NewVerifier(handlerSecret), "INR", "pong", time.Second),
		Products: NewProductHandler(&ProductReaderMock{products: sampleProducts()}, time.Second),
		Cart:     NewCartHandler(newCartMock(), time.Second),
		Checkout: NewCheckoutHandler(&CheckoutMock{}, time.Second),
		Orders:   NewOrdersHandler(orders, time.Second),
		Admin:    NewAdminHandler(orders, time.Second),
	}
	router := NewRouter(h, RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 1 << 20})

	tests := []struct {
		name      string
		sessionID string
		userID    string
		get       int
		listed    bool
	}{
		{"placing session", "sess-a", "", http.StatusOK, true},
		{"other guest session", "sess-b", "", http.StatusNotFound, false},
		{"explicit guest header", "sess-b", GuestUser, http.StatusNotFound, false},
		{"forged guest id", "sess-b", guestUserID("sess-a"), http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			get := httptest.NewRequest("GET", "/api/v1/orders/o-guest", nil)
			get.Header.Set(HeaderSessionID, tt.sessionID)
			if tt.userID != "" {
				get.Header.Set(HeaderUserID, tt.userID)
			}
			assert.Equal(t, tt.get, serve(router, get).Code)

			list := httptest.NewRequest("GET", "/api/v1/orders", nil)
			list.Header.Set(HeaderSessionID, tt.sessionID)
			if tt.userID != "" {
				list.Header.Set(HeaderUserID, tt.userID)
			}
			recorder := serve(router, list)
			require.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, tt.listed, strings.Contains(recorder.Body.String(), "o-guest"))
		})
	}
}

func TestSessionMiddleware_GuestUserBoundToSession(t *testing.T) {
	var seen string
	handler := MockAuthMiddleware(SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getUserID(r.Context())
	})))

	request := httptest.NewRequest("GET", "/api/v1/orders", nil)
	request.Header.Set(HeaderSessionID, "sess-7")
	serve(handler, request)
	assert.Equal(t, "guest:sess-7", seen)

	request = httptest.NewRequest("GET", "/api/v1/orders", nil)
	request.Header.Set(HeaderSessionID, "sess-7")
	request.Header.Set(HeaderUserID, "user-1")
	serve(handler, request)
	assert.Equal(t, "user-1", seen)
}

func TestRouter_AdminGuard(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		expected   int
	}{
		{"disabled", "", "anything", http.StatusForbidden},
		{"missing token", "s3cret", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "guess", http.StatusUnauthorized},
		{"valid token", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(tt.configured)
			request := httptest.NewRequest("GET", "/api/v1/admin/orders", nil)
			if tt.sent != "" {
				request.Header.Set(HeaderAdminToken, tt.sent)
			}

			assert.Equal(t, tt.expected, serve(router, request).Code)
		})
	}
}

func TestRouter_BodyLimit(t *testing.T) {
	carts := newCartMock()
	router := NewRouter(Handlers{Cart: NewCartHandler(carts, time.Second)}, RouterConfig{
		RequestTimeout:     time.Second,
		MaxRequestBodySize: 16,
	})

	request := httptest.NewRequest("POST", "/api/v1/cart/items",
		strings.NewReader(`{"product_id":"`+strings.Repeat("x", 64)+`"}`))
	request.Header.Set(HeaderSessionID, "sess-1")

	assert.Equal(t, http.StatusBadRequest, serve(router, request).Code)
	assert.Empty(t, carts.carts)
}

func TestRouter_EchoesRequestID(t *testing.T) {
	router, _ := newTestRouter("")
	request := httptest.NewRequest("GET", "/health", nil)
	request.Header.Set(HeaderRequestID, "req-42")

	assert.Equal(t, "req-42", serve(router, request).Header().Get(HeaderRequestID))
}
