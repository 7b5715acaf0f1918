package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apparel-studio/cart"
	"apparel-studio/checkout"
	"apparel-studio/core"
	"apparel-studio/middleware"
	"apparel-studio/stores/memory"

	"github.com/go-chi/chi/v5"
)

const validBody = `{
	"shipping": {"fullName":"Test User","address":"Calle Mayor 1","city":"Madrid","postalCode":"28013","country":"ES"},
	"payment": {"cardNumber":"4242 4242 4242 4242","expiryDate":"12/30","cvv":"123","cardName":"TEST USER"}
}`

type testEnv struct {
	router http.Handler
	carts  *cart.Service
}

func newTestEnv(delay time.Duration) *testEnv {
	carts := cart.NewService()
	store := memory.NewStore()
	svc := checkout.NewService(carts, store, checkout.WithPaymentDelay(delay))

	r := chi.NewRouter()
	r.Post("/api/orders", HandleCheckout(svc))
	r.Get("/api/orders", HandleListOrders(store))
	r.Get("/api/orders/{id}", HandleGetOrder(store))
	return &testEnv{router: r, carts: carts}
}

func (env *testEnv) serve(ctx context.Context, method, path, userID, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd).WithContext(ctx)
	if userID != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

var tshirt = core.Product{ID: "tshirt-1", Type: core.ProductTShirt, BasePrice: 19.99}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(0)
	ctx := context.Background()
	env.carts.AddDesign("user-1", tshirt, core.Design{ID: "design-1"})

	w := env.serve(ctx, http.MethodPost, "/api/orders", "user-1", validBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var order core.Order
	if err := json.NewDecoder(w.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if order.Total != 29.98 || order.Status != checkout.StatusPaid {
		t.Errorf("unexpected order: %+v", order)
	}
	if order.PaymentMethod != "Visa ending in 4242" {
		t.Errorf("unexpected payment method %q", order.PaymentMethod)
	}
	if len(env.carts.Items("user-1")) != 0 {
		t.Error("cart should be empty after checkout")
	}

	w = env.serve(ctx, http.MethodGet, "/api/orders", "user-1", "")
	var list []core.Order
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode orders: %v", err)
	}
	if len(list) != 1 || list[0].ID != order.ID {
		t.Errorf("unexpected order list: %+v", list)
	}

	if w := env.serve(ctx, http.MethodGet, "/api/orders/"+order.ID, "user-1", ""); w.Code != http.StatusOK {
		t.Errorf("get order: expected status 200, got %d", w.Code)
	}
	if w := env.serve(ctx, http.MethodGet, "/api/orders/"+order.ID, "user-2", ""); w.Code != http.StatusNotFound {
		t.Errorf("other user: expected status 404, got %d", w.Code)
	}
	if w := env.serve(ctx, http.MethodGet, "/api/orders", "user-2", ""); w.Body.String() != "[]\n" {
		t.Errorf("expected empty list for user-2, got %q", w.Body.String())
	}
}

func TestCheckoutRejections(t *testing.T) {
	env := newTestEnv(0)
	ctx := context.Background()

	if w := env.serve(ctx, http.MethodPost, "/api/orders", "user-1", validBody); w.Code != http.StatusBadRequest {
		t.Errorf("empty cart: expected status 400, got %d", w.Code)
	}

	env.carts.AddDesign("user-1", tshirt, core.Design{ID: "design-1"})
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing shipping", `{"payment":{"cardNumber":"4242424242424242","expiryDate":"12/30","cvv":"123","cardName":"X"}}`},
		{"short card", `{"shipping":{"fullName":"A","address":"B","city":"C","postalCode":"D"},"payment":{"cardNumber":"4242","expiryDate":"12/30","cvv":"123","cardName":"X"}}`},
		{"long cvv", `{"shipping":{"fullName":"A","address":"B","city":"C","postalCode":"D"},"payment":{"cardNumber":"4242424242424242","expiryDate":"12/30","cvv":"1234","cardName":"X"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.serve(ctx, http.MethodPost, "/api/orders", "user-1", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}
	if len(env.carts.Items("user-1")) != 1 {
		t.Error("rejected checkouts must leave the cart alone")
	}

	if w := env.serve(ctx, http.MethodPost, "/api/orders", "", validBody); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected status 401, got %d", w.Code)
	}
}

func TestCheckoutCancelled(t *testing.T) {
	env := newTestEnv(time.Hour)
	env.carts.AddDesign("user-1", tshirt, core.Design{ID: "design-1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if w := env.serve(ctx, http.MethodPost, "/api/orders", "user-1", validBody); w.Code != http.StatusRequestTimeout {
		t.Errorf("expected status 408, got %d", w.Code)
	}
	if len(env.carts.Items("user-1")) != 1 {
		t.Error("interrupted checkout must leave the cart alone")
	}
}

func TestCheckoutConflict(t *testing.T) {
	env := newTestEnv(0)
	env.carts.AddDesign("user-1", tshirt, core.Design{ID: "design-1"})

	_, release, err := env.carts.Reserve("user-1")
	if err != nil {
		t.Fatalf("Reserve() failed: %v", err)
	}
	if w := env.serve(context.Background(), http.MethodPost, "/api/orders", "user-1", validBody); w.Code != http.StatusConflict {
		t.Errorf("pending checkout: expected status 409, got %d", w.Code)
	}
	release()

	if w := env.serve(context.Background(), http.MethodPost, "/api/orders", "user-1", validBody); w.Code != http.StatusCreated {
		t.Errorf("after release: expected status 201, got %d", w.Code)
	}
}
