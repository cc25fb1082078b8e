package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickmart/checkout-engine/internal/checkout/application"
	"github.com/quickmart/checkout-engine/internal/checkout/domain"
	checkouthttp "github.com/quickmart/checkout-engine/internal/checkout/infrastructure/http"
	"github.com/quickmart/checkout-engine/internal/checkout/infrastructure/memory"
	"github.com/quickmart/checkout-engine/pkg/logging"
)

func newServer(store *memory.Store) *httptest.Server {
	log := logging.New("test")
	handler := checkouthttp.NewHandler(log,
		application.NewCartService(store, store),
		application.NewReservationService(store, store, store),
		application.NewSettlementService(store),
		application.NewAlertService(store),
	)
	r := chi.NewRouter()
	r.Use(checkouthttp.WithUser)
	r.Route("/api", func(api chi.Router) {
		api.Mount("/cart", handler.Cart())
		api.Mount("/checkout", handler.Checkout())
		api.Mount("/admin", handler.Admin())
	})
	return httptest.NewServer(r)
}

func do(t *testing.T, srv *httptest.Server, method, path, user string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-User-Id", user)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func seedProduct(store *memory.Store, stock, threshold int) domain.Product {
	p := domain.Product{
		ID:                uuid.NewString(),
		Name:              "Widget",
		SKU:               "SKU-WID-1",
		PriceCents:        1000,
		Stock:             stock,
		LowStockThreshold: threshold,
		CreatedAt:         time.Now().UTC(),
	}
	store.PutProduct(p)
	return p
}

func TestReserveAndConfirmFlow(t *testing.T) {
	store := memory.NewStore()
	srv := newServer(store)
	defer srv.Close()
	p := seedProduct(store, 5, 3)

	resp, _ := do(t, srv, http.MethodPost, "/api/cart", "user-a",
		map[string]any{"productId": p.ID, "qty": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add to cart: status %d", resp.StatusCode)
	}

	resp, body := do(t, srv, http.MethodPost, "/api/checkout/reserve", "user-a",
		map[string]any{"address": "12 Main Street", "shippingMethod": "standard"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reserve: status %d body %v", resp.StatusCode, body)
	}
	reservationID, _ := body["reservationId"].(string)
	if reservationID == "" {
		t.Fatal("no reservationId in response")
	}

	resp, body = do(t, srv, http.MethodPost, "/api/checkout/confirm", "user-a",
		map[string]any{"reservationId": reservationID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: status %d body %v", resp.StatusCode, body)
	}
	orderID, _ := body["orderId"].(string)
	if orderID == "" || body["status"] != "created" {
		t.Fatalf("confirm body: %v", body)
	}

	// Retried confirm replays the same order.
	resp, body = do(t, srv, http.MethodPost, "/api/checkout/confirm", "user-a",
		map[string]any{"reservationId": reservationID})
	if resp.StatusCode != http.StatusOK || body["orderId"] != orderID {
		t.Fatalf("replay: status %d body %v", resp.StatusCode, body)
	}
}

func TestReserveEmptyCart(t *testing.T) {
	store := memory.NewStore()
	srv := newServer(store)
	defer srv.Close()

	resp, body := do(t, srv, http.MethodPost, "/api/checkout/reserve", "user-a",
		map[string]any{"address": "12 Main Street", "shippingMethod": "standard"})
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "cart_empty" {
		t.Fatalf("status %d body %v", resp.StatusCode, body)
	}
}

func TestConfirmErrorMapping(t *testing.T) {
	store := memory.NewStore()
	srv := newServer(store)
	defer srv.Close()
	p := seedProduct(store, 1, 0)

	// Unknown reservation and foreign reservation both read as invalid.
	resp, body := do(t, srv, http.MethodPost, "/api/checkout/confirm", "user-a",
		map[string]any{"reservationId": uuid.NewString()})
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "invalid_reservation" {
		t.Fatalf("unknown: status %d body %v", resp.StatusCode, body)
	}

	// Expired reservation answers 410.
	expired := domain.NewReservation(uuid.NewString(), "user-a", "12 Main Street", "standard",
		[]domain.ReservationLine{{ProductID: p.ID, ProductName: p.Name, PriceCents: p.PriceCents, Qty: 1}},
		time.Now().UTC().Add(-domain.ReservationTTL-time.Second))
	if err := store.Create(context.Background(), expired); err != nil {
		t.Fatal(err)
	}
	resp, body = do(t, srv, http.MethodPost, "/api/checkout/confirm", "user-a",
		map[string]any{"reservationId": expired.ID})
	if resp.StatusCode != http.StatusGone || body["error"] != "reservation_expired" {
		t.Fatalf("expired: status %d body %v", resp.StatusCode, body)
	}

	// Outsold reservation answers 409 naming the product.
	active := domain.NewReservation(uuid.NewString(), "user-a", "12 Main Street", "standard",
		[]domain.ReservationLine{{ProductID: p.ID, ProductName: p.Name, PriceCents: p.PriceCents, Qty: 1}},
		time.Now().UTC())
	if err := store.Create(context.Background(), active); err != nil {
		t.Fatal(err)
	}
	p.Stock = 0
	store.PutProduct(p)
	resp, body = do(t, srv, http.MethodPost, "/api/checkout/confirm", "user-a",
		map[string]any{"reservationId": active.ID})
	if resp.StatusCode != http.StatusConflict || body["error"] != fmt.Sprintf("insufficient_stock:%s", p.ID) {
		t.Fatalf("conflict: status %d body %v", resp.StatusCode, body)
	}
}

func TestCartRoutes(t *testing.T) {
	store := memory.NewStore()
	srv := newServer(store)
	defer srv.Close()
	p := seedProduct(store, 5, 0)

	resp, body := do(t, srv, http.MethodPost, "/api/cart", "user-a",
		map[string]any{"productId": p.ID, "qty": 6})
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "invalid_quantity" {
		t.Fatalf("qty 6: status %d body %v", resp.StatusCode, body)
	}

	resp, _ = do(t, srv, http.MethodPost, "/api/cart", "user-a",
		map[string]any{"productId": p.ID, "qty": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d", resp.StatusCode)
	}

	resp, body = do(t, srv, http.MethodGet, "/api/cart", "user-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("view: status %d", resp.StatusCode)
	}
	if body["total"] != float64(2000) {
		t.Errorf("total = %v, want 2000", body["total"])
	}

	// Carts are per-user.
	_, body = do(t, srv, http.MethodGet, "/api/cart", "user-b", nil)
	if items, ok := body["items"].([]any); !ok || len(items) != 0 {
		t.Errorf("user-b cart: %v", body)
	}

	resp, _ = do(t, srv, http.MethodDelete, "/api/cart/"+p.ID, "user-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp, body = do(t, srv, http.MethodDelete, "/api/cart/"+p.ID, "user-a", nil)
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "cart_line_not_found" {
		t.Fatalf("second delete: status %d body %v", resp.StatusCode, body)
	}
}

func TestAdminAlertRoutes(t *testing.T) {
	store := memory.NewStore()
	srv := newServer(store)
	defer srv.Close()
	p := seedProduct(store, 2, 3)

	do(t, srv, http.MethodPost, "/api/cart", "user-a", map[string]any{"productId": p.ID, "qty": 1})
	_, body := do(t, srv, http.MethodPost, "/api/checkout/reserve", "user-a",
		map[string]any{"address": "12 Main Street", "shippingMethod": "standard"})
	reservationID, _ := body["reservationId"].(string)
	resp, _ := do(t, srv, http.MethodPost, "/api/checkout/confirm", "user-a",
		map[string]any{"reservationId": reservationID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/admin/low-stock-alerts", nil)
	resp2, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var alerts []map[string]any
	if err := json.NewDecoder(resp2.Body).Decode(&alerts); err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	alertID, _ := alerts[0]["id"].(string)

	resp, _ = do(t, srv, http.MethodPost, "/api/admin/low-stock-alerts/"+alertID+"/ack", "admin", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ack: status %d", resp.StatusCode)
	}
	resp, body = do(t, srv, http.MethodPost, "/api/admin/low-stock-alerts/"+uuid.NewString()+"/ack", "admin", nil)
	if resp.StatusCode != http.StatusNotFound || body["error"] != "alert_not_found" {
		t.Fatalf("ack unknown: status %d body %v", resp.StatusCode, body)
	}
}
