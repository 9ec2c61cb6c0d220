package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/cart"
	"github.com/boddenberg/pos-bfa-go/internal/domain"
	"github.com/boddenberg/pos-bfa-go/internal/handler"
	"github.com/boddenberg/pos-bfa-go/internal/infra/amqp"
	"github.com/boddenberg/pos-bfa-go/internal/infra/cache"
	"github.com/boddenberg/pos-bfa-go/internal/infra/client"
	"github.com/boddenberg/pos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pos-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/pos-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/pos-bfa-go/internal/port"
	"github.com/boddenberg/pos-bfa-go/internal/service"
	"github.com/boddenberg/pos-bfa-go/internal/snapshot"

	"go.uber.org/zap"
)

func newRouterFor(t *testing.T, store port.CatalogStore) (http.Handler, *service.POSService) {
	t.Helper()
	metrics := observability.NewMetrics()
	svc := service.NewPOSService(
		store,
		snapshot.NewHolder(zap.NewNop()),
		cache.New[*cart.Cart](time.Hour),
		cache.New[*domain.SalesReport](time.Hour),
		amqp.Noop{},
		metrics,
		zap.NewNop(),
	)
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	return handler.NewRouter(svc, metrics, zap.NewNop()), svc
}

// fakeStoreAPI mimics the store's REST API: envelope responses, orders
// listed with "order_items".
type fakeStoreAPI struct {
	mu              sync.Mutex
	products        []domain.Product
	orders          []map[string]any
	idempotencyKeys []string
	orderDelay      time.Duration
}

func (f *fakeStoreAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reply := func(status int, data any, msg string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data, "message": msg})
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "database": "connected"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/products":
		reply(http.StatusOK, f.products, "")
	case r.Method == http.MethodGet && r.URL.Path == "/api/orders":
		reply(http.StatusOK, f.orders, "")
	case r.Method == http.MethodPost && r.URL.Path == "/api/orders":
		f.idempotencyKeys = append(f.idempotencyKeys, r.Header.Get("Idempotency-Key"))
		var req domain.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			reply(http.StatusBadRequest, nil, "invalid body")
			return
		}
		for _, item := range req.Items {
			for i := range f.products {
				if f.products[i].ID != item.ProductID {
					continue
				}
				if f.products[i].Stock < item.Quantity {
					reply(http.StatusBadRequest, nil, "Insufficient stock for "+f.products[i].Name)
					return
				}
			}
		}
		for _, item := range req.Items {
			for i := range f.products {
				if f.products[i].ID == item.ProductID {
					f.products[i].Stock -= item.Quantity
				}
			}
		}
		id := fmt.Sprintf("order-%d", len(f.orders)+1)
		f.orders = append(f.orders, map[string]any{
			"id":           id,
			"total_amount": req.TotalAmount,
			"created_at":   "2024-06-10T09:30:00.000Z",
			"order_items":  req.Items,
		})
		time.Sleep(f.orderDelay)
		reply(http.StatusCreated, map[string]string{"id": id}, "Order created")
	default:
		reply(http.StatusNotFound, nil, "not found")
	}
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_RESTStore runs the full flow against a fake store API.
func TestIntegration_RESTStore(t *testing.T) {
	api := &fakeStoreAPI{
		products: []domain.Product{
			{ID: "p1", Name: "Es Teh", Price: 5000, Stock: 3, Category: domain.CategoryDrink},
			{ID: "p2", Name: "Nasi Goreng", Price: 15000, Stock: 1, Category: domain.CategoryFood},
		},
	}
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := resilience.Config{MaxAttempts: 3, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4}
	store := client.NewStoreClient(
		&http.Client{Timeout: 2 * time.Second},
		server.URL,
		resilience.NewCircuitBreaker("integration", client.IsStoreAnswer),
		cfg,
		zap.NewNop(),
	)
	router, svc := newRouterFor(t, store)

	postJSON(t, router, "/v1/terminals/till-1/cart/items", map[string]string{"product_id": "p1"})
	postJSON(t, router, "/v1/terminals/till-1/cart/items", map[string]string{"product_id": "p1"})
	postJSON(t, router, "/v1/terminals/till-1/cart/items", map[string]string{"product_id": "p2"})

	rec := postJSON(t, router, "/v1/terminals/till-1/cart/checkout", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var receipt domain.Receipt
	json.NewDecoder(rec.Body).Decode(&receipt)
	if receipt.TotalAmount != 25000 {
		t.Errorf("expected total 25000, got %f", receipt.TotalAmount)
	}
	if len(api.idempotencyKeys) != 1 || api.idempotencyKeys[0] == "" {
		t.Errorf("expected one idempotency key, got %v", api.idempotencyKeys)
	}

	// Data reloaded after checkout: stock decremented, order normalised.
	orders := svc.ListOrders()
	if len(orders) != 1 || len(orders[0].Items) != 2 {
		t.Fatalf("expected 1 order with 2 lines, got %+v", orders)
	}
	for _, p := range svc.ListProducts() {
		if p.ID == "p2" && p.Stock != 0 {
			t.Errorf("expected p2 sold out, got stock %d", p.Stock)
		}
	}

	// Sold-out product cannot be added again.
	rec = postJSON(t, router, "/v1/terminals/till-1/cart/items", map[string]string{"product_id": "p2"})
	var view domain.CartView
	json.NewDecoder(rec.Body).Decode(&view)
	if view.Count != 0 {
		t.Errorf("expected sold-out product ignored, got %d units", view.Count)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/reports?date=2024-06-10&month=6&year=2024", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var report domain.SalesReport
	json.NewDecoder(rec.Body).Decode(&report)
	if report.Daily.Revenue != 25000 || report.Monthly.OrderCount != 1 {
		t.Errorf("unexpected report totals daily=%f monthly=%d", report.Daily.Revenue, report.Monthly.OrderCount)
	}
	if len(report.TopSellers) != 2 || report.TopSellers[0].ProductID != "p2" {
		t.Errorf("expected Nasi Goreng first by revenue, got %+v", report.TopSellers)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var health domain.HealthStatus
	json.NewDecoder(rec.Body).Decode(&health)
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %s", health.Status)
	}
}

// TestIntegration_CheckoutSurvivesClientDisconnect cancels the request while
// the store is still answering the order call.
func TestIntegration_CheckoutSurvivesClientDisconnect(t *testing.T) {
	api := &fakeStoreAPI{
		products: []domain.Product{
			{ID: "p1", Name: "Es Teh", Price: 5000, Stock: 3, Category: domain.CategoryDrink},
		},
		orderDelay: 100 * time.Millisecond,
	}
	server := httptest.NewServer(api)
	defer server.Close()

	cfg := resilience.Config{MaxAttempts: 3, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4}
	store := client.NewStoreClient(
		&http.Client{Timeout: 2 * time.Second},
		server.URL,
		resilience.NewCircuitBreaker("integration-disconnect", client.IsStoreAnswer),
		cfg,
		zap.NewNop(),
	)
	router, svc := newRouterFor(t, store)

	postJSON(t, router, "/v1/terminals/till-1/cart/items", map[string]string{"product_id": "p1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/terminals/till-1/cart/checkout", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	api.mu.Lock()
	created := len(api.orders)
	api.mu.Unlock()
	if created != 1 {
		t.Errorf("expected 1 order at the store, got %d", created)
	}
	view, _ := svc.GetCart("till-1")
	if view.Count != 0 {
		t.Errorf("expected cart cleared after committed order, got %d units", view.Count)
	}
}

// TestIntegration_SQLiteStore runs two terminals against the embedded store.
func TestIntegration_SQLiteStore(t *testing.T) {
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "pos.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	router, _ := newRouterFor(t, store)

	rec := postJSON(t, router, "/v1/products", map[string]string{
		"name": "Kopi Susu", "price": "18000", "stock": "2", "category": "minuman",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var product domain.Product
	json.NewDecoder(rec.Body).Decode(&product)

	// Both terminals see stock 2 and each holds 2 units.
	for _, till := range []string{"till-1", "till-2"} {
		postJSON(t, router, "/v1/terminals/"+till+"/cart/items", map[string]string{"product_id": product.ID})
		postJSON(t, router, "/v1/terminals/"+till+"/cart/items", map[string]string{"product_id": product.ID})
	}

	rec = postJSON(t, router, "/v1/terminals/till-1/cart/checkout", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// The second terminal's cart is capped to the reloaded stock (0) and
	// therefore empty: nothing is submitted.
	rec = postJSON(t, router, "/v1/terminals/till-2/cart/checkout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second checkout: expected 200 (empty cart), got %d: %s", rec.Code, rec.Body.String())
	}

	today := time.Now().UTC()
	path := fmt.Sprintf("/v1/reports?date=%s&month=%d&year=%d", today.Format("2006-01-02"), int(today.Month()), today.Year())
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var report domain.SalesReport
	json.NewDecoder(rec.Body).Decode(&report)
	if report.Daily.Revenue != 36000 || report.Daily.OrderCount != 1 {
		t.Errorf("expected one order of 36000 today, got %d orders for %f", report.Daily.OrderCount, report.Daily.Revenue)
	}
}
