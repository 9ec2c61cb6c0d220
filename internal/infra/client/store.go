// Package client talks to the remote catalog/order store over its REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/pos-bfa-go/internal/domain"
	"github.com/boddenberg/pos-bfa-go/internal/infra/resilience"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// StoreClient implements port.CatalogStore against the store's REST API.
//
// Every call goes through a bulkhead, a circuit breaker and a retry loop.
// Only transport failures are retried; any HTTP answer from the store,
// successful or not, ends the loop.
type StoreClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewStoreClient creates a new StoreClient. The http client's Timeout bounds
// each attempt.
func NewStoreClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *StoreClient {
	return &StoreClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		logger:     logger,
	}
}

// IsStoreAnswer reports whether err is an answer from the store rather than a
// transport failure. Used as the circuit breaker's success predicate.
func IsStoreAnswer(err error) bool {
	var rejected *domain.ErrStoreRejected
	return err == nil || errors.As(err, &rejected)
}

// envelope is the store's standard response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// send performs one logical store call and returns the body of a 2xx answer.
func (c *StoreClient) send(ctx context.Context, op, method, path string, payload []byte, header http.Header) ([]byte, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrStoreUnavailable{Op: op, Err: err}
	}
	defer c.bulkhead.Release()

	var body []byte
	attempt := 0
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			attempt++
			b, err := c.attempt(ctx, op, method, path, payload, header)
			if err != nil {
				var rejected *domain.ErrStoreRejected
				if errors.As(err, &rejected) {
					return resilience.Permanent(err)
				}
				c.logger.Warn("store: attempt failed",
					zap.String("op", op),
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", c.cfg.MaxAttempts),
					zap.Error(err),
				)
				return err
			}
			body = b
			return nil
		})
	})
	if err == nil {
		return body, nil
	}

	var rejected *domain.ErrStoreRejected
	if errors.As(err, &rejected) {
		return nil, rejected
	}
	c.logger.Error("store: unavailable",
		zap.String("op", op),
		zap.Int("attempts", attempt),
		zap.Error(err),
	)
	return nil, &domain.ErrStoreUnavailable{Op: op, Err: err}
}

// attempt executes a single HTTP round-trip.
func (c *StoreClient) attempt(ctx context.Context, op, method, path string, payload []byte, header http.Header) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		msg := "API request failed"
		if json.Unmarshal(body, &env) == nil && env.Message != "" {
			msg = env.Message
		}
		c.logger.Warn("store: non-2xx response",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return nil, &domain.ErrStoreRejected{Op: op, Status: resp.StatusCode, Message: msg}
	}

	c.logger.Debug("store: request OK",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

// call sends a request whose answer uses the {success, data, message}
// envelope and decodes data into out.
func (c *StoreClient) call(ctx context.Context, op, method, path string, in, out any, header http.Header) error {
	ctx, span := tracer.Start(ctx, "StoreClient."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("store.path", path),
	)

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		payload = b
	}

	body, err := c.send(ctx, op, method, path, payload, header)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &domain.ErrStoreRejected{Op: op, Status: http.StatusBadGateway, Message: fmt.Sprintf("invalid store response: %v", err)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.ErrStoreRejected{Op: op, Status: http.StatusBadGateway, Message: fmt.Sprintf("invalid store data: %v", err)}
	}
	return nil
}

// --- Products ---

// ListProducts fetches the whole catalog.
func (c *StoreClient) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.call(ctx, "list_products", http.MethodGet, "/api/products", nil, &products, nil); err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// CreateProduct adds a product to the catalog.
func (c *StoreClient) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	var p domain.Product
	if err := c.call(ctx, "create_product", http.MethodPost, "/api/products", in, &p, nil); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct changes the given fields of a product.
func (c *StoreClient) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	var p domain.Product
	path := "/api/products/" + url.PathEscape(id)
	if err := c.call(ctx, "update_product", http.MethodPut, path, patch, &p, nil); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct removes a product from the catalog.
func (c *StoreClient) DeleteProduct(ctx context.Context, id string) error {
	path := "/api/products/" + url.PathEscape(id)
	return c.call(ctx, "delete_product", http.MethodDelete, path, nil, nil, nil)
}

// --- Orders ---

// ListOrders fetches the order history. Line items are normalised by
// domain.Order regardless of the field name the store uses.
func (c *StoreClient) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.call(ctx, "list_orders", http.MethodGet, "/api/orders", nil, &orders, nil); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// CreateOrder submits a checkout. The store inserts the order and reduces
// stock atomically. One idempotency key is sent with every attempt so a
// retried submission cannot create the order twice.
func (c *StoreClient) CreateOrder(ctx context.Context, req *domain.CreateOrderRequest) (string, error) {
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.New().String())

	var created struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, "create_order", http.MethodPost, "/api/orders", req, &created, header); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", &domain.ErrStoreRejected{Op: "create_order", Status: http.StatusBadGateway, Message: "store did not return an order id"}
	}
	return created.ID, nil
}

// --- Health ---

// HealthCheck reports online only when the API is healthy and its database connected.
func (c *StoreClient) HealthCheck(ctx context.Context) domain.StoreStatus {
	ctx, span := tracer.Start(ctx, "StoreClient.health")
	defer span.End()

	body, err := c.send(ctx, "health", http.MethodGet, "/health", nil, nil)
	if err != nil {
		return domain.StoreOffline
	}
	var health struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return domain.StoreOffline
	}
	if health.Status == "healthy" && health.Database == "connected" {
		return domain.StoreOnline
	}
	return domain.StoreOffline
}
