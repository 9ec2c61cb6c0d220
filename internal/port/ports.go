// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/pos-bfa-go/internal/domain"
)

// CatalogStore is the catalog/order store the POS works against.
// Implemented by the REST client and by the embedded SQLite store.
type CatalogStore interface {
	// Products
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// Orders
	ListOrders(ctx context.Context) ([]domain.Order, error)

	// CreateOrder persists the order and decrements the stock of every line
	// in one atomic step. It fails without side effects when a line asks for
	// more than the current stock.
	CreateOrder(ctx context.Context, req *domain.CreateOrderRequest) (string, error)

	HealthCheck(ctx context.Context) domain.StoreStatus
}

// OrderEventPublisher announces confirmed orders to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, terminalID string, receipt *domain.Receipt) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	// GetOrCreate returns the live entry for key, creating it with create
	// when missing, and restarts its TTL.
	GetOrCreate(key string, create func() T) T
	Len() int
}
