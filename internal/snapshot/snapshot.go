// Package snapshot holds the catalog and order history most recently loaded
// from the store. A snapshot is immutable once published; Refresh replaces it
// wholesale so readers never observe a half-loaded state.
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("snapshot")

// Loader is the part of the store a refresh reads from.
type Loader interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

// Snapshot is one consistent view of the catalog and order history.
type Snapshot struct {
	Products []domain.Product
	Orders   []domain.Order
	Version  uint64
	LoadedAt time.Time

	index map[string]int
}

func newSnapshot(products []domain.Product, orders []domain.Order, version uint64, at time.Time) *Snapshot {
	if products == nil {
		products = []domain.Product{}
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}
	return &Snapshot{
		Products: products,
		Orders:   orders,
		Version:  version,
		LoadedAt: at,
		index:    index,
	}
}

// Product looks up a product by id.
func (s *Snapshot) Product(id string) (domain.Product, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.Products[i], true
}

// Holder publishes the current snapshot and tracks store reachability.
type Holder struct {
	current atomic.Pointer[Snapshot]

	refreshMu sync.Mutex

	statusMu  sync.RWMutex
	store     domain.StoreStatus
	lastError string

	now    func() time.Time
	logger *zap.Logger
}

// NewHolder creates a holder with an empty version-0 snapshot.
// The store is reported offline until the first successful refresh.
func NewHolder(logger *zap.Logger) *Holder {
	h := &Holder{
		store:  domain.StoreOffline,
		now:    time.Now,
		logger: logger,
	}
	h.current.Store(newSnapshot(nil, nil, 0, time.Time{}))
	return h
}

// Current returns the published snapshot.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Product resolves id against the current snapshot.
func (h *Holder) Product(id string) (domain.Product, bool) {
	return h.Current().Product(id)
}

// Refresh loads products and orders concurrently and publishes them together.
// Concurrent calls are serialised. On failure the previous snapshot stays
// published and the store is marked offline.
func (h *Holder) Refresh(ctx context.Context, loader Loader) (*Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Snapshot.Refresh")
	defer span.End()

	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	var (
		products []domain.Product
		orders   []domain.Order
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := loader.ListProducts(gCtx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		products = p
		return nil
	})
	g.Go(func() error {
		o, err := loader.ListOrders(gCtx)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		orders = o
		return nil
	})

	if err := g.Wait(); err != nil {
		h.setStatus(domain.StoreOffline, err.Error())
		h.logger.Warn("snapshot refresh failed, keeping previous data",
			zap.Uint64("version", h.Current().Version),
			zap.Error(err),
		)
		return nil, err
	}

	next := newSnapshot(products, orders, h.Current().Version+1, h.now())
	h.current.Store(next)
	h.setStatus(domain.StoreOnline, "")

	span.SetAttributes(
		attribute.Int64("snapshot.version", int64(next.Version)),
		attribute.Int("snapshot.products", len(next.Products)),
		attribute.Int("snapshot.orders", len(next.Orders)),
	)
	h.logger.Debug("snapshot refreshed",
		zap.Uint64("version", next.Version),
		zap.Int("products", len(next.Products)),
		zap.Int("orders", len(next.Orders)),
	)
	return next, nil
}

func (h *Holder) setStatus(status domain.StoreStatus, lastError string) {
	h.statusMu.Lock()
	h.store = status
	h.lastError = lastError
	h.statusMu.Unlock()
}

// Status reports the store status and what the current snapshot holds.
func (h *Holder) Status() *domain.SnapshotStatus {
	snap := h.Current()

	h.statusMu.RLock()
	defer h.statusMu.RUnlock()

	st := &domain.SnapshotStatus{
		Store:        h.store,
		Version:      snap.Version,
		ProductCount: len(snap.Products),
		OrderCount:   len(snap.Orders),
		LastError:    h.lastError,
	}
	if !snap.LoadedAt.IsZero() {
		st.LoadedAt = snap.LoadedAt.UTC().Format(time.RFC3339)
	}
	return st
}
