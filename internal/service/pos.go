package service

import (
	"context"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/cart"
	"github.com/boddenberg/pos-bfa-go/internal/domain"
	"github.com/boddenberg/pos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pos-bfa-go/internal/port"
	"github.com/boddenberg/pos-bfa-go/internal/snapshot"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/pos")

// POSService orchestrates the terminals' carts, the catalog snapshot, the
// store and the sales reports.
type POSService struct {
	store    port.CatalogStore
	snapshot *snapshot.Holder
	carts    port.Cache[*cart.Cart]
	reports  port.Cache[*domain.SalesReport]
	events   port.OrderEventPublisher
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewPOSService creates the POS service with all dependencies injected.
func NewPOSService(
	store port.CatalogStore,
	holder *snapshot.Holder,
	carts port.Cache[*cart.Cart],
	reports port.Cache[*domain.SalesReport],
	events port.OrderEventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *POSService {
	return &POSService{
		store:    store,
		snapshot: holder,
		carts:    carts,
		reports:  reports,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Refresh reloads the catalog and order history from the store.
func (s *POSService) Refresh(ctx context.Context) (*domain.SnapshotStatus, error) {
	ctx, span := tracer.Start(ctx, "POS.Refresh")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("refresh", time.Since(start))
	}()

	snap, err := s.snapshot.Refresh(ctx, s.store)
	if err != nil {
		s.metrics.IncrStoreError("refresh")
		return s.snapshot.Status(), err
	}
	s.metrics.SetSnapshotVersion(snap.Version)
	return s.snapshot.Status(), nil
}

// refreshAfterWrite reloads data after a successful store write. A failed
// reload is logged; the write itself already succeeded.
func (s *POSService) refreshAfterWrite(ctx context.Context, op string) {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn("reload after write failed",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// Status reports the store status and the loaded snapshot.
func (s *POSService) Status() *domain.SnapshotStatus {
	return s.snapshot.Status()
}

// Health probes the store.
func (s *POSService) Health(ctx context.Context) *domain.HealthStatus {
	ctx, span := tracer.Start(ctx, "POS.Health")
	defer span.End()

	start := time.Now()
	status := s.store.HealthCheck(ctx)
	latency := time.Since(start)

	h := &domain.HealthStatus{
		Status: "healthy",
		Services: []domain.ServiceHealth{{
			Name:        "store",
			Status:      string(status),
			LatencyMs:   latency.Milliseconds(),
			LastChecked: s.now().UTC().Format(time.RFC3339),
		}},
	}
	if status != domain.StoreOnline {
		h.Status = "degraded"
	}
	return h
}
