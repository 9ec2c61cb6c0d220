package observability

import (
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the POS service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	cartOperations  *prometheus.CounterVec
	snapshotVersion prometheus.Gauge
	openCarts       prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pos_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_store_errors_total",
				Help: "Total failed calls to the catalog/order store.",
			},
			[]string{"op"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		checkouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_checkouts_total",
				Help: "Total checkouts by outcome.",
			},
			[]string{"status"},
		),
		cartOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_cart_operations_total",
				Help: "Total cart mutations by kind.",
			},
			[]string{"operation"},
		),
		snapshotVersion: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pos_snapshot_version",
				Help: "Version of the published catalog snapshot.",
			},
		),
		openCarts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pos_open_carts",
				Help: "Carts currently held in memory.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCheckout counts a checkout with status "success", "rejected",
// "unavailable" or "error".
func (m *Metrics) IncrCheckout(status string) {
	m.checkouts.WithLabelValues(status).Inc()
}

// IncrCartOperation counts a cart mutation.
func (m *Metrics) IncrCartOperation(op string) {
	m.cartOperations.WithLabelValues(op).Inc()
}

// SetSnapshotVersion publishes the current snapshot version.
func (m *Metrics) SetSnapshotVersion(v uint64) {
	m.snapshotVersion.Set(float64(v))
}

// SetOpenCarts publishes the number of carts in memory.
func (m *Metrics) SetOpenCarts(n int) {
	m.openCarts.Set(float64(n))
}

// GetPOSSnapshot returns a snapshot of checkout metrics suitable for the
// GET /v1/metrics/pos endpoint.
func (m *Metrics) GetPOSSnapshot() *domain.POSMetrics {
	completed := getCounterValue(m.checkouts, "success")
	failed := getCounterValue(m.checkouts, "rejected") +
		getCounterValue(m.checkouts, "unavailable") +
		getCounterValue(m.checkouts, "error")
	hits := getCounterValue(m.cacheHits, "report")
	misses := getCounterValue(m.cacheMisses, "report")

	errorRate := float64(0)
	if completed+failed > 0 {
		errorRate = failed / (completed + failed)
	}
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.POSMetrics{
		CheckoutsCompleted: int64(completed),
		CheckoutsFailed:    int64(failed),
		CheckoutErrorRate:  errorRate,
		StoreErrors:        int64(sumCounter(m.storeErrors)),
		ReportCacheHitRate: hitRate,
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds up every label combination of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
