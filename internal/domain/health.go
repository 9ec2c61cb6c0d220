package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// StoreStatus is the reachability of the catalog/order store.
type StoreStatus string

const (
	StoreOnline  StoreStatus = "online"
	StoreOffline StoreStatus = "offline"
)

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// SnapshotStatus is returned by GET /v1/status.
type SnapshotStatus struct {
	Store        StoreStatus `json:"store"`
	Version      uint64      `json:"version"`
	LoadedAt     string      `json:"loaded_at,omitempty"`
	ProductCount int         `json:"product_count"`
	OrderCount   int         `json:"order_count"`
	LastError    string      `json:"last_error,omitempty"`
}

// POSMetrics is returned by GET /v1/metrics/pos.
type POSMetrics struct {
	CheckoutsCompleted int64   `json:"checkoutsCompleted"`
	CheckoutsFailed    int64   `json:"checkoutsFailed"`
	CheckoutErrorRate  float64 `json:"checkoutErrorRate"`
	StoreErrors        int64   `json:"storeErrors"`
	ReportCacheHitRate float64 `json:"reportCacheHitRate"`
	Period             string  `json:"period"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
