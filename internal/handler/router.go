package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/domain"
	"github.com/boddenberg/pos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pos-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.POSService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler(svc))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if svc == nil {
		return r
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Store status & data refresh
		// =============================================
		r.Get("/status", statusHandler(svc))
		r.Post("/refresh", refreshHandler(svc, logger))

		// =============================================
		// Catalog
		// =============================================
		r.Get("/products", listProductsHandler(svc))
		r.Post("/products", createProductHandler(svc, logger))
		r.Put("/products/{productId}", updateProductHandler(svc, logger))
		r.Delete("/products/{productId}", deleteProductHandler(svc, logger))

		// =============================================
		// Orders
		// =============================================
		r.Get("/orders", listOrdersHandler(svc))

		// =============================================
		// Terminal carts
		// =============================================
		r.Route("/terminals/{terminalId}/cart", func(r chi.Router) {
			r.Use(TerminalMiddleware(logger))
			r.Get("/", getCartHandler(svc, logger))
			r.Delete("/", clearCartHandler(svc, logger))
			r.Post("/items", addItemHandler(svc, logger))
			r.Patch("/items/{productId}", adjustItemHandler(svc, logger))
			r.Post("/checkout", checkoutHandler(svc, logger))
		})

		// =============================================
		// Reports & metrics
		// =============================================
		r.Get("/reports", reportHandler(svc, logger))
		r.Get("/metrics/pos", posMetricsHandler(svc))
	})

	return r
}

func healthzHandler(svc *service.POSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "pos-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}
		overallStatus := "healthy"

		if svc != nil {
			h := svc.Health(r.Context())
			services = append(services, h.Services...)
			overallStatus = h.Status
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

// readyzHandler reports ready once a snapshot has been loaded.
func readyzHandler(svc *service.POSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc != nil && svc.Status().Version == 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statusHandler(svc *service.POSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	}
}

func refreshHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/refresh")
		defer span.End()

		status, err := svc.Refresh(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func posMetricsHandler(svc *service.POSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Metrics())
	}
}
