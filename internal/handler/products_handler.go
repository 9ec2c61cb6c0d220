package handler

import (
	"net/http"

	"github.com/boddenberg/pos-bfa-go/internal/domain"
	"github.com/boddenberg/pos-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Catalog & orders
// ============================================================

func listProductsHandler(svc *service.POSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"products": svc.ListProducts()})
	}
}

func listOrdersHandler(svc *service.POSService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"orders": svc.ListOrders()})
	}
}

func createProductHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/products")
		defer span.End()

		var form domain.ProductForm
		if err := decodeJSON(r, &form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p, err := svc.CreateProduct(ctx, form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func updateProductHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/products/{productId}")
		defer span.End()

		productID := chi.URLParam(r, "productId")
		span.SetAttributes(attribute.String("product.id", productID))

		var form domain.ProductForm
		if err := decodeJSON(r, &form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p, err := svc.UpdateProduct(ctx, productID, form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func deleteProductHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/products/{productId}")
		defer span.End()

		productID := chi.URLParam(r, "productId")
		span.SetAttributes(attribute.String("product.id", productID))

		if err := svc.DeleteProduct(ctx, productID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "product deleted", ID: productID})
	}
}
