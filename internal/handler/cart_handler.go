package handler

import (
	"net/http"

	"github.com/boddenberg/pos-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Terminal carts
// ============================================================

type addItemRequest struct {
	ProductID string `json:"product_id"`
}

type adjustItemRequest struct {
	Delta int `json:"delta"`
}

func getCartHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.GetCart(TerminalIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func clearCartHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.ClearCart(TerminalIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func addItemHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.AddItem(TerminalIDFromContext(r.Context()), req.ProductID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func adjustItemHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustItemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.AdjustQuantity(TerminalIDFromContext(r.Context()), chi.URLParam(r, "productId"), req.Delta)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func checkoutHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/terminals/{terminalId}/cart/checkout")
		defer span.End()

		receipt, err := svc.Checkout(ctx, TerminalIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if receipt == nil {
			writeJSON(w, http.StatusOK, map[string]any{"message": "cart is empty", "receipt": nil})
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}
