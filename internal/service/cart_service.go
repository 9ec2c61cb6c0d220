package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/cart"
	"github.com/boddenberg/pos-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (s *POSService) cartFor(terminalID string) *cart.Cart {
	c := s.carts.GetOrCreate(terminalID, func() *cart.Cart {
		return cart.New(s.snapshot)
	})
	s.metrics.SetOpenCarts(s.carts.Len())
	return c
}

func validateTerminal(terminalID string) error {
	if strings.TrimSpace(terminalID) == "" {
		return &domain.ErrValidation{Field: "terminal_id", Message: "terminal id is required"}
	}
	return nil
}

// GetCart returns the terminal's cart. A terminal without a cart gets an
// empty view; no cart is created.
func (s *POSService) GetCart(terminalID string) (*domain.CartView, error) {
	if err := validateTerminal(terminalID); err != nil {
		return nil, err
	}
	c, ok := s.carts.Get(terminalID)
	if !ok {
		return &domain.CartView{TerminalID: terminalID, Lines: []domain.CartLineView{}}, nil
	}
	return c.View(terminalID), nil
}

// AddItem adds one unit of a product to the terminal's cart.
func (s *POSService) AddItem(terminalID, productID string) (*domain.CartView, error) {
	if err := validateTerminal(terminalID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(productID) == "" {
		return nil, &domain.ErrValidation{Field: "product_id", Message: "product_id is required"}
	}

	c := s.cartFor(terminalID)
	if err := c.AddItem(productID); err != nil {
		return nil, err
	}
	s.metrics.IncrCartOperation("add")
	return c.View(terminalID), nil
}

// AdjustQuantity changes a line's quantity by delta.
func (s *POSService) AdjustQuantity(terminalID, productID string, delta int) (*domain.CartView, error) {
	if err := validateTerminal(terminalID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, &domain.ErrValidation{Field: "delta", Message: "delta must not be zero"}
	}

	c := s.cartFor(terminalID)
	if err := c.AdjustQuantity(productID, delta); err != nil {
		return nil, err
	}
	s.metrics.IncrCartOperation("adjust")
	return c.View(terminalID), nil
}

// ClearCart empties the terminal's cart.
func (s *POSService) ClearCart(terminalID string) (*domain.CartView, error) {
	if err := validateTerminal(terminalID); err != nil {
		return nil, err
	}
	c, ok := s.carts.Get(terminalID)
	if !ok {
		return &domain.CartView{TerminalID: terminalID, Lines: []domain.CartLineView{}}, nil
	}
	if err := c.Clear(); err != nil {
		return nil, err
	}
	s.metrics.IncrCartOperation("clear")
	return c.View(terminalID), nil
}

// Checkout submits the terminal's cart as one order. An empty cart returns
// (nil, nil). After a confirmed order the snapshot is reloaded and an
// order.created event is published; neither step can fail the checkout.
func (s *POSService) Checkout(ctx context.Context, terminalID string) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "POS.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("terminal.id", terminalID))

	if err := validateTerminal(terminalID); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("checkout", time.Since(start))
	}()

	c, ok := s.carts.Get(terminalID)
	if !ok {
		return nil, nil
	}

	// A committed order must survive a client hanging up mid-request.
	ctx = context.WithoutCancel(ctx)

	receipt, err := c.Checkout(ctx, s.store)
	if err != nil {
		s.recordCheckoutFailure(terminalID, err)
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}

	s.metrics.IncrCheckout("success")
	span.SetAttributes(attribute.String("order.id", receipt.OrderID))
	s.logger.Info("checkout completed",
		zap.String("terminal_id", terminalID),
		zap.String("order_id", receipt.OrderID),
		zap.Float64("total_amount", receipt.TotalAmount),
		zap.Int("lines", len(receipt.Items)),
	)

	s.refreshAfterWrite(ctx, "checkout")

	if err := s.events.PublishOrderCreated(ctx, terminalID, receipt); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("order_id", receipt.OrderID),
			zap.Error(err),
		)
	}

	return receipt, nil
}

func (s *POSService) recordCheckoutFailure(terminalID string, err error) {
	var (
		rejected    *domain.ErrStoreRejected
		unavailable *domain.ErrStoreUnavailable
	)
	switch {
	case errors.Is(err, domain.ErrCheckoutInProgress):
		s.logger.Warn("checkout already in progress", zap.String("terminal_id", terminalID))
		return
	case errors.As(err, &rejected):
		s.metrics.IncrCheckout("rejected")
	case errors.As(err, &unavailable):
		s.metrics.IncrCheckout("unavailable")
		s.metrics.IncrStoreError("create_order")
	default:
		s.metrics.IncrCheckout("error")
	}
	s.logger.Error("checkout failed, cart kept",
		zap.String("terminal_id", terminalID),
		zap.Error(err),
	)
}
