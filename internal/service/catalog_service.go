package service

import (
	"context"
	"strings"

	"github.com/boddenberg/pos-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ListProducts returns the catalog snapshot.
func (s *POSService) ListProducts() []domain.Product {
	return s.snapshot.Current().Products
}

// ListOrders returns the order history snapshot.
func (s *POSService) ListOrders() []domain.Order {
	return s.snapshot.Current().Orders
}

// CreateProduct validates the form, creates the product and reloads data.
func (s *POSService) CreateProduct(ctx context.Context, form domain.ProductForm) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "POS.CreateProduct")
	defer span.End()

	in, err := form.Validate()
	if err != nil {
		return nil, err
	}

	p, err := s.store.CreateProduct(ctx, in)
	if err != nil {
		s.storeFailed("create_product", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("product.id", p.ID))
	s.logger.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))

	s.refreshAfterWrite(ctx, "create_product")
	return p, nil
}

// UpdateProduct validates the form and overwrites every field of the product.
func (s *POSService) UpdateProduct(ctx context.Context, id string, form domain.ProductForm) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "POS.UpdateProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	if strings.TrimSpace(id) == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "product id is required"}
	}
	in, err := form.Validate()
	if err != nil {
		return nil, err
	}

	p, err := s.store.UpdateProduct(ctx, id, in.Patch())
	if err != nil {
		s.storeFailed("update_product", err)
		return nil, err
	}
	s.logger.Info("product updated", zap.String("product_id", id))

	s.refreshAfterWrite(ctx, "update_product")
	return p, nil
}

// DeleteProduct removes the product. Orders that sold it are kept.
func (s *POSService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "POS.DeleteProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	if strings.TrimSpace(id) == "" {
		return &domain.ErrValidation{Field: "id", Message: "product id is required"}
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		s.storeFailed("delete_product", err)
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))

	s.refreshAfterWrite(ctx, "delete_product")
	return nil
}

func (s *POSService) storeFailed(op string, err error) {
	s.metrics.IncrStoreError(op)
	s.logger.Error("store call failed", zap.String("op", op), zap.Error(err))
}
