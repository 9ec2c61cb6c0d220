// Package sqlite is an embedded catalog/order store backed by SQLite.
// It implements port.CatalogStore for single-site deployments that do not
// run the remote store API.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlite")

// timestampLayout matches the ISO-8601 form the remote store returns.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Store implements port.CatalogStore on a SQLite database.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces the clock used to stamp new rows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string, logger *zap.Logger, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps checkout transactions serialised.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	logger.Info("sqlite store ready", zap.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

func unavailable(op string, err error) error {
	return &domain.ErrStoreUnavailable{Op: op, Err: err}
}

func rejected(op string, status int, format string, args ...any) error {
	return &domain.ErrStoreRejected{Op: op, Status: status, Message: fmt.Sprintf(format, args...)}
}

// --- Products ---

const productColumns = "id, name, price, stock, category, image_url, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var image sql.NullString
	var category string
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &category, &image, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	p.Category = domain.Category(category)
	if image.Valid {
		v := image.String
		p.ImageURL = &v
	}
	return p, nil
}

// ListProducts returns the whole catalog, oldest first.
func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListProducts")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY created_at, name")
	if err != nil {
		return nil, unavailable("list_products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, unavailable("list_products", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list_products", err)
	}
	return products, nil
}

func (s *Store) getProduct(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string) (*domain.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts a new product with a generated id.
func (s *Store) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateProduct")
	defer span.End()

	if !in.Category.Valid() {
		return nil, rejected("create_product", http.StatusBadRequest, "invalid category: %s", in.Category)
	}

	p := domain.Product{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Price:     in.Price,
		Stock:     in.Stock,
		Category:  in.Category,
		ImageURL:  in.ImageURL,
		CreatedAt: s.timestamp(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Price, p.Stock, string(p.Category), p.ImageURL, p.CreatedAt,
	)
	if err != nil {
		return nil, unavailable("create_product", err)
	}
	span.SetAttributes(attribute.String("product.id", p.ID))
	return &p, nil
}

// UpdateProduct applies the non-nil fields of patch. An empty image URL clears it.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	if patch.Stock != nil {
		sets = append(sets, "stock = ?")
		args = append(args, *patch.Stock)
	}
	if patch.Category != nil {
		if !patch.Category.Valid() {
			return nil, rejected("update_product", http.StatusBadRequest, "invalid category: %s", *patch.Category)
		}
		sets = append(sets, "category = ?")
		args = append(args, string(*patch.Category))
	}
	if patch.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		if *patch.ImageURL == "" {
			args = append(args, nil)
		} else {
			args = append(args, *patch.ImageURL)
		}
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, "UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return nil, unavailable("update_product", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, rejected("update_product", http.StatusNotFound, "Product not found")
		}
	}

	p, err := s.getProduct(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rejected("update_product", http.StatusNotFound, "Product not found")
	}
	if err != nil {
		return nil, unavailable("update_product", err)
	}
	return p, nil
}

// DeleteProduct removes a product. Past orders keep their lines.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return unavailable("delete_product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rejected("delete_product", http.StatusNotFound, "Product not found")
	}
	return nil
}

// --- Orders ---

// ListOrders returns the order history, newest first, with its line items.
func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListOrders")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, total_amount, created_at FROM orders ORDER BY created_at DESC, id")
	if err != nil {
		return nil, unavailable("list_orders", err)
	}
	orders := []domain.Order{}
	index := make(map[string]int)
	for rows.Next() {
		var o domain.Order
		var userID sql.NullString
		if err := rows.Scan(&o.ID, &userID, &o.TotalAmount, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, unavailable("list_orders", err)
		}
		if userID.Valid {
			v := userID.String
			o.UserID = &v
		}
		o.Items = []domain.OrderLine{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, unavailable("list_orders", err)
	}

	itemRows, err := s.db.QueryContext(ctx, "SELECT order_id, product_id, quantity, price FROM order_items ORDER BY id")
	if err != nil {
		return nil, unavailable("list_orders", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var orderID string
		var item domain.OrderLine
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, unavailable("list_orders", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, unavailable("list_orders", err)
	}
	return orders, nil
}

// CreateOrder inserts the order and decrements stock in one transaction.
// Any line that is invalid or exceeds stock rolls everything back.
func (s *Store) CreateOrder(ctx context.Context, req *domain.CreateOrderRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return "", rejected("create_order", http.StatusBadRequest, "Order must contain at least one item")
	}
	var sum float64
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return "", rejected("create_order", http.StatusBadRequest, "Invalid quantity for product %s", item.ProductID)
		}
		sum += item.Price * float64(item.Quantity)
	}
	if math.Abs(sum-req.TotalAmount) > 0.005 {
		return "", rejected("create_order", http.StatusBadRequest, "total_amount %.2f does not match items total %.2f", req.TotalAmount, sum)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", unavailable("create_order", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range req.Items {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?",
			item.Quantity, item.ProductID, item.Quantity,
		)
		if err != nil {
			return "", unavailable("create_order", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			continue
		}

		p, err := s.getProduct(ctx, tx, item.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", rejected("create_order", http.StatusNotFound, "Product %s not found", item.ProductID)
		}
		if err != nil {
			return "", unavailable("create_order", err)
		}
		s.logger.Warn("sqlite: checkout rejected, insufficient stock",
			zap.String("product_id", p.ID),
			zap.Int("stock", p.Stock),
			zap.Int("requested", item.Quantity),
		)
		return "", rejected("create_order", http.StatusConflict, "Insufficient stock for %s (available: %d)", p.Name, p.Stock)
	}

	orderID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, total_amount, created_at) VALUES (?, ?, ?, ?)",
		orderID, req.UserID, req.TotalAmount, s.timestamp(),
	); err != nil {
		return "", unavailable("create_order", err)
	}
	for _, item := range req.Items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)",
			orderID, item.ProductID, item.Quantity, item.Price,
		); err != nil {
			return "", unavailable("create_order", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", unavailable("create_order", err)
	}

	span.SetAttributes(attribute.String("order.id", orderID), attribute.Int("order.lines", len(req.Items)))
	s.logger.Info("sqlite: order created",
		zap.String("order_id", orderID),
		zap.Float64("total_amount", req.TotalAmount),
		zap.Int("lines", len(req.Items)),
	)
	return orderID, nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) domain.StoreStatus {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.StoreOffline
	}
	return domain.StoreOnline
}
