// Package cart holds the in-memory cart of a POS terminal.
//
// Quantities are capped at the stock of the current catalog snapshot. The cap
// is a convenience for the operator only: the store decrements stock
// atomically on checkout and is the authority when terminals race.
package cart

import (
	"context"
	"sync"

	"github.com/boddenberg/pos-bfa-go/internal/domain"
)

// Catalog resolves products against the current catalog snapshot.
type Catalog interface {
	Product(id string) (domain.Product, bool)
}

// OrderCreator persists an order and reduces stock in one atomic step.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *domain.CreateOrderRequest) (string, error)
}

type line struct {
	productID string
	qty       int
	price     float64 // last price seen in the catalog
}

// Cart is the working set of one terminal. At most one line exists per
// product and a line never holds a quantity of zero.
type Cart struct {
	mu          sync.Mutex
	catalog     Catalog
	lines       []*line
	checkingOut bool
}

// New creates an empty cart reading products from catalog.
func New(catalog Catalog) *Cart {
	return &Cart{catalog: catalog}
}

func (c *Cart) find(productID string) (int, *line) {
	for i, l := range c.lines {
		if l.productID == productID {
			return i, l
		}
	}
	return -1, nil
}

// reconcileLocked re-applies the stock cap after the catalog changed under
// the cart. Lines of products no longer in the catalog are kept; the store
// rejects them on checkout.
func (c *Cart) reconcileLocked() {
	if c.checkingOut {
		return
	}
	kept := c.lines[:0]
	for _, l := range c.lines {
		if p, ok := c.catalog.Product(l.productID); ok {
			l.price = p.Price
			if l.qty > p.Stock {
				l.qty = p.Stock
			}
		}
		if l.qty > 0 {
			kept = append(kept, l)
		}
	}
	c.lines = kept
}

// AddItem puts one more unit of the product in the cart. Unknown products,
// products without stock and lines already at stock are left as they are.
func (c *Cart) AddItem(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return domain.ErrCheckoutInProgress
	}
	c.reconcileLocked()

	p, ok := c.catalog.Product(productID)
	if !ok || p.Stock <= 0 {
		return nil
	}

	_, l := c.find(productID)
	if l == nil {
		c.lines = append(c.lines, &line{productID: productID, qty: 1, price: p.Price})
		return nil
	}
	if l.qty >= p.Stock {
		return nil
	}
	l.qty++
	return nil
}

// AdjustQuantity adds delta to the product's line, capped at current stock.
// A line that drops to zero or below is removed.
func (c *Cart) AdjustQuantity(productID string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return domain.ErrCheckoutInProgress
	}
	c.reconcileLocked()

	i, l := c.find(productID)
	if l == nil {
		return nil
	}

	qty := l.qty + delta
	if p, ok := c.catalog.Product(productID); ok && qty > p.Stock {
		qty = p.Stock
	}
	if qty <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return nil
	}
	l.qty = qty
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return domain.ErrCheckoutInProgress
	}
	c.lines = nil
	return nil
}

// Total is the sum of quantity × current catalog price over all lines.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconcileLocked()
	return c.totalLocked()
}

func (c *Cart) totalLocked() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.price * float64(l.qty)
	}
	return total
}

// Count is the number of units in the cart.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconcileLocked()
	n := 0
	for _, l := range c.lines {
		n += l.qty
	}
	return n
}

// Lines returns the cart lines in the order they were added.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconcileLocked()
	out := make([]domain.CartLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, domain.CartLine{ProductID: l.productID, Quantity: l.qty})
	}
	return out
}

// View joins the lines with the catalog for display.
func (c *Cart) View(terminalID string) *domain.CartView {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconcileLocked()
	view := &domain.CartView{
		TerminalID: terminalID,
		Lines:      make([]domain.CartLineView, 0, len(c.lines)),
	}
	for _, l := range c.lines {
		lv := domain.CartLineView{
			ProductID: l.productID,
			Price:     l.price,
			Quantity:  l.qty,
			Subtotal:  l.price * float64(l.qty),
		}
		if p, ok := c.catalog.Product(l.productID); ok {
			lv.Name = p.Name
			lv.Stock = p.Stock
			lv.ImageURL = p.ImageURL
			lv.Category = p.Category
		}
		view.Lines = append(view.Lines, lv)
		view.Total += lv.Subtotal
		view.Count += l.qty
	}
	return view
}

// Checkout submits the cart to the store as one order.
//
// An empty cart returns (nil, nil) without calling the store. On success the
// cart is emptied and the receipt asks the caller to reload its data. On
// failure the cart is left exactly as it was and the store error is returned
// unchanged. Only one checkout per cart may be outstanding.
func (c *Cart) Checkout(ctx context.Context, creator OrderCreator) (*domain.Receipt, error) {
	c.mu.Lock()
	if c.checkingOut {
		c.mu.Unlock()
		return nil, domain.ErrCheckoutInProgress
	}
	c.reconcileLocked()
	if len(c.lines) == 0 {
		c.mu.Unlock()
		return nil, nil
	}

	req := &domain.CreateOrderRequest{
		Items:       make([]domain.OrderLine, 0, len(c.lines)),
		TotalAmount: c.totalLocked(),
	}
	for _, l := range c.lines {
		req.Items = append(req.Items, domain.OrderLine{
			ProductID: l.productID,
			Quantity:  l.qty,
			Price:     l.price,
		})
	}
	c.checkingOut = true
	c.mu.Unlock()

	orderID, err := creator.CreateOrder(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkingOut = false
	if err != nil {
		return nil, err
	}
	c.lines = nil

	return &domain.Receipt{
		OrderID:         orderID,
		Items:           req.Items,
		TotalAmount:     req.TotalAmount,
		RefreshRequired: true,
	}, nil
}
