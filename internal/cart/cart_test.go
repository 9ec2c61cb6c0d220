package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/pos-bfa-go/internal/cart"
	"github.com/boddenberg/pos-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fakeCatalog map[string]domain.Product

func (f fakeCatalog) Product(id string) (domain.Product, bool) {
	p, ok := f[id]
	return p, ok
}

type fakeCreator struct {
	calls   int
	lastReq *domain.CreateOrderRequest
	orderID string
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeCreator) CreateOrder(_ context.Context, req *domain.CreateOrderRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	return f.orderID, f.err
}

func newCatalog() fakeCatalog {
	return fakeCatalog{
		"nasi":  {ID: "nasi", Name: "Nasi Goreng", Price: 15000, Stock: 3, Category: domain.CategoryFood},
		"teh":   {ID: "teh", Name: "Es Teh", Price: 5000, Stock: 10, Category: domain.CategoryDrink},
		"habis": {ID: "habis", Name: "Sold Out", Price: 1000, Stock: 0, Category: domain.CategoryFood},
	}
}

// --- Tests ---

func TestAddItem_NeverExceedsStock(t *testing.T) {
	catalog := newCatalog()
	c := cart.New(catalog)

	for i := 0; i < catalog["nasi"].Stock+1; i++ {
		require.NoError(t, c.AddItem("nasi"))
	}

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestAddItem_UnknownOrOutOfStockIsNoop(t *testing.T) {
	c := cart.New(newCatalog())

	require.NoError(t, c.AddItem("missing"))
	require.NoError(t, c.AddItem("habis"))

	assert.Empty(t, c.Lines())
	assert.Zero(t, c.Count())
}

func TestAddItem_OneLinePerProductInInsertionOrder(t *testing.T) {
	c := cart.New(newCatalog())

	require.NoError(t, c.AddItem("teh"))
	require.NoError(t, c.AddItem("nasi"))
	require.NoError(t, c.AddItem("teh"))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, domain.CartLine{ProductID: "teh", Quantity: 2}, lines[0])
	assert.Equal(t, domain.CartLine{ProductID: "nasi", Quantity: 1}, lines[1])
	assert.Equal(t, 3, c.Count())
}

func TestAdjustQuantity_LargeNegativeRemovesLine(t *testing.T) {
	c := cart.New(newCatalog())
	require.NoError(t, c.AddItem("teh"))
	require.NoError(t, c.AddItem("nasi"))

	require.NoError(t, c.AdjustQuantity("teh", -1000))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "nasi", lines[0].ProductID)
}

func TestAdjustQuantity_ClampsToStock(t *testing.T) {
	c := cart.New(newCatalog())
	require.NoError(t, c.AddItem("nasi"))

	require.NoError(t, c.AdjustQuantity("nasi", 50))

	assert.Equal(t, 3, c.Lines()[0].Quantity)
}

func TestAdjustQuantity_WithoutLineIsNoop(t *testing.T) {
	c := cart.New(newCatalog())

	require.NoError(t, c.AdjustQuantity("teh", 1))

	assert.Empty(t, c.Lines())
}

func TestAdjustQuantity_Decrement(t *testing.T) {
	c := cart.New(newCatalog())
	require.NoError(t, c.AddItem("teh"))
	require.NoError(t, c.AddItem("teh"))

	require.NoError(t, c.AdjustQuantity("teh", -1))

	assert.Equal(t, 1, c.Count())
}

func TestClear(t *testing.T) {
	c := cart.New(newCatalog())
	require.NoError(t, c.AddItem("teh"))

	require.NoError(t, c.Clear())

	assert.Empty(t, c.Lines())
	assert.Zero(t, c.Total())
}

func TestTotal_FollowsCurrentCatalogPrice(t *testing.T) {
	catalog := newCatalog()
	c := cart.New(catalog)
	require.NoError(t, c.AddItem("teh"))
	require.NoError(t, c.AddItem("teh"))
	require.NoError(t, c.AddItem("nasi"))

	assert.Equal(t, 25000.0, c.Total())

	teh := catalog["teh"]
	teh.Price = 6000
	catalog["teh"] = teh

	assert.Equal(t, 27000.0, c.Total())
}

func TestCart_ReappliesStockCapAfterCatalogChange(t *testing.T) {
	catalog := newCatalog()
	c := cart.New(catalog)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.AddItem("nasi"))
	}

	nasi := catalog["nasi"]
	nasi.Stock = 1
	catalog["nasi"] = nasi
	assert.Equal(t, 1, c.Count())

	nasi.Stock = 0
	catalog["nasi"] = nasi
	assert.Empty(t, c.Lines())
}

func TestView_JoinsCatalog(t *testing.T) {
	c := cart.New(newCatalog())
	require.NoError(t, c.AddItem("nasi"))
	require.NoError(t, c.AddItem("nasi"))

	v := c.View("kasir-1")

	assert.Equal(t, "kasir-1", v.TerminalID)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, "Nasi Goreng", v.Lines[0].Name)
	assert.Equal(t, 30000.0, v.Lines[0].Subtotal)
	assert.Equal(t, 30000.0, v.Total)
	assert.Equal(t, 2, v.Count)
}

func TestCheckout_EmptyCartMakesNoStoreCall(t *testing.T) {
	c := cart.New(newCatalog())
	creator := &fakeCreator{orderID: "order-1"}

	receipt, err := c.Checkout(context.Background(), creator)

	require.NoError(t, err)
	assert.Nil(t, receipt)
	assert.Zero(t, creator.calls)
	assert.Empty(t, c.Lines())
}

func TestCheckout_SuccessClearsCart(t *testing.T) {
	c := cart.New(newCatalog())
	require.NoError(t, c.AddItem("nasi"))
	require.NoError(t, c.AddItem("teh"))
	require.NoError(t, c.AddItem("teh"))
	creator := &fakeCreator{orderID: "order-1"}

	receipt, err := c.Checkout(context.Background(), creator)

	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "order-1", receipt.OrderID)
	assert.True(t, receipt.RefreshRequired)
	assert.Equal(t, 25000.0, receipt.TotalAmount)
	assert.Equal(t, 1, creator.calls)
	assert.Equal(t, []domain.OrderLine{
		{ProductID: "nasi", Quantity: 1, Price: 15000},
		{ProductID: "teh", Quantity: 2, Price: 5000},
	}, creator.lastReq.Items)
	assert.Equal(t, 25000.0, creator.lastReq.TotalAmount)
	assert.Empty(t, c.Lines())
}

func TestCheckout_FailureKeepsCart(t *testing.T) {
	c := cart.New(newCatalog())
	require.NoError(t, c.AddItem("nasi"))
	require.NoError(t, c.AddItem("nasi"))
	rejected := &domain.ErrStoreRejected{Op: "create_order", Status: 400, Message: "Insufficient stock for Nasi Goreng"}
	creator := &fakeCreator{err: rejected}

	receipt, err := c.Checkout(context.Background(), creator)

	assert.Nil(t, receipt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rejected))
	assert.Equal(t, "Insufficient stock for Nasi Goreng", err.Error())
	assert.Equal(t, []domain.CartLine{{ProductID: "nasi", Quantity: 2}}, c.Lines())

	creator.err = nil
	creator.orderID = "order-2"
	receipt, err = c.Checkout(context.Background(), creator)
	require.NoError(t, err)
	assert.Equal(t, "order-2", receipt.OrderID)
}

func TestCheckout_NotReentrant(t *testing.T) {
	c := cart.New(newCatalog())
	require.NoError(t, c.AddItem("teh"))
	creator := &fakeCreator{
		orderID: "order-1",
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Checkout(context.Background(), creator)
		done <- err
	}()
	<-creator.entered

	_, err := c.Checkout(context.Background(), &fakeCreator{})
	assert.ErrorIs(t, err, domain.ErrCheckoutInProgress)
	assert.ErrorIs(t, c.AddItem("teh"), domain.ErrCheckoutInProgress)
	assert.ErrorIs(t, c.AdjustQuantity("teh", 1), domain.ErrCheckoutInProgress)
	assert.ErrorIs(t, c.Clear(), domain.ErrCheckoutInProgress)

	close(creator.block)
	require.NoError(t, <-done)
	assert.Empty(t, c.Lines())
	assert.NoError(t, c.AddItem("teh"))
}
