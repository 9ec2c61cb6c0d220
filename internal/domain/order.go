package domain

import "encoding/json"

// ============================================================
// Orders
// ============================================================

// OrderLine is one sold product inside an order. Price is the unit price
// at the time of sale and never follows later catalog edits.
type OrderLine struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is an immutable entry of the order history.
type Order struct {
	ID          string      `json:"id"`
	UserID      *string     `json:"user_id"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   string      `json:"created_at"`
	Items       []OrderLine `json:"items"`
}

// UnmarshalJSON accepts the line items under either "items" or "order_items",
// depending on which the store uses.
func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	var raw struct {
		alias
		OrderItems []OrderLine `json:"order_items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Order(raw.alias)
	if len(o.Items) == 0 {
		o.Items = raw.OrderItems
	}
	if o.Items == nil {
		o.Items = []OrderLine{}
	}
	return nil
}

// CreateOrderRequest is submitted to the store on checkout. The store must
// persist the order and decrement stock for every line atomically.
type CreateOrderRequest struct {
	Items       []OrderLine `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	UserID      *string     `json:"user_id"`
}
