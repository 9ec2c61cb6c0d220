package domain

// CartLine is one product + quantity pair in an open cart.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartLineView is a cart line joined with the current catalog data.
type CartLineView struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Stock     int      `json:"stock"`
	ImageURL  *string  `json:"image_url"`
	Quantity  int      `json:"quantity"`
	Subtotal  float64  `json:"subtotal"`
	Category  Category `json:"category"`
}

// CartView is the read model of a cart.
type CartView struct {
	TerminalID string         `json:"terminal_id"`
	Lines      []CartLineView `json:"lines"`
	Total      float64        `json:"total"`
	Count      int            `json:"count"`
}

// Receipt is returned by a confirmed checkout.
type Receipt struct {
	OrderID         string      `json:"order_id"`
	Items           []OrderLine `json:"items"`
	TotalAmount     float64     `json:"total_amount"`
	RefreshRequired bool        `json:"refresh_required"`
}
