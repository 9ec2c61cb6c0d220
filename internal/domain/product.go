package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ============================================================
// Catalog
// ============================================================

// Category is the fixed menu category of a product.
type Category string

const (
	CategoryFood  Category = "makanan"
	CategoryDrink Category = "minuman"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryFood || c == CategoryDrink
}

// Product is a sellable catalog item as returned by the store.
type Product struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Stock     int      `json:"stock"`
	Category  Category `json:"category"`
	ImageURL  *string  `json:"image_url"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// ProductInput holds validated fields for creating a product.
type ProductInput struct {
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Stock    int      `json:"stock"`
	Category Category `json:"category"`
	ImageURL *string  `json:"image_url"`
}

// ProductPatch holds the fields to change on an existing product.
// Nil fields are left untouched by the store.
type ProductPatch struct {
	Name     *string   `json:"name,omitempty"`
	Price    *float64  `json:"price,omitempty"`
	Stock    *int      `json:"stock,omitempty"`
	Category *Category `json:"category,omitempty"`
	ImageURL *string   `json:"image_url,omitempty"`
}

// MarshalJSON sends an empty image as an explicit null so the store clears it.
func (p ProductPatch) MarshalJSON() ([]byte, error) {
	type plain ProductPatch
	if p.ImageURL == nil || *p.ImageURL != "" {
		return json.Marshal(plain(p))
	}
	return json.Marshal(struct {
		plain
		ImageURL *string `json:"image_url"`
	}{plain: plain(p)})
}

// Patch converts a full input into a patch that overwrites every field.
func (in ProductInput) Patch() ProductPatch {
	p := ProductPatch{
		Name:     &in.Name,
		Price:    &in.Price,
		Stock:    &in.Stock,
		Category: &in.Category,
		ImageURL: in.ImageURL,
	}
	if p.ImageURL == nil {
		empty := ""
		p.ImageURL = &empty
	}
	return p
}

// FormValue is a form field that may be posted as a JSON string or number.
type FormValue string

func (v *FormValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FormValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*v = FormValue(n.String())
	}
	return nil
}

// ProductForm is the raw inventory form as submitted by the back-office UI.
// Price and stock arrive as text or numbers and are parsed by Validate.
type ProductForm struct {
	Name     string    `json:"name"`
	Price    FormValue `json:"price"`
	Stock    FormValue `json:"stock"`
	Category string    `json:"category"`
	ImageURL string    `json:"image_url"`
}

// Validate checks the form and converts it to a ProductInput.
// Name and a numeric price are required; a non-numeric stock counts as 0.
func (f ProductForm) Validate() (ProductInput, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return ProductInput{}, &ErrValidation{Field: "name", Message: "name is required"}
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(string(f.Price)), 64)
	if err != nil {
		return ProductInput{}, &ErrValidation{Field: "price", Message: "price must be a number"}
	}
	if price < 0 {
		return ProductInput{}, &ErrValidation{Field: "price", Message: "price must not be negative"}
	}

	stock, err := strconv.Atoi(strings.TrimSpace(string(f.Stock)))
	if err != nil {
		stock = 0
	}
	if stock < 0 {
		return ProductInput{}, &ErrValidation{Field: "stock", Message: "stock must not be negative"}
	}

	category := Category(strings.TrimSpace(f.Category))
	if category == "" {
		category = CategoryFood
	}
	if !category.Valid() {
		return ProductInput{}, &ErrValidation{Field: "category", Message: "category must be makanan or minuman"}
	}

	in := ProductInput{
		Name:     name,
		Price:    price,
		Stock:    stock,
		Category: category,
	}
	if img := strings.TrimSpace(f.ImageURL); img != "" {
		in.ImageURL = &img
	}
	return in, nil
}
