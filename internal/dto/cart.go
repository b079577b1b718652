package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartResponse represents a customer's open order as exposed via transport layers.
type CartResponse struct {
	ID         int64              `json:"id"`
	CustomerID int64              `json:"customer_id"`
	Status     string             `json:"status"`
	Lines      []CartLineResponse `json:"lines"`
	Total      decimal.Decimal    `json:"total"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// CartLineResponse is a single product entry in a cart.
type CartLineResponse struct {
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int             `json:"discount_percent"`
	Total           decimal.Decimal `json:"total"`
}

// AddItemRequest adds a product to the cart, snapshotting its price.
type AddItemRequest struct {
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int             `json:"discount_percent"`
}

// UpdateItemRequest changes a line quantity; zero or negative removes the line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}
