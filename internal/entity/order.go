package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

const (
	// StatusOpen is the initial, mutable cart state.
	StatusOpen OrderStatus = "open"
	// StatusCheckout marks an order with a payment attempt in progress.
	StatusCheckout OrderStatus = "checkout"
	// StatusPaid is terminal: the order settled successfully.
	StatusPaid OrderStatus = "paid"
	// StatusCancelled is terminal: payment was declined or retries exhausted.
	StatusCancelled OrderStatus = "cancelled"
)

// transitions whitelists the legal status moves. Anything absent is illegal;
// terminal states have no outgoing edges.
var transitions = map[OrderStatus][]OrderStatus{
	StatusOpen:     {StatusCheckout},
	StatusCheckout: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status has no outgoing transitions.
func Terminal(status OrderStatus) bool {
	return len(transitions[status]) == 0
}

// Order represents a customer's cart or a finalized purchase.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID          int64       `bun:",pk,autoincrement" json:"id"`
	CustomerID  int64       `bun:"customer_id" json:"customer_id"`
	Status      OrderStatus `bun:"status" json:"status"`
	CreatedAt   time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time   `bun:"updated_at,nullzero" json:"updated_at"`
	FinalizedAt *time.Time  `bun:"finalized_at,nullzero" json:"finalized_at,omitempty"`

	Lines []*OrderLine `bun:"rel:has-many,join:id=order_id" json:"lines,omitempty"`
}

// OrderLine is one product entry in an order. The unit price is a snapshot
// taken when the item was added; it is never re-read from the catalog.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID              int64           `bun:",pk,autoincrement" json:"id"`
	OrderID         int64           `bun:"order_id" json:"order_id"`
	ProductID       int64           `bun:"product_id" json:"product_id"`
	Quantity        int             `bun:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal `bun:"unit_price" json:"unit_price"`
	DiscountPercent int             `bun:"discount_percent" json:"discount_percent"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero" json:"updated_at"`
}

// Total returns the line amount after the flat per-line discount.
func (l *OrderLine) Total() decimal.Decimal {
	discount := decimal.NewFromInt(int64(100 - l.DiscountPercent)).Div(decimal.NewFromInt(100))
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Mul(discount)
}

// OrderTotal sums the discounted line amounts. It is the single source of
// truth for how much to charge and is recomputed from freshly loaded lines at
// every payment attempt.
func OrderTotal(lines []*OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total())
	}
	return total
}
