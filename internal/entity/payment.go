package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// TransactionStatus enumerates the states of a payment attempt.
type TransactionStatus string

const (
	// TxPending marks an attempt awaiting out-of-band settlement (bank invoice).
	TxPending TransactionStatus = "pending"
	// TxProcessing marks an attempt with a gateway call in flight.
	TxProcessing TransactionStatus = "processing"
	// TxCompleted marks a gateway-confirmed attempt.
	TxCompleted TransactionStatus = "completed"
	// TxFailed marks a declined or exhausted attempt.
	TxFailed TransactionStatus = "failed"
)

// Payment method codes offered by the engine.
const (
	MethodBank     = "bank"
	MethodCard     = "card"
	MethodTerminal = "terminal"
)

// PaymentTransaction is one attempt to settle an order. Rows are append-only:
// a new attempt is a new row, never an update of a finished one.
type PaymentTransaction struct {
	bun.BaseModel `bun:"table:payment_transactions"`

	ID                    int64             `bun:",pk,autoincrement" json:"id"`
	OrderID               int64             `bun:"order_id" json:"order_id"`
	CustomerID            int64             `bun:"customer_id" json:"customer_id"`
	PaymentMethod         string            `bun:"payment_method" json:"payment_method"`
	Amount                decimal.Decimal   `bun:"amount" json:"amount"`
	Status                TransactionStatus `bun:"status" json:"status"`
	IdempotencyKey        string            `bun:"idempotency_key,nullzero" json:"idempotency_key,omitempty"`
	ExternalTransactionID string            `bun:"external_transaction_id,nullzero" json:"external_transaction_id,omitempty"`
	CreatedAt             time.Time         `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	ProcessedAt           *time.Time        `bun:"processed_at,nullzero" json:"processed_at,omitempty"`
}

// PaymentMethod describes a currently offered way to pay. The orchestrator
// only reads these rows; they are maintained through seeding.
type PaymentMethod struct {
	bun.BaseModel `bun:"table:payment_methods"`

	ID           int64  `bun:",pk,autoincrement" json:"id"`
	Code         string `bun:"code" json:"code"`
	Title        string `bun:"title" json:"title"`
	Description  string `bun:"description" json:"description"`
	IsActive     bool   `bun:"is_active" json:"is_active"`
	DisplayOrder int    `bun:"display_order" json:"display_order"`
}
