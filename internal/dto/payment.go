package dto

import "github.com/shopspring/decimal"

// CardDetails carries card fields for the synchronous card method.
type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

// AccountDetails carries fields for the synchronous terminal method.
type AccountDetails struct {
	AccountNumber string `json:"account_number"`
	InvoiceNumber string `json:"invoice_number"`
}

// PaymentRequest asks the orchestrator to settle the customer's active cart.
type PaymentRequest struct {
	Method  string          `json:"method"`
	Card    *CardDetails    `json:"card,omitempty"`
	Account *AccountDetails `json:"account,omitempty"`
}

// PaymentResult is the structured outcome of a payment attempt. A declined
// payment is a normal outcome: Success is false and Reason explains why,
// but no error is raised.
type PaymentResult struct {
	Success       bool            `json:"success"`
	Method        string          `json:"method"`
	OrderID       int64           `json:"order_id"`
	TransactionID int64           `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Receipt       *Receipt        `json:"receipt,omitempty"`
	Invoice       []byte          `json:"invoice,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// Receipt confirms a gateway-settled payment.
type Receipt struct {
	ExternalTransactionID string `json:"external_transaction_id"`
}

// PaymentMethodResponse lists a currently offered payment method.
type PaymentMethodResponse struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
