// Package invoice renders the settlement document for the asynchronous bank
// transfer method. Generation is a pure function: identical inputs always
// produce byte-identical output.
package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice holds the inputs of one settlement document.
type Invoice struct {
	CustomerID int64
	OrderID    int64
	Amount     decimal.Decimal
	IssuedAt   time.Time
	ValidUntil time.Time
}

// Number derives the stable invoice number from the order and issue time.
func (i Invoice) Number() string {
	return fmt.Sprintf("INV-%d-%d", i.OrderID, i.IssuedAt.UTC().Unix())
}

// Generate renders the document. Timestamps are normalized to UTC so the
// output does not depend on the local zone.
func Generate(i Invoice) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "PAYMENT INVOICE %s\n", i.Number())
	fmt.Fprintf(&buf, "Order:       ORD-%d\n", i.OrderID)
	fmt.Fprintf(&buf, "Customer:    %d\n", i.CustomerID)
	fmt.Fprintf(&buf, "Amount due:  %s\n", i.Amount.StringFixed(2))
	fmt.Fprintf(&buf, "Issued:      %s\n", i.IssuedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Valid until: %s\n", i.ValidUntil.UTC().Format(time.RFC3339))
	buf.WriteString("Settlement:  bank transfer, quote the invoice number as the payment reference\n")
	return buf.Bytes()
}
