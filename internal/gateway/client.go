// Package gateway wraps the external payment-processing endpoints behind a
// bounded-retry client. A declined payment and a transport fault are kept
// apart: declines resolve to ok=false, while a fault on the final attempt is
// returned as an error because the gateway's real state is unknown.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/checkout/internal/config"
	"github.com/Additional-Code/checkout/internal/dto"
	"github.com/Additional-Code/checkout/pkg/retry"
)

var clientTracer = otel.Tracer("github.com/Additional-Code/checkout/gateway")

// Module wires the gateway client.
var Module = fx.Provide(func(cfg config.Config, logger *zap.Logger) *Client {
	return New(cfg.Payment.Gateway, logger)
})

// ChargeRequest carries one payment attempt to the gateway. The idempotency
// key is stable across every retry of the attempt so the gateway can
// deduplicate a re-POST that it already processed.
type ChargeRequest struct {
	OrderID        int64
	CustomerID     int64
	Amount         decimal.Decimal
	Method         string
	IdempotencyKey string
	Card           *dto.CardDetails
	Account        *dto.AccountDetails
}

// Receipt is the gateway's confirmation of a settled charge.
type Receipt struct {
	ExternalTransactionID string
}

type chargeBody struct {
	Amount        string `json:"amount"`
	OrderRef      string `json:"order_ref"`
	CustomerID    int64  `json:"customer_id"`
	CardNumber    string `json:"card_number,omitempty"`
	CardExpiry    string `json:"card_expiry,omitempty"`
	CardCVV       string `json:"card_cvv,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
}

// Client posts charges to the card and terminal endpoints with retries.
type Client struct {
	http        *resty.Client
	policy      retry.Policy
	cardURL     string
	terminalURL string
	logger      *zap.Logger
}

// New builds a Client from gateway configuration.
func New(cfg config.Gateway, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http: httpClient,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
		},
		cardURL:     cfg.BaseURL + cfg.CardPath,
		terminalURL: cfg.BaseURL + cfg.TerminalPath,
		logger:      logger,
	}
}

// Charge submits the request under the retry policy. It returns the receipt
// and true when some attempt succeeded, false with a nil error when every
// attempt was declined, and a non-nil error when the final attempt faulted at
// the transport level.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*Receipt, bool, error) {
	ctx, span := clientTracer.Start(ctx, "Gateway.Charge", trace.WithAttributes(
		attribute.Int64("order.id", req.OrderID),
		attribute.String("payment.method", req.Method),
	))
	defer span.End()

	url, err := c.endpointFor(req.Method)
	if err != nil {
		span.SetStatus(codes.Error, "unsupported method")
		return nil, false, err
	}

	body := chargeBody{
		Amount:     req.Amount.String(),
		OrderRef:   fmt.Sprintf("ORD-%d", req.OrderID),
		CustomerID: req.CustomerID,
	}
	if req.Card != nil {
		body.CardNumber = req.Card.Number
		body.CardExpiry = req.Card.Expiry
		body.CardCVV = req.Card.CVV
	}
	if req.Account != nil {
		body.AccountNumber = req.Account.AccountNumber
		body.InvoiceNumber = req.Account.InvoiceNumber
	}

	var receipt *Receipt
	ok, err := c.policy.Do(ctx, func(ctx context.Context, attempt int) (bool, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", req.IdempotencyKey).
			SetBody(body).
			Post(url)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("gateway call faulted",
					zap.Int64("order_id", req.OrderID),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			return false, err
		}
		if !resp.IsSuccess() {
			if c.logger != nil {
				c.logger.Info("gateway declined payment",
					zap.Int64("order_id", req.OrderID),
					zap.Int("attempt", attempt),
					zap.Int("status", resp.StatusCode()),
				)
			}
			return false, nil
		}

		var parsed chargeResponse
		if len(resp.Body()) > 0 {
			// A malformed success body still counts as a confirmed charge.
			_ = json.Unmarshal(resp.Body(), &parsed)
		}
		receipt = &Receipt{ExternalTransactionID: parsed.TransactionID}
		return true, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport fault")
		return nil, false, err
	}
	if !ok {
		span.SetStatus(codes.Error, "declined")
		return nil, false, nil
	}
	return receipt, true, nil
}

func (c *Client) endpointFor(method string) (string, error) {
	switch method {
	case "card":
		return c.cardURL, nil
	case "terminal":
		return c.terminalURL, nil
	default:
		return "", fmt.Errorf("no gateway endpoint for method %q", method)
	}
}
