package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/checkout/internal/cache"
	"github.com/Additional-Code/checkout/internal/config"
	"github.com/Additional-Code/checkout/internal/dto"
	"github.com/Additional-Code/checkout/internal/entity"
	"github.com/Additional-Code/checkout/internal/gateway"
	"github.com/Additional-Code/checkout/internal/invoice"
	"github.com/Additional-Code/checkout/internal/messaging"
	orderrepo "github.com/Additional-Code/checkout/internal/repository/order"
	paymentrepo "github.com/Additional-Code/checkout/internal/repository/payment"
	"github.com/Additional-Code/checkout/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/checkout/service/payment")

const methodsCacheKey = "payment:methods"

// OrderStore is the slice of the order repository the orchestrator consumes.
type OrderStore interface {
	GetOpenForCustomer(ctx context.Context, customerID int64) (*entity.Order, error)
	ListLines(ctx context.Context, orderID int64) ([]*entity.OrderLine, error)
	SetStatusIf(ctx context.Context, orderID int64, from, to entity.OrderStatus) error
}

// Ledger is the append-only payment transaction store plus the method registry.
type Ledger interface {
	CreateTransaction(ctx context.Context, tx *entity.PaymentTransaction) error
	UpdateTransactionStatus(ctx context.Context, id int64, status entity.TransactionStatus, externalID string) error
	ListActiveMethods(ctx context.Context) ([]*entity.PaymentMethod, error)
}

// GatewayClient submits card/terminal charges to the external gateway.
type GatewayClient interface {
	Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Receipt, bool, error)
}

// Event types published to the payments topic.
const (
	EventPaymentSettled = "payment.settled"
	EventInvoiceIssued  = "invoice.issued"
)

// PaymentEvent records a settlement outcome or an issued invoice for the
// reconciliation audit trail.
type PaymentEvent struct {
	Type          string    `json:"type"`
	OrderID       int64     `json:"order_id"`
	CustomerID    int64     `json:"customer_id"`
	Method        string    `json:"method"`
	Amount        string    `json:"amount"`
	OrderStatus   string    `json:"order_status"`
	TransactionID int64     `json:"transaction_id"`
	ExternalID    string    `json:"external_id,omitempty"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Service orchestrates payment attempts: it validates the cart, drives the
// order status machine, invokes the gateway or the invoice generator, and
// records every outcome in the ledger.
type Service struct {
	orders    OrderStore
	ledger    Ledger
	gateway   GatewayClient
	cache     cache.Store
	logger    *zap.Logger
	publisher messaging.Client
	cfg       config.Payment

	publishEnabled bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders    *orderrepo.Repository
	Ledger    *paymentrepo.Repository
	Gateway   *gateway.Client
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return New(p.Orders, p.Ledger, p.Gateway, p.Cache, p.Publisher, p.Config.Payment, p.Config.Messaging.Enabled, p.Logger)
}

// New builds a Service over any set of collaborators.
func New(orders OrderStore, ledger Ledger, gw GatewayClient, store cache.Store, publisher messaging.Client, cfg config.Payment, publishEnabled bool, logger *zap.Logger) *Service {
	return &Service{
		orders:         orders,
		ledger:         ledger,
		gateway:        gw,
		cache:          store,
		logger:         logger,
		publisher:      publisher,
		cfg:            cfg,
		publishEnabled: publishEnabled,
	}
}

// ListMethods returns the currently offered payment methods.
func (s *Service) ListMethods(ctx context.Context) ([]dto.PaymentMethodResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.ListMethods")
	defer span.End()

	methods, err := s.activeMethods(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registry error")
		return nil, errorbank.Internal("failed to load payment methods", errorbank.WithCause(err))
	}

	out := make([]dto.PaymentMethodResponse, 0, len(methods))
	for _, m := range methods {
		out = append(out, dto.PaymentMethodResponse{
			Code:        m.Code,
			Title:       m.Title,
			Description: m.Description,
		})
	}
	return out, nil
}

// Process settles the customer's active cart with the requested method.
//
// Validation happens before any mutation: an unsupported method, a missing
// cart, or an empty cart fails without touching order or ledger state. The
// open->checkout transition is guarded against concurrent attempts; losing
// the race yields a Conflict error. A gateway decline is a normal outcome
// that cancels the order and returns Success=false, while a transport fault
// on the final attempt leaves the order in checkout for reconciliation and
// surfaces an Unavailable error.
func (s *Service) Process(ctx context.Context, customerID int64, req dto.PaymentRequest) (*dto.PaymentResult, error) {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.Process", trace.WithAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.String("payment.method", req.Method),
	))
	defer span.End()

	if err := s.validateMethod(ctx, req); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOpenForCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("no active cart")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to resolve cart", errorbank.WithCause(err))
	}

	lines, err := s.orders.ListLines(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load cart lines", errorbank.WithCause(err))
	}
	if len(lines) == 0 {
		return nil, errorbank.BadRequest("cart is empty")
	}

	total := entity.OrderTotal(lines)

	// Entering checkout before any external call keeps a crashed attempt
	// auditable instead of silently reverting to a mutable cart.
	if err := s.orders.SetStatusIf(ctx, order.ID, entity.StatusOpen, entity.StatusCheckout); err != nil {
		if errors.Is(err, orderrepo.ErrStatusConflict) {
			return nil, errorbank.Conflict("payment already in progress for this cart")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		return nil, errorbank.Internal("failed to start payment", errorbank.WithCause(err))
	}

	switch req.Method {
	case entity.MethodBank:
		return s.processBank(ctx, order, total)
	default:
		return s.processGateway(ctx, order, total, req)
	}
}

func (s *Service) validateMethod(ctx context.Context, req dto.PaymentRequest) error {
	methods, err := s.activeMethods(ctx)
	if err != nil {
		return errorbank.Internal("failed to load payment methods", errorbank.WithCause(err))
	}

	var active bool
	for _, m := range methods {
		if m.Code == req.Method {
			active = true
			break
		}
	}
	if !active {
		return errorbank.BadRequest(fmt.Sprintf("payment method %q is not offered", req.Method))
	}

	switch req.Method {
	case entity.MethodCard:
		if req.Card == nil || req.Card.Number == "" || req.Card.Expiry == "" || req.Card.CVV == "" {
			return errorbank.BadRequest("card details are required")
		}
	case entity.MethodTerminal:
		if req.Account == nil || req.Account.AccountNumber == "" {
			return errorbank.BadRequest("account details are required")
		}
	}
	return nil
}

func (s *Service) processBank(ctx context.Context, order *entity.Order, total decimal.Decimal) (*dto.PaymentResult, error) {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.processBank", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	now := time.Now().UTC()
	tx := &entity.PaymentTransaction{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		PaymentMethod: entity.MethodBank,
		Amount:        total,
		Status:        entity.TxPending,
		CreatedAt:     now,
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger error")
		return nil, errorbank.Internal("failed to record transaction", errorbank.WithCause(err))
	}

	doc := invoice.Invoice{
		CustomerID: order.CustomerID,
		OrderID:    order.ID,
		Amount:     total,
		IssuedAt:   now,
		ValidUntil: now.Add(s.cfg.InvoiceValidity),
	}

	// Settlement is out-of-band: the order stays in checkout until an
	// external reconciliation marks it paid.
	s.publish(ctx, PaymentEvent{
		Type:          EventInvoiceIssued,
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Method:        entity.MethodBank,
		Amount:        total.String(),
		OrderStatus:   string(entity.StatusCheckout),
		TransactionID: tx.ID,
		InvoiceNumber: doc.Number(),
		OccurredAt:    now,
	})

	return &dto.PaymentResult{
		Success:       true,
		Method:        entity.MethodBank,
		OrderID:       order.ID,
		TransactionID: tx.ID,
		Amount:        total,
		Invoice:       invoice.Generate(doc),
	}, nil
}

func (s *Service) processGateway(ctx context.Context, order *entity.Order, total decimal.Decimal, req dto.PaymentRequest) (*dto.PaymentResult, error) {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.processGateway", trace.WithAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("payment.method", req.Method),
	))
	defer span.End()

	tx := &entity.PaymentTransaction{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		PaymentMethod:  req.Method,
		Amount:         total,
		Status:         entity.TxProcessing,
		IdempotencyKey: uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger error")
		return nil, errorbank.Internal("failed to record transaction", errorbank.WithCause(err))
	}

	receipt, ok, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		Amount:         total,
		Method:         req.Method,
		IdempotencyKey: tx.IdempotencyKey,
		Card:           req.Card,
		Account:        req.Account,
	})
	if err != nil {
		// The gateway's state is unknown, which is different from a
		// confirmed decline: the order stays in checkout and the ledger row
		// stays processing until reconciliation resolves it.
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway fault")
		if s.logger != nil {
			s.logger.Error("payment left unresolved after gateway fault",
				zap.Int64("order_id", order.ID),
				zap.Int64("transaction_id", tx.ID),
				zap.Error(err),
			)
		}
		return nil, errorbank.Unavailable("payment gateway unavailable", errorbank.WithCause(err))
	}

	if !ok {
		return s.settleDeclined(ctx, order, tx, total, req.Method)
	}
	return s.settlePaid(ctx, order, tx, total, req.Method, receipt)
}

func (s *Service) settlePaid(ctx context.Context, order *entity.Order, tx *entity.PaymentTransaction, total decimal.Decimal, method string, receipt *gateway.Receipt) (*dto.PaymentResult, error) {
	externalID := ""
	if receipt != nil {
		externalID = receipt.ExternalTransactionID
	}
	if err := s.ledger.UpdateTransactionStatus(ctx, tx.ID, entity.TxCompleted, externalID); err != nil {
		return nil, errorbank.Internal("failed to finalize transaction", errorbank.WithCause(err))
	}
	if err := s.orders.SetStatusIf(ctx, order.ID, entity.StatusCheckout, entity.StatusPaid); err != nil {
		return nil, errorbank.Internal("failed to finalize order", errorbank.WithCause(err))
	}

	s.publish(ctx, PaymentEvent{
		Type:          EventPaymentSettled,
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Method:        method,
		Amount:        total.String(),
		OrderStatus:   string(entity.StatusPaid),
		TransactionID: tx.ID,
		ExternalID:    externalID,
		OccurredAt:    time.Now().UTC(),
	})

	result := &dto.PaymentResult{
		Success:       true,
		Method:        method,
		OrderID:       order.ID,
		TransactionID: tx.ID,
		Amount:        total,
	}
	if externalID != "" {
		result.Receipt = &dto.Receipt{ExternalTransactionID: externalID}
	}
	return result, nil
}

func (s *Service) settleDeclined(ctx context.Context, order *entity.Order, tx *entity.PaymentTransaction, total decimal.Decimal, method string) (*dto.PaymentResult, error) {
	if err := s.ledger.UpdateTransactionStatus(ctx, tx.ID, entity.TxFailed, ""); err != nil {
		return nil, errorbank.Internal("failed to finalize transaction", errorbank.WithCause(err))
	}
	if err := s.orders.SetStatusIf(ctx, order.ID, entity.StatusCheckout, entity.StatusCancelled); err != nil {
		return nil, errorbank.Internal("failed to cancel order", errorbank.WithCause(err))
	}

	s.publish(ctx, PaymentEvent{
		Type:          EventPaymentSettled,
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Method:        method,
		Amount:        total.String(),
		OrderStatus:   string(entity.StatusCancelled),
		TransactionID: tx.ID,
		OccurredAt:    time.Now().UTC(),
	})

	return &dto.PaymentResult{
		Success:       false,
		Method:        method,
		OrderID:       order.ID,
		TransactionID: tx.ID,
		Amount:        total,
		Reason:        "payment declined by gateway",
	}, nil
}

func (s *Service) publish(ctx context.Context, event PaymentEvent) {
	if !s.publishEnabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal payment event", zap.Error(err))
		}
		return
	}
	key := []byte(fmt.Sprintf("order-%d", event.OrderID))
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish payment event", zap.String("type", event.Type), zap.Error(err))
		}
	}
}

func (s *Service) activeMethods(ctx context.Context) ([]*entity.PaymentMethod, error) {
	if s.cache != nil {
		if bytes, err := s.cache.Get(ctx, methodsCacheKey); err == nil {
			var methods []*entity.PaymentMethod
			if err := json.Unmarshal(bytes, &methods); err == nil {
				return methods, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			if s.logger != nil {
				s.logger.Warn("payment methods cache read failed", zap.Error(err))
			}
		}
	}

	methods, err := s.ledger.ListActiveMethods(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if bytes, err := json.Marshal(methods); err == nil {
			if err := s.cache.Set(ctx, methodsCacheKey, bytes, s.cfg.MethodsCacheTTL); err != nil {
				if s.logger != nil {
					s.logger.Warn("payment methods cache write failed", zap.Error(err))
				}
			}
		}
	}
	return methods, nil
}
