package cart

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/checkout/internal/dto"
	"github.com/Additional-Code/checkout/internal/entity"
	orderrepo "github.com/Additional-Code/checkout/internal/repository/order"
	"github.com/Additional-Code/checkout/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/checkout/service/cart")

// OrderStore is the slice of the order repository the cart service consumes.
type OrderStore interface {
	GetOpenForCustomer(ctx context.Context, customerID int64) (*entity.Order, error)
	CreateOpen(ctx context.Context, customerID int64) (*entity.Order, error)
	ListLines(ctx context.Context, orderID int64) ([]*entity.OrderLine, error)
	GetLine(ctx context.Context, orderID, productID int64) (*entity.OrderLine, error)
	SaveLine(ctx context.Context, line *entity.OrderLine) error
	DeleteLine(ctx context.Context, orderID, productID int64) error
}

// Service owns the mutable-cart half of the order lifecycle. Orders are
// created implicitly on the first added item and stay mutable only while open.
type Service struct {
	store  OrderStore
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store  *orderrepo.Repository
	Logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return New(p.Store, p.Logger)
}

// New builds a Service over any OrderStore.
func New(store OrderStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Get returns the customer's active cart with recomputed totals.
func (s *Service) Get(ctx context.Context, customerID int64) (*dto.CartResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "CartService.Get", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	order, err := s.store.GetOpenForCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("no active cart")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load cart", errorbank.WithCause(err))
	}

	return s.respond(ctx, order)
}

// AddItem puts a product into the cart, snapshotting its unit price. Adding a
// product already in the cart increases the line quantity. The open order is
// created on first use.
func (s *Service) AddItem(ctx context.Context, customerID int64, req dto.AddItemRequest) (*dto.CartResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "CartService.AddItem", trace.WithAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int64("product.id", req.ProductID),
	))
	defer span.End()

	if req.ProductID <= 0 {
		return nil, errorbank.BadRequest("product_id is required")
	}
	if req.Quantity <= 0 {
		return nil, errorbank.BadRequest("quantity must be positive")
	}
	if req.UnitPrice.IsNegative() {
		return nil, errorbank.BadRequest("unit_price must not be negative")
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return nil, errorbank.BadRequest("discount_percent must be between 0 and 100")
	}

	order, err := s.store.GetOpenForCustomer(ctx, customerID)
	if errors.Is(err, orderrepo.ErrNotFound) {
		order, err = s.store.CreateOpen(ctx, customerID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to resolve cart", errorbank.WithCause(err))
	}

	line, err := s.store.GetLine(ctx, order.ID, req.ProductID)
	switch {
	case errors.Is(err, orderrepo.ErrNotFound):
		line = &entity.OrderLine{
			OrderID:         order.ID,
			ProductID:       req.ProductID,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			DiscountPercent: req.DiscountPercent,
		}
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load cart line", errorbank.WithCause(err))
	default:
		// Price stays the snapshot from the first add.
		line.Quantity += req.Quantity
	}

	if err := s.store.SaveLine(ctx, line); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to save cart line", errorbank.WithCause(err))
	}

	return s.respond(ctx, order)
}

// UpdateItem sets a line quantity. Zero or negative removes the line.
func (s *Service) UpdateItem(ctx context.Context, customerID, productID int64, quantity int) (*dto.CartResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "CartService.UpdateItem", trace.WithAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	order, err := s.store.GetOpenForCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("no active cart")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load cart", errorbank.WithCause(err))
	}

	if quantity <= 0 {
		if err := s.store.DeleteLine(ctx, order.ID, productID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to remove cart line", errorbank.WithCause(err))
		}
		return s.respond(ctx, order)
	}

	line, err := s.store.GetLine(ctx, order.ID, productID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("product not in cart")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load cart line", errorbank.WithCause(err))
	}

	line.Quantity = quantity
	if err := s.store.SaveLine(ctx, line); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to save cart line", errorbank.WithCause(err))
	}

	return s.respond(ctx, order)
}

// RemoveItem deletes a product from the cart.
func (s *Service) RemoveItem(ctx context.Context, customerID, productID int64) (*dto.CartResponse, error) {
	return s.UpdateItem(ctx, customerID, productID, 0)
}

func (s *Service) respond(ctx context.Context, order *entity.Order) (*dto.CartResponse, error) {
	lines, err := s.store.ListLines(ctx, order.ID)
	if err != nil {
		return nil, errorbank.Internal("failed to load cart lines", errorbank.WithCause(err))
	}

	resp := &dto.CartResponse{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		Lines:      make([]dto.CartLineResponse, 0, len(lines)),
		Total:      entity.OrderTotal(lines),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
	for _, line := range lines {
		resp.Lines = append(resp.Lines, dto.CartLineResponse{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			Total:           line.Total(),
		})
	}
	return resp, nil
}
