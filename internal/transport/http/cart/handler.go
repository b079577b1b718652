package cart

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/checkout/internal/dto"
	"github.com/Additional-Code/checkout/internal/presentation/http/response"
	service "github.com/Additional-Code/checkout/internal/service/cart"
	"github.com/Additional-Code/checkout/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/checkout/transport/http/cart")

// Handler exposes cart endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a cart Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/customers/:customerID/cart")
	g.GET("", h.get)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:productID", h.updateItem)
	g.DELETE("/items/:productID", h.removeItem)
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)

	customerID, err := pathID(c, "customerID")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cart.get", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	cart, err := h.svc.Get(ctx, customerID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(cart).Build()
}

func (h *Handler) addItem(c echo.Context) error {
	b := response.New(c)

	customerID, err := pathID(c, "customerID")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.AddItemRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cart.addItem", trace.WithAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int64("product.id", payload.ProductID),
	))
	defer span.End()

	cart, err := h.svc.AddItem(ctx, customerID, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(cart).Build()
}

func (h *Handler) updateItem(c echo.Context) error {
	b := response.New(c)

	customerID, err := pathID(c, "customerID")
	if err != nil {
		return b.WithError(err).Build()
	}
	productID, err := pathID(c, "productID")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.UpdateItemRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cart.updateItem", trace.WithAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int64("product.id", productID),
	))
	defer span.End()

	cart, err := h.svc.UpdateItem(ctx, customerID, productID, payload.Quantity)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(cart).Build()
}

func (h *Handler) removeItem(c echo.Context) error {
	b := response.New(c)

	customerID, err := pathID(c, "customerID")
	if err != nil {
		return b.WithError(err).Build()
	}
	productID, err := pathID(c, "productID")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cart.removeItem", trace.WithAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int64("product.id", productID),
	))
	defer span.End()

	cart, err := h.svc.RemoveItem(ctx, customerID, productID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(cart).Build()
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithCause(err))
	}
	return id, nil
}
