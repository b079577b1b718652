package payment

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/checkout/internal/dto"
	"github.com/Additional-Code/checkout/internal/presentation/http/response"
	service "github.com/Additional-Code/checkout/internal/service/payment"
	"github.com/Additional-Code/checkout/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/checkout/transport/http/payment")

// Handler exposes payment endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a payment Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/payments")
	g.GET("/methods", h.listMethods)
	g.POST("", h.process)
}

func (h *Handler) listMethods(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.listMethods")
	defer span.End()

	methods, err := h.svc.ListMethods(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(methods).Build()
}

func (h *Handler) process(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		CustomerID int64 `json:"customer_id"`
		dto.PaymentRequest
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.CustomerID <= 0 {
		return b.WithError(errorbank.BadRequest("customer_id is required")).Build()
	}
	if payload.Method == "" {
		return b.WithError(errorbank.BadRequest("method is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.process", trace.WithAttributes(
		attribute.Int64("customer.id", payload.CustomerID),
		attribute.String("payment.method", payload.Method),
	))
	defer span.End()

	result, err := h.svc.Process(ctx, payload.CustomerID, payload.PaymentRequest)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.
		WithMeta("amount", result.Amount.StringFixed(2)).
		WithMeta("transaction_id", strconv.FormatInt(result.TransactionID, 10)).
		WithData(result).
		Build()
}
