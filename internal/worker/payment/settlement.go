package payment

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/checkout/internal/config"
	"github.com/Additional-Code/checkout/internal/messaging"
	paymentsvc "github.com/Additional-Code/checkout/internal/service/payment"
	"github.com/Additional-Code/checkout/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/checkout/worker/payment")

// Module registers payment-related worker handlers.
var Module = fx.Module("worker_payment",
	fx.Provide(
		fx.Annotate(
			NewSettlementHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewSettlementHandler consumes settlement and invoice events, writing the
// reconciliation audit trail. Orders stuck in checkout (crashed attempts,
// unresolved gateway faults, unpaid invoices) are traced back through these
// log lines.
func NewSettlementHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.payments.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event paymentsvc.PaymentEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode payment event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		switch event.Type {
		case paymentsvc.EventPaymentSettled:
			logger.Info("payment settled",
				zap.Int64("order_id", event.OrderID),
				zap.Int64("transaction_id", event.TransactionID),
				zap.String("method", event.Method),
				zap.String("amount", event.Amount),
				zap.String("order_status", event.OrderStatus),
				zap.String("external_id", event.ExternalID),
			)
		case paymentsvc.EventInvoiceIssued:
			logger.Info("invoice issued, awaiting bank settlement",
				zap.Int64("order_id", event.OrderID),
				zap.Int64("transaction_id", event.TransactionID),
				zap.String("invoice", event.InvoiceNumber),
				zap.String("amount", event.Amount),
			)
		default:
			logger.Warn("unknown payment event type", zap.String("type", event.Type))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
