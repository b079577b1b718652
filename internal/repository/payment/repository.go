package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/checkout/internal/database"
	"github.com/Additional-Code/checkout/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/checkout/repository/payment")

// ErrMethodNotFound is returned when a payment method code is unknown.
var ErrMethodNotFound = errors.New("payment method not found")

// Repository persists the payment transaction ledger and reads the method
// registry. The ledger is append-only: finished rows are never rewritten, a
// new attempt is a new row.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// CreateTransaction appends a new payment attempt to the ledger.
func (r *Repository) CreateTransaction(ctx context.Context, tx *entity.PaymentTransaction) error {
	if tx == nil {
		return errors.New("nil transaction")
	}
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.CreateTransaction", trace.WithAttributes(
		attribute.Int64("order.id", tx.OrderID),
		attribute.String("payment.method", tx.PaymentMethod),
	))
	defer span.End()

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	_, err := r.writer.NewInsert().Model(tx).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// UpdateTransactionStatus finalizes an attempt, stamping processed_at and the
// external id when the gateway confirmed it.
func (r *Repository) UpdateTransactionStatus(ctx context.Context, id int64, status entity.TransactionStatus, externalID string) error {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.UpdateTransactionStatus", trace.WithAttributes(
		attribute.Int64("transaction.id", id),
		attribute.String("transaction.status", string(status)),
	))
	defer span.End()

	q := r.writer.NewUpdate().Model((*entity.PaymentTransaction)(nil)).
		Set("status = ?", status).
		Set("processed_at = ?", time.Now().UTC()).
		Where("id = ?", id)
	if externalID != "" {
		q = q.Set("external_transaction_id = ?", externalID)
	}

	if _, err := q.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return nil
}

// ListTransactions returns the ledger rows for an order, oldest first.
func (r *Repository) ListTransactions(ctx context.Context, orderID int64) ([]*entity.PaymentTransaction, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.ListTransactions", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var txs []*entity.PaymentTransaction
	err := r.reader.NewSelect().Model(&txs).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return txs, nil
}

// ListActiveMethods returns offered payment methods in display order.
func (r *Repository) ListActiveMethods(ctx context.Context) ([]*entity.PaymentMethod, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.ListActiveMethods")
	defer span.End()

	var methods []*entity.PaymentMethod
	err := r.reader.NewSelect().Model(&methods).
		Where("is_active = ?", true).
		Order("display_order ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return methods, nil
}

// GetMethod fetches a payment method by code regardless of active state.
func (r *Repository) GetMethod(ctx context.Context, code string) (*entity.PaymentMethod, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.GetMethod", trace.WithAttributes(attribute.String("payment.method", code)))
	defer span.End()

	method := new(entity.PaymentMethod)
	err := r.reader.NewSelect().Model(method).Where("code = ?", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMethodNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return method, nil
}
