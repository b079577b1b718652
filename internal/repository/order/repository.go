package order

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

var repoTracer = otel.Tracer("github.com/Additional-Code/checkout/repository/order")

// ErrNotFound is returned when an order or line is missing.
var ErrNotFound = errors.New("order not found")

// ErrStatusConflict is returned when a guarded status update matched no row,
// meaning another writer already moved the order or the transition is illegal.
var ErrStatusConflict = errors.New("order status conflict")

// Repository encapsulates read/write access for orders and their lines.
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

// GetOpenForCustomer fetches the customer's active cart. At most one order per
// customer may be open, enforced by a partial unique index.
func (r *Repository) GetOpenForCustomer(ctx context.Context, customerID int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetOpenForCustomer", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Where("customer_id = ?", customerID).
		Where("status = ?", entity.StatusOpen).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// CreateOpen persists a new open cart for the customer.
func (r *Repository) CreateOpen(ctx context.Context, customerID int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateOpen", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	now := time.Now().UTC()
	order := &entity.Order{
		CustomerID: customerID,
		Status:     entity.StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := r.writer.NewInsert().Model(order).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}
	return order, nil
}

// SetStatusIf moves the order from one status to another with a conditional
// update. The WHERE clause on the current status rejects concurrent writers:
// zero affected rows means somebody else got there first. Transitions outside
// the whitelist fail before touching the database.
func (r *Repository) SetStatusIf(ctx context.Context, orderID int64, from, to entity.OrderStatus) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.SetStatusIf", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status.from", string(from)),
		attribute.String("order.status.to", string(to)),
	))
	defer span.End()

	if !entity.CanTransition(from, to) {
		span.SetStatus(codes.Error, "illegal transition")
		return ErrStatusConflict
	}

	now := time.Now().UTC()
	q := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", now).
		Where("id = ?", orderID).
		Where("status = ?", from)
	if entity.Terminal(to) {
		q = q.Set("finalized_at = ?", now)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "status conflict")
		return ErrStatusConflict
	}
	return nil
}

// ListLines loads the order's line items.
func (r *Repository) ListLines(ctx context.Context, orderID int64) ([]*entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListLines", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var lines []*entity.OrderLine
	err := r.reader.NewSelect().Model(&lines).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return lines, nil
}

// GetLine fetches one line by order and product.
func (r *Repository) GetLine(ctx context.Context, orderID, productID int64) (*entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetLine", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("product.id", productID),
	))
	defer span.End()

	line := new(entity.OrderLine)
	err := r.reader.NewSelect().Model(line).
		Where("order_id = ?", orderID).
		Where("product_id = ?", productID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return line, nil
}

// SaveLine inserts a new line or updates an existing one.
func (r *Repository) SaveLine(ctx context.Context, line *entity.OrderLine) error {
	if line == nil {
		return errors.New("nil line")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.SaveLine", trace.WithAttributes(
		attribute.Int64("order.id", line.OrderID),
		attribute.Int64("product.id", line.ProductID),
	))
	defer span.End()

	line.UpdatedAt = time.Now().UTC()

	var err error
	if line.ID == 0 {
		_, err = r.writer.NewInsert().Model(line).Exec(ctx)
	} else {
		_, err = r.writer.NewUpdate().Model(line).WherePK().Exec(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
	}
	return err
}

// DeleteLine removes a line from the order.
func (r *Repository) DeleteLine(ctx context.Context, orderID, productID int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteLine", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("product.id", productID),
	))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.OrderLine)(nil)).
		Where("order_id = ?", orderID).
		Where("product_id = ?", productID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}
