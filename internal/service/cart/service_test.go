package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/checkout/internal/dto"
	"github.com/Additional-Code/checkout/internal/entity"
	orderrepo "github.com/Additional-Code/checkout/internal/repository/order"
	"github.com/Additional-Code/checkout/internal/service/cart"
	"github.com/Additional-Code/checkout/pkg/errorbank"
)

type fakeStore struct {
	orders     map[int64]*entity.Order // keyed by order id
	lines      map[int64][]*entity.OrderLine
	nextOrder  int64
	nextLineID int64
}

var _ cart.OrderStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: make(map[int64]*entity.Order),
		lines:  make(map[int64][]*entity.OrderLine),
	}
}

func (f *fakeStore) GetOpenForCustomer(_ context.Context, customerID int64) (*entity.Order, error) {
	for _, o := range f.orders {
		if o.CustomerID == customerID && o.Status == entity.StatusOpen {
			return o, nil
		}
	}
	return nil, orderrepo.ErrNotFound
}

func (f *fakeStore) CreateOpen(_ context.Context, customerID int64) (*entity.Order, error) {
	f.nextOrder++
	now := time.Now().UTC()
	order := &entity.Order{ID: f.nextOrder, CustomerID: customerID, Status: entity.StatusOpen, CreatedAt: now, UpdatedAt: now}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeStore) ListLines(_ context.Context, orderID int64) ([]*entity.OrderLine, error) {
	return f.lines[orderID], nil
}

func (f *fakeStore) GetLine(_ context.Context, orderID, productID int64) (*entity.OrderLine, error) {
	for _, l := range f.lines[orderID] {
		if l.ProductID == productID {
			return l, nil
		}
	}
	return nil, orderrepo.ErrNotFound
}

func (f *fakeStore) SaveLine(_ context.Context, line *entity.OrderLine) error {
	if line.ID == 0 {
		f.nextLineID++
		line.ID = f.nextLineID
		f.lines[line.OrderID] = append(f.lines[line.OrderID], line)
	}
	return nil
}

func (f *fakeStore) DeleteLine(_ context.Context, orderID, productID int64) error {
	kept := f.lines[orderID][:0]
	for _, l := range f.lines[orderID] {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	f.lines[orderID] = kept
	return nil
}

func newService(store *fakeStore) *cart.Service {
	return cart.New(store, zap.NewNop())
}

func TestAddItem_CreatesOpenOrderImplicitly(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	resp, err := svc.AddItem(context.Background(), 7, dto.AddItemRequest{
		ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10),
	})

	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusOpen), resp.Status)
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(20)))

	order, err := store.GetOpenForCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusOpen, order.Status)
}

func TestAddItem_SameProductAccumulatesQuantityKeepsPriceSnapshot(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, dto.AddItemRequest{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(10)})
	require.NoError(t, err)

	// second add with a different price must not reprice the line
	resp, err := svc.AddItem(ctx, 7, dto.AddItemRequest{ProductID: 1, Quantity: 3, UnitPrice: decimal.NewFromInt(99)})
	require.NoError(t, err)

	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 4, resp.Lines[0].Quantity)
	assert.True(t, resp.Lines[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(40)))
}

func TestAddItem_Validation(t *testing.T) {
	svc := newService(newFakeStore())
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.AddItemRequest
	}{
		{"missing product", dto.AddItemRequest{Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
		{"zero quantity", dto.AddItemRequest{ProductID: 1, UnitPrice: decimal.NewFromInt(1)}},
		{"negative price", dto.AddItemRequest{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}},
		{"discount above 100", dto.AddItemRequest{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(1), DiscountPercent: 101}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, 7, tc.req)
			require.Error(t, err)
			assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
		})
	}
}

func TestUpdateItem_ZeroQuantityRemovesLine(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, dto.AddItemRequest{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 7, dto.AddItemRequest{ProductID: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(20), DiscountPercent: 50})
	require.NoError(t, err)

	resp, err := svc.UpdateItem(ctx, 7, 1, 0)
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, int64(2), resp.Lines[0].ProductID)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(10)), "got %s", resp.Total)
}

func TestUpdateItem_NegativeQuantityRemovesLine(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, dto.AddItemRequest{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)})
	require.NoError(t, err)

	resp, err := svc.UpdateItem(ctx, 7, 1, -3)
	require.NoError(t, err)
	assert.Empty(t, resp.Lines)
	assert.True(t, resp.Total.Equal(decimal.Zero))
}

func TestUpdateItem_SetsQuantity(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, dto.AddItemRequest{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)})
	require.NoError(t, err)

	resp, err := svc.UpdateItem(ctx, 7, 1, 5)
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 5, resp.Lines[0].Quantity)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(50)))
}

func TestUpdateItem_NoCart(t *testing.T) {
	svc := newService(newFakeStore())

	_, err := svc.UpdateItem(context.Background(), 7, 1, 2)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestUpdateItem_ProductNotInCart(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, dto.AddItemRequest{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(10)})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, 7, 99, 2)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestGet_NoCart(t *testing.T) {
	svc := newService(newFakeStore())

	_, err := svc.Get(context.Background(), 7)
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errorbank.KindNotFound, appErr.Kind())
}
