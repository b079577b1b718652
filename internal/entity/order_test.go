package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Additional-Code/checkout/internal/entity"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from entity.OrderStatus
		to   entity.OrderStatus
		want bool
	}{
		{"open to checkout", entity.StatusOpen, entity.StatusCheckout, true},
		{"checkout to paid", entity.StatusCheckout, entity.StatusPaid, true},
		{"checkout to cancelled", entity.StatusCheckout, entity.StatusCancelled, true},
		{"open to paid skips checkout", entity.StatusOpen, entity.StatusPaid, false},
		{"open to cancelled skips checkout", entity.StatusOpen, entity.StatusCancelled, false},
		{"checkout back to open", entity.StatusCheckout, entity.StatusOpen, false},
		{"paid is terminal", entity.StatusPaid, entity.StatusCancelled, false},
		{"cancelled is terminal", entity.StatusCancelled, entity.StatusOpen, false},
		{"cancelled does not reopen as checkout", entity.StatusCancelled, entity.StatusCheckout, false},
		{"no self transition", entity.StatusOpen, entity.StatusOpen, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, entity.CanTransition(tc.from, tc.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, entity.Terminal(entity.StatusOpen))
	assert.False(t, entity.Terminal(entity.StatusCheckout))
	assert.True(t, entity.Terminal(entity.StatusPaid))
	assert.True(t, entity.Terminal(entity.StatusCancelled))
}

func TestOrderTotal_NoLinesIsExactlyZero(t *testing.T) {
	total := entity.OrderTotal(nil)
	assert.True(t, total.Equal(decimal.Zero))

	total = entity.OrderTotal([]*entity.OrderLine{})
	assert.True(t, total.Equal(decimal.Zero))
}

func TestOrderTotal_DiscountedSum(t *testing.T) {
	lines := []*entity.OrderLine{
		{UnitPrice: decimal.NewFromInt(10), Quantity: 2, DiscountPercent: 0},
		{UnitPrice: decimal.NewFromInt(20), Quantity: 1, DiscountPercent: 50},
	}

	total := entity.OrderTotal(lines)
	assert.True(t, total.Equal(decimal.NewFromInt(30)), "got %s", total)
}

func TestOrderTotal_FullDiscount(t *testing.T) {
	lines := []*entity.OrderLine{
		{UnitPrice: decimal.NewFromInt(100), Quantity: 3, DiscountPercent: 100},
	}
	assert.True(t, entity.OrderTotal(lines).Equal(decimal.Zero))
}

func TestLineTotal_FractionalPrices(t *testing.T) {
	line := &entity.OrderLine{
		UnitPrice:       decimal.RequireFromString("19.99"),
		Quantity:        3,
		DiscountPercent: 25,
	}
	// 19.99 * 3 * 0.75
	assert.True(t, line.Total().Equal(decimal.RequireFromString("44.9775")), "got %s", line.Total())
}
