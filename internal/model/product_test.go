package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductUnitPrice(t *testing.T) {
	promo := decimal.NewNullDecimal(decimal.NewFromInt(80))

	tests := []struct {
		name    string
		product Product
		want    decimal.Decimal
	}{
		{"promotion with price", Product{Price: decimal.NewFromInt(100), Promotion: true, PromotionalPrice: promo}, decimal.NewFromInt(80)},
		{"promotion without price", Product{Price: decimal.NewFromInt(100), Promotion: true}, decimal.NewFromInt(100)},
		{"price set but promotion off", Product{Price: decimal.NewFromInt(100), PromotionalPrice: promo}, decimal.NewFromInt(100)},
		{"zero promotional price", Product{Price: decimal.NewFromInt(100), Promotion: true, PromotionalPrice: decimal.NewNullDecimal(decimal.Zero)}, decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.product.UnitPrice()))
		})
	}
}

func TestOrderStatusHelpers(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.False(t, OrderStatus("shipped").Valid())
	assert.Equal(t, -1, StatusCancelled.Rank())
	assert.Less(t, StatusConfirmed.Rank(), StatusPreparing.Rank())
}
