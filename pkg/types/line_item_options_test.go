package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLineItemOptionsPriceDelta(t *testing.T) {
	opts := LineItemOptions{
		Size: &OptionSnapshot{ID: "L", Label: "Large", PriceChange: decimal.NewFromInt(5000)},
		Topping: []OptionSnapshot{
			{ID: "T1", Label: "Pearl", PriceChange: decimal.NewFromInt(3000)},
			{ID: "T2", Label: "Pudding", PriceChange: decimal.NewFromInt(4000)},
		},
	}
	require.True(t, opts.PriceDelta().Equal(decimal.NewFromInt(12000)))
	require.False(t, opts.IsEmpty())
	require.True(t, LineItemOptions{}.PriceDelta().IsZero())
}

func TestLineItemOptionsScanRoundTrip(t *testing.T) {
	original := LineItemOptions{
		Size: &OptionSnapshot{ID: "M", Label: "Medium", PriceChange: decimal.NewFromInt(2000)},
	}
	raw, err := original.Value()
	require.NoError(t, err)

	var decoded LineItemOptions
	require.NoError(t, decoded.Scan(raw))
	require.NotNil(t, decoded.Size)
	require.Equal(t, "Medium", decoded.Size.Label)
	require.True(t, decoded.Size.PriceChange.Equal(decimal.NewFromInt(2000)))

	empty, err := LineItemOptions{}.Value()
	require.NoError(t, err)
	require.Nil(t, empty)

	require.Error(t, decoded.Scan(42))
}
