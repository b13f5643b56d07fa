package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

func TestSessionFeeTable(t *testing.T) {
	rates := DefaultRateTables()
	for n, want := range DefaultSessionFeeTiers() {
		got, err := rates.SessionFee(n)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "sessions %d", n)
	}
}

func TestSessionFeeExtrapolation(t *testing.T) {
	rates := DefaultRateTables()
	table6 := DefaultSessionFeeTiers()[6]
	for n := 7; n <= 20; n++ {
		got, err := rates.SessionFee(n)
		require.NoError(t, err)
		want := table6.Add(decimal.NewFromInt(int64(n-6) * 25000))
		assert.True(t, want.Equal(got), "sessions %d", n)
	}
}

func TestSessionFeeBelowLowestTier(t *testing.T) {
	rates := DefaultRateTables()
	got, err := rates.SessionFee(1)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60000).Equal(got))

	_, err = rates.SessionFee(0)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestNewRateTablesOverrides(t *testing.T) {
	rates, err := NewRateTables(RateValues{
		Version:         "v2",
		SessionFeeTiers: map[int]decimal.Decimal{1: decimal.NewFromInt(40000), 2: decimal.NewFromInt(70000)},
		ExtraSessionFee: decimal.NewNullDecimal(decimal.NewFromInt(30000)),
		VATRate:         decimal.NewNullDecimal(decimal.RequireFromString("0.05")),
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", rates.Version())
	assert.True(t, decimal.RequireFromString("0.05").Equal(rates.VATRate()))
	assert.True(t, decimal.RequireFromString("0.20").Equal(rates.MarginRate()))

	fee, err := rates.SessionFee(4)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(130000).Equal(fee))
}

func TestNewRateTablesValidation(t *testing.T) {
	cases := map[string]RateValues{
		"tier gap":       {SessionFeeTiers: map[int]decimal.Decimal{2: decimal.NewFromInt(1), 4: decimal.NewFromInt(2)}},
		"rate too high":  {VATRate: decimal.NewNullDecimal(decimal.NewFromInt(1))},
		"negative rate":  {OverheadRate: decimal.NewNullDecimal(decimal.NewFromInt(-1))},
		"floor above":    {MarginFloorRate: decimal.NewNullDecimal(decimal.RequireFromString("0.3"))},
		"negative extra": {ExtraSessionFee: decimal.NewNullDecimal(decimal.NewFromInt(-5))},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRateTables(values)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestRateTablesSnapshotIsolation(t *testing.T) {
	tiers := DefaultSessionFeeTiers()
	rates, err := NewRateTables(RateValues{SessionFeeTiers: tiers})
	require.NoError(t, err)

	tiers[3] = decimal.NewFromInt(1)
	fee, err := rates.SessionFee(3)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(90000).Equal(fee))
}

func TestSessionFeeTiersReturnsCopy(t *testing.T) {
	rt := DefaultRateTables()
	tiers := rt.SessionFeeTiers()
	tiers[3] = decimal.NewFromInt(1)

	fee, err := rt.SessionFee(3)
	require.NoError(t, err)
	assert.Equal(t, "90000", fee.String())
}
