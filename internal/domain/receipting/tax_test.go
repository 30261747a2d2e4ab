package receipting

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTax(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		rate     decimal.Decimal
		wantBase int64
		wantTax  int64
	}{
		{name: "thousand yen", total: 1000, rate: StandardTaxRate, wantBase: 909, wantTax: 91},
		{name: "smallest amount", total: 1, rate: StandardTaxRate, wantBase: 1, wantTax: 0},
		{name: "exact multiple", total: 1100, rate: StandardTaxRate, wantBase: 1000, wantTax: 100},
		{name: "rounds base down", total: 6, rate: StandardTaxRate, wantBase: 5, wantTax: 1},
		{name: "rounds base up", total: 16, rate: StandardTaxRate, wantBase: 15, wantTax: 1},
		{name: "reduced rate", total: 1080, rate: ReducedTaxRate, wantBase: 1000, wantTax: 80},
		{name: "reduced rate rounding", total: 500, rate: ReducedTaxRate, wantBase: 463, wantTax: 37},
		{name: "zero rate", total: 777, rate: decimal.Zero, wantBase: 777, wantTax: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := SplitTax(tt.total, tt.rate)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, split.Base)
			assert.Equal(t, tt.wantTax, split.Tax)
			assert.Equal(t, tt.total, split.Total)
		})
	}
}

func TestSplitTax_InvalidAmount(t *testing.T) {
	for _, total := range []int64{0, -1, -1000} {
		_, err := SplitTax(total, StandardTaxRate)
		assert.ErrorIs(t, err, ErrInvalidAmount, "total %d", total)
	}
}

func TestSplitTax_NegativeRate(t *testing.T) {
	_, err := SplitTax(1000, decimal.NewFromFloat(-0.1))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidAmount)
}

func TestSplitTax_PartsAlwaysSumToTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		total := rng.Int63n(10_000_000) + 1
		for _, rate := range []decimal.Decimal{StandardTaxRate, ReducedTaxRate} {
			split, err := SplitTax(total, rate)
			require.NoError(t, err)
			assert.Equal(t, total, split.Base+split.Tax)
			assert.GreaterOrEqual(t, split.Base, int64(0))
			assert.GreaterOrEqual(t, split.Tax, int64(0))
		}
	}
}

func TestSplitTax_Deterministic(t *testing.T) {
	first, err := SplitTax(12345, StandardTaxRate)
	require.NoError(t, err)
	second, err := SplitTax(12345, StandardTaxRate)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
