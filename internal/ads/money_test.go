package ads

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicros(t *testing.T) {
	tests := []struct {
		amount string
		micros int64
	}{
		{"1", 1_000_000},
		{"12.5", 12_500_000},
		{"0.0000005", 1},
		{"0.1", 100_000},
		{"1234.567891", 1_234_567_891},
	}
	for _, tt := range tests {
		got, err := ToMicros(decimal.RequireFromString(tt.amount))
		require.NoError(t, err, tt.amount)
		assert.Equal(t, tt.micros, got, tt.amount)
	}
	assert.True(t, FromMicros(12_500_000).Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "12.50 EUR", FormatMicros(12_500_000, "EUR"))
}

func TestMicros_OutOfRange(t *testing.T) {
	_, err := ToMicros(decimal.RequireFromString("10000000000000"))
	assert.ErrorContains(t, err, "out of range")
	_, err = ToMicros(decimal.RequireFromString("-10000000000000"))
	assert.Error(t, err)

	edge := decimal.NewFromInt(math.MaxInt64).Div(microsPerUnit)
	got, err := ToMicros(edge)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
}
