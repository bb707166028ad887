package ads

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	microsPerUnit = decimal.NewFromInt(1_000_000)
	maxMicros     = decimal.NewFromInt(math.MaxInt64)
	minMicros     = decimal.NewFromInt(math.MinInt64)
)

// MaxBudgetAmount caps a daily budget in currency units.
const MaxBudgetAmount = 1_000_000_000

// ToMicros converts an amount in currency units to micros, rounding to the
// nearest micro. Amounts that do not fit in an int64 are an error.
func ToMicros(amount decimal.Decimal) (int64, error) {
	m := amount.Mul(microsPerUnit).Round(0)
	if m.GreaterThan(maxMicros) || m.LessThan(minMicros) {
		return 0, fmt.Errorf("amount %s is out of range", amount)
	}
	return m.IntPart(), nil
}

func FromMicros(micros int64) decimal.Decimal {
	return decimal.NewFromInt(micros).Div(microsPerUnit)
}

// FormatMicros renders micros as "12.50 EUR".
func FormatMicros(micros int64, currency string) string {
	return fmt.Sprintf("%s %s", FromMicros(micros).StringFixed(2), currency)
}
