package jupiter

import (
	"fmt"

	"github.com/shopspring/decimal"

	"solana-stock-swap/internal/domain"
)

// ToBaseUnits converts a human amount to an integer string of smallest units.
// Any remainder below one unit is truncated.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (string, error) {
	if !amount.IsPositive() {
		return "", domain.NewValidationError("amount", "must be positive")
	}
	if decimals < 0 {
		return "", domain.NewValidationError("decimals", "must not be negative")
	}
	units := amount.Shift(decimals).Truncate(0)
	if !units.IsPositive() {
		return "", domain.NewValidationError("amount", "smaller than one base unit")
	}
	return units.String(), nil
}

// FromBaseUnits converts an integer string of smallest units to a human amount.
func FromBaseUnits(units string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(units)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse base units %q: %w", units, err)
	}
	return d.Shift(-decimals), nil
}

// IsPriceImpactAcceptable reports whether the quote's price impact is within
// maxImpactPercent. Price impact is a fraction; 0.01 is one percent.
func IsPriceImpactAcceptable(q *domain.Quote, maxImpactPercent float64) bool {
	if q == nil {
		return false
	}
	impact := q.PriceImpactPct.Mul(decimal.NewFromInt(100))
	return impact.LessThanOrEqual(decimal.NewFromFloat(maxImpactPercent))
}
