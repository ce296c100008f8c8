package providers

import (
	"fmt"

	"gatepay/internal/models"

	"github.com/shopspring/decimal"
)

// InstrumentIDOf resolves an instrument reference to its vendor id.
func InstrumentIDOf(ref models.InstrumentRef) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("instrument: %w", models.ErrMissingID)
	}
	id := ref.InstrumentRefID()
	if id == "" {
		return "", fmt.Errorf("instrument: %w", models.ErrMissingID)
	}
	return id, nil
}

// OperationIDOf resolves an operation reference to its vendor id.
func OperationIDOf(ref models.OperationRef) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("operation: %w", models.ErrMissingID)
	}
	id := ref.OperationRefID()
	if id == "" {
		return "", fmt.Errorf("operation: %w", models.ErrMissingID)
	}
	return id, nil
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts an amount to cents, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts cents back to an amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
