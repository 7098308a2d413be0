package gateway

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies are charged in whole units by the processor.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// MinorUnitExponent returns the number of decimal places the processor uses
// for currency. Three-decimal currencies are not special-cased.
func MinorUnitExponent(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currency)]; ok {
		return 0
	}
	return 2
}

// ToMinorUnits converts amount to the processor's integer representation.
// The conversion is exact: amounts with more precision than the currency
// supports are rejected instead of rounded.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, amount.String())
	}
	scaled := amount.Shift(MinorUnitExponent(currency))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more precision than %s supports", ErrInvalidAmount, amount.String(), strings.ToUpper(currency))
	}
	if scaled.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: %s is too large", ErrInvalidAmount, amount.String())
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -MinorUnitExponent(currency))
}
