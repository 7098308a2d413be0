package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"10.00", "cad", 1000},
		{"10", "usd", 1000},
		{"0.01", "eur", 1},
		{"19.99", "CAD", 1999},
		{"123456.70", "gbp", 12345670},
		{"500", "jpy", 500},
		{"1000", "KRW", 1000},
		{"10.000", "cad", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.currency, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMinorUnits_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		message  string
	}{
		{"sub-cent", "0.001", "cad", "more precision"},
		{"fractional yen", "10.5", "jpy", "more precision than JPY"},
		{"zero", "0", "cad", "must be positive"},
		{"negative", "-5.00", "cad", "must be positive"},
		{"overflow", "100000000000000000000", "cad", "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAmount)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("10.00").Equal(FromMinorUnits(1000, "cad")))
	assert.True(t, decimal.RequireFromString("500").Equal(FromMinorUnits(500, "jpy")))
	assert.Equal(t, "19.99", FromMinorUnits(1999, "usd").StringFixed(2))
}

func TestMinorUnitExponent(t *testing.T) {
	assert.Equal(t, int32(2), MinorUnitExponent("cad"))
	assert.Equal(t, int32(0), MinorUnitExponent("JPY"))
	assert.Equal(t, int32(2), MinorUnitExponent("xyz"))
}
