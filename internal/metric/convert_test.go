package metric

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOunceToTenGrams(t *testing.T) {
	tests := []struct {
		ounce string
		want  int64
	}{
		{"311.034768", 100},
		{"31.1034768", 10},
		{"0", 0},
		// 10/31.1034768 of 1.5551738400 is exactly 0.5, rounded away from zero.
		{"1.55517384", 1},
		{"1.5551738", 0},
		{"243012.345", 78130},
	}
	for _, tt := range tests {
		got := OunceToTenGrams(decimal.RequireFromString(tt.ounce))
		assert.Truef(t, got.Equal(decimal.NewFromInt(tt.want)), "OunceToTenGrams(%s) = %s, want %d", tt.ounce, got, tt.want)
	}
}
