package revenue

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"0", "0.00"},
		{"-10.005", "-10.01"},
		{"3000.0000000000000000", "3000.00"},
		{"2333.3333333333333333", "2333.33"},
		{"1.995", "2.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundMoney(decimal.RequireFromString(tt.in))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}

	t.Run("float input", func(t *testing.T) {
		assert.Equal(t, "10.01", RoundMoney(decimal.NewFromFloat(10.005)).StringFixed(2))
	})
}

func TestRoundMoneyFloat(t *testing.T) {
	assert.Equal(t, 10.01, RoundMoneyFloat(10.005))
	assert.Equal(t, -10.01, RoundMoneyFloat(-10.005))
	assert.Equal(t, 1.01, RoundMoneyFloat(1.005))
	assert.Equal(t, 0.0, RoundMoneyFloat(0))
	assert.Equal(t, 9000.0, RoundMoneyFloat(9000))
	assert.Equal(t, 0.0, RoundMoneyFloat(math.NaN()))
	assert.Equal(t, 0.0, RoundMoneyFloat(math.Inf(1)))
}

func TestMoneyToFloat(t *testing.T) {
	assert.Equal(t, 2333.33, MoneyToFloat(decimal.RequireFromString("2333.3333")))
	assert.Equal(t, 0.0, MoneyToFloat(decimal.Zero))
}
