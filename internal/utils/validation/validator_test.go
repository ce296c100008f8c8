package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_Amount(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"10", true},
		{"10.50", true},
		{"10.500", true},
		{"10.505", false},
		{"0", false},
		{"-1", false},
		{"abc", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := New()
			v.Amount(tt.raw, "amount")
			assert.Equal(t, tt.valid, v.Valid(), v.Error())
		})
	}
}

func TestValidator_OptionalAmount(t *testing.T) {
	v := New()
	assert.False(t, v.OptionalAmount("", "amount").Valid)
	got := v.OptionalAmount("5.25", "amount")
	assert.True(t, got.Valid)
	assert.Equal(t, "5.25", got.Decimal.StringFixed(2))
	assert.True(t, v.Valid())
}

func TestValidator_AbsoluteURL(t *testing.T) {
	v := New()
	v.AbsoluteURL("https://shop.example/return", "redirect_url")
	assert.True(t, v.Valid())

	v.AbsoluteURL("/relative", "redirect_url")
	v.AbsoluteURL("", "redirect_url")
	assert.Len(t, v.Errors, 2)
	assert.Contains(t, v.Error(), "redirect_url: must be an absolute")
}
