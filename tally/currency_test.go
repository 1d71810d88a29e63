package tally_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lariv/tally-engine/tally"
)

func TestFormatIndianCurrency(t *testing.T) {
	tests := []struct {
		amount int
		want   string
	}{
		{0, "₹0"},
		{7, "₹7"},
		{100, "₹100"},
		{999, "₹999"},
		{1000, "₹1,000"},
		{1234, "₹1,234"},
		{12345, "₹12,345"},
		{123456, "₹1,23,456"},
		{1234567, "₹12,34,567"},
		{12345678, "₹1,23,45,678"},
		{123456789, "₹12,34,56,789"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tally.FormatIndianCurrency(tc.amount), "amount %d", tc.amount)
	}
}
