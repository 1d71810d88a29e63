package tally

import "strconv"

// FormatIndianCurrency renders a non-negative rupee amount using the
// South-Asian digit grouping: the rightmost group has 3 digits, every
// group to its left has 2.
//
//	0       -> "₹0"
//	100     -> "₹100"
//	1234    -> "₹1,234"
//	1234567 -> "₹12,34,567"
func FormatIndianCurrency(amount int) string {
	s := strconv.Itoa(amount)
	if len(s) <= 3 {
		return "₹" + s
	}
	result := s[len(s)-3:]
	s = s[:len(s)-3]
	for len(s) > 0 {
		cut := len(s) - 2
		if cut < 0 {
			cut = 0
		}
		result = s[cut:] + "," + result
		s = s[:cut]
	}
	return "₹" + result
}
