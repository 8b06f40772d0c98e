package billing

import "math"

// DefaultRatePerHundredChars is the metered price in dollars per 100
// characters of input text.
const DefaultRatePerHundredChars = 0.01

// ChargeCents computes the metered charge in cents for a request of
// charCount characters at ratePerHundredChars dollars per 100 characters,
// rounding up. Total for all inputs: non-positive counts or rates price at 0
// (rejected upstream, but the function never faults).
func ChargeCents(charCount int, ratePerHundredChars float64) int64 {
	if charCount <= 0 || ratePerHundredChars <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(charCount) / 100 * ratePerHundredChars * 100))
}
