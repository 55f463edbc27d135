package core

import "math"

// -----------------------------------------------------------------------------

// Finite replaces NaN and ±Inf with 0.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the change from previous to current in
// percent. A zero previous value yields 0 rather than a division error.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return Finite((current - previous) / previous * 100)
}

// -----------------------------------------------------------------------------

// ResolvePreviousClose returns the first present, finite candidate and
// falls back to price. A present zero is kept; ChangeAndPercent maps it to 0%.
func ResolvePreviousClose(price float64, candidates ...*float64) float64 {
	for _, c := range candidates {
		if c != nil && !math.IsNaN(*c) && !math.IsInf(*c, 0) {
			return *c
		}
	}
	return price
}

// -----------------------------------------------------------------------------

// ChangeAndPercent applies provider-supplied values when present and derives
// the missing ones from price and previousClose. Percent is always finite.
func ChangeAndPercent(price, previousClose float64, providedChange, providedPercent *float64) (change, percent float64) {
	if providedChange != nil {
		change = *providedChange
	} else {
		change = price - previousClose
	}
	change = Finite(change)

	if providedPercent != nil {
		percent = Finite(*providedPercent)
	} else if previousClose != 0 {
		percent = Finite(change / previousClose * 100)
	}

	return change, percent
}
