// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"
)

// DecimalPrecision is the precision for currency rounding (2 decimal places).
const DecimalPrecision = 100

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*DecimalPrecision) / DecimalPrecision
}

// Min returns the minimum of two float64 values
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Clamp bounds val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	return Max(lo, Min(hi, val))
}

// Clamp01 bounds val to the unit interval.
func Clamp01(val float64) float64 {
	return Clamp(val, 0, 1)
}

// FloorCrates returns floor(offered × ratio), never negative.
func FloorCrates(offered int, ratio float64) int {
	n := int(math.Floor(float64(offered) * ratio))
	if n < 0 {
		return 0
	}
	return n
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}
