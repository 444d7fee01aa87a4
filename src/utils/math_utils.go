package utils

import "math"

// Epsilon is the single tolerance used for all money/quantity comparisons.
// Lot splitting and conservation checks must go through ApproxEqual/IsZero
// instead of comparing floats directly.
const Epsilon = 1e-9

// ApproxEqual reports whether a and b are equal within Epsilon.
func ApproxEqual(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// IsZero reports whether v is zero within Epsilon.
func IsZero(v float64) bool {
	return math.Abs(v) <= Epsilon
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
