// Package mathx contains small numeric helpers not present in package math
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
// Halves round to even, so Round(0.25, 0.1) is 0.2 and Round(0.35, 0.1) is 0.4.
func Round(x, unit float64) float64 {
	inv := 1 / unit
	return math.RoundToEven(x*inv) / inv
}
