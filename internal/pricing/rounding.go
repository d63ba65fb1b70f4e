// Package pricing implements the price determination core: offer analysis,
// final price calculation, variant delta resolution, and update consolidation.
package pricing

import "math"

// RoundUp rounds v up (ceiling) to the given number of decimal places.
// Ceiling is a deliberate policy: rounding always favors the seller.
func RoundUp(v float64, places int) float64 {
	m := math.Pow(10, float64(places))
	return math.Ceil(v*m) / m
}

// RoundDown rounds v down (floor) to the given number of decimal places.
func RoundDown(v float64, places int) float64 {
	m := math.Pow(10, float64(places))
	return math.Floor(v*m) / m
}
