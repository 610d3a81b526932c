package common

import "math"

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// RoundHalfUp rounds to the nearest integer, with halves going towards
// positive infinity (2.5 -> 3, -2.5 -> -2).
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
