// Package stopping implements the look-then-leap policy for the optimal stopping problem.
package stopping

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Evaluate runs the look-then-leap rule over values with the given cutoff.
// Values 1..cutoff only set the benchmark; the first later value above it is
// taken, and the last value is taken if none is. Every valid input yields a selection.
func Evaluate[T constraints.Ordered](values []T, cutoff int) (Selection[T], error) {
	h, err := NewHunt[T](len(values), cutoff)
	if err != nil {
		return Selection[T]{}, err
	}
	for _, v := range values {
		if phase, _ := h.Observe(v); phase == Done {
			break
		}
	}

	sel, ok := h.Selection()
	if !ok {
		panic("hunt ended without a selection")
	}
	return sel, nil
}

// OptimalCutoff is the classic n/e cutoff, rounded to the nearest integer.
func OptimalCutoff(n int) int {
	if n <= 1 {
		return 0
	}
	return int(math.Round(float64(n) / math.E))
}
