// Package opt puts population based optimisers behind a small interface so
// the fitter can use them as an alternative shape search.
package opt

import (
	"errors"
	"fmt"
)

// ErrPopulation is returned when the population is too small for the
// optimiser to seed its swarms.
var ErrPopulation = errors.New("population too small")

// Objective is minimised by an Optimizer.
type Objective func(x []float64) float64

// Bounds is the box every coordinate of a candidate lives in. The same
// interval applies to every dimension.
type Bounds struct {
	Lower, Upper float64
}

// Validate checks that the interval is not empty.
func (b Bounds) Validate() error {
	if !(b.Lower < b.Upper) {
		return fmt.Errorf("empty bounds [%g, %g]", b.Lower, b.Upper)
	}
	return nil
}

// Clamp pulls v into the interval.
func (b Bounds) Clamp(v float64) float64 {
	return min(max(v, b.Lower), b.Upper)
}

// Solution is the best candidate found by a run.
type Solution struct {
	Position    []float64
	Cost        float64
	Evaluations int
}

// Optimizer minimises an objective over a dim-dimensional box.
type Optimizer interface {
	Minimize(eval Objective, bounds Bounds, dim int) (Solution, error)
}
