package opt

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MinPopulation is the smallest population the Mayfly library accepts.
const MinPopulation = 20

// MayflyAdapter runs the Mayfly algorithm through the Optimizer interface.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a Mayfly optimizer. Runs with the same seed are
// reproducible.
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Minimize implements Optimizer. The returned position is clamped to bounds.
func (m *MayflyAdapter) Minimize(eval Objective, bounds Bounds, dim int) (Solution, error) {
	if err := bounds.Validate(); err != nil {
		return Solution{}, err
	}
	if m.popSize < MinPopulation {
		return Solution{}, fmt.Errorf("mayfly: %d < %d: %w", m.popSize, MinPopulation, ErrPopulation)
	}
	if dim < 1 || m.maxIters < 1 {
		return Solution{}, fmt.Errorf("mayfly: invalid problem dim=%d iterations=%d", dim, m.maxIters)
	}

	evals := 0
	counted := func(x []float64) float64 {
		evals++
		return eval(x)
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = counted
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = bounds.Lower
	config.UpperBound = bounds.Upper
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return Solution{}, fmt.Errorf("mayfly: %w", err)
	}

	pos := make([]float64, dim)
	for i := range pos {
		pos[i] = bounds.Clamp(result.GlobalBest.Position[i])
	}

	slog.Debug("Mayfly run complete", "cost", result.GlobalBest.Cost, "evaluations", evals, "seed", m.seed)

	return Solution{Position: pos, Cost: result.GlobalBest.Cost, Evaluations: evals}, nil
}
