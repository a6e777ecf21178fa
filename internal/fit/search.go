package fit

import (
	"github.com/cwbudde/laserlines/internal/opt"
	"github.com/cwbudde/laserlines/internal/shape"
)

// Searcher finds one candidate shape for the current residual.
type Searcher interface {
	Name() string
	Search(f *Fitter) (shape.Shape, float64, error)
}

// GreedySearch is the default rejection sampling plus hill climb.
type GreedySearch struct{}

// Name implements Searcher.
func (GreedySearch) Name() string { return string(SearchGreedy) }

// Search implements Searcher.
func (GreedySearch) Search(f *Fitter) (shape.Shape, float64, error) {
	return f.BestRandomShape()
}

// MayflySearch minimises the negated score over the four normalised endpoint
// coordinates of a line. Each search draws a fresh seed from the fitter so
// consecutive searches explore different lines.
type MayflySearch struct {
	Iterations int
	Population int
}

// Name implements Searcher.
func (m *MayflySearch) Name() string { return string(SearchMayfly) }

// Search implements Searcher. Results below MinThreshold are reported as
// ErrNoCandidate so the epoch loop skips them like a failed rejection run.
func (m *MayflySearch) Search(f *Fitter) (shape.Shape, float64, error) {
	w, h := f.residual.W, f.residual.H
	eval := func(v []float64) float64 {
		return -f.Score(shape.LineFromVector(w, h, v))
	}

	optimizer := opt.NewMayfly(m.Iterations, max(m.Population, opt.MinPopulation), f.rng.Int63())
	sol, err := optimizer.Minimize(eval, opt.Bounds{Lower: 0, Upper: 1}, 4)
	if err != nil {
		return nil, 0, err
	}

	best := shape.LineFromVector(w, h, sol.Position)
	score := f.Score(best)
	if score < f.cfg.MinThreshold {
		return nil, score, ErrNoCandidate
	}
	return best, score, nil
}
