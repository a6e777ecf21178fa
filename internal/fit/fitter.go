// Package fit approximates an image by repeatedly searching for the line
// that best fits the remaining darkness and engraving it.
package fit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cwbudde/laserlines/internal/intensity"
	"github.com/cwbudde/laserlines/internal/shape"
)

// ErrNoCandidate is returned when no random start reaches the minimum score
// within the rejection budget.
var ErrNoCandidate = errors.New("no candidate shape reached the minimum score")

// ConsistencyError reports a stamp that does not cover the geometry it was
// computed from.
type ConsistencyError struct {
	Shape     shape.Shape
	StampSize image.Point
	Declared  image.Point
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("stamp of %v is %dx%d, geometry spans %dx%d",
		e.Shape, e.StampSize.X, e.StampSize.Y, e.Declared.X, e.Declared.Y)
}

// Emitter receives the applied segments in pixel coordinates.
type Emitter interface {
	EmitLine(start, end image.Point) error
}

// Prepare turns img into the initial residual: optional downscale by
// approxLevel, grayscale, then inversion so dark pixels hold high values.
func Prepare(img image.Image, approxLevel int) (*intensity.Grid, error) {
	small, err := intensity.Downscale(img, approxLevel)
	if err != nil {
		return nil, err
	}
	return intensity.FromImage(small).Inverted(), nil
}

// Fitter owns the residual and the random source of a fitting run.
type Fitter struct {
	residual *intensity.Grid
	em       Emitter
	cfg      Config
	rng      *rand.Rand
	search   Searcher
}

// New creates a fitter over residual. The grid is modified in place as shapes
// are applied. em may be nil, in which case applied shapes are only
// subtracted.
func New(residual *intensity.Grid, em Emitter, cfg Config) (*Fitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if residual.W < 1 || residual.H < 1 {
		return nil, fmt.Errorf("empty residual %dx%d", residual.W, residual.H)
	}

	f := &Fitter{
		residual: residual,
		em:       em,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}
	if cfg.Search == SearchMayfly {
		f.search = &MayflySearch{Iterations: cfg.MayflyIterations, Population: cfg.MayflyPopulation}
	} else {
		f.search = GreedySearch{}
	}
	return f, nil
}

// Residual returns the grid being fitted.
func (f *Fitter) Residual() *intensity.Grid {
	return f.residual
}

// Rand returns the fitter's random source.
func (f *Fitter) Rand() *rand.Rand {
	return f.rng
}

// RandomShape draws a uniformly random line on the residual.
func (f *Fitter) RandomShape() shape.Shape {
	return shape.RandomLine(f.residual.W, f.residual.H, f.rng)
}

// Score rates how well s fits the residual: the share of its deposit that
// does not push the residual below zero. Overshoot is measured over the
// whole bounding box, so negative residual already under the box counts
// against the shape. A shape that deposits nothing scores -1.
func (f *Fitter) Score(s shape.Shape) float64 {
	st := s.Stamp()
	weight := st.Weight()
	if weight < 1 {
		return -1
	}

	r := st.Bounds().Intersect(f.residual.Bounds())
	over := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			rest := int(f.residual.At(x, y)) - int(st.At(x-st.Origin.X, y-st.Origin.Y))
			if rest < 0 {
				over -= rest
			}
		}
	}
	return float64(weight-over) / float64(weight)
}

// BestRandomShape samples random shapes until one scores at least
// MinThreshold, then hill-climbs it for up to MaxIter morphs. Only strict
// improvements are kept; the climb stops once a proposal scores above 1-Eps.
func (f *Fitter) BestRandomShape() (shape.Shape, float64, error) {
	var best shape.Shape
	score := -1.0
	for tries := 0; best == nil || score < f.cfg.MinThreshold; tries++ {
		if f.cfg.MaxRejections > 0 && tries >= f.cfg.MaxRejections {
			return nil, score, ErrNoCandidate
		}
		best = f.RandomShape()
		score = f.Score(best)
	}

	for i := 0; i < f.cfg.MaxIter; i++ {
		candidate := best.Morph(0.9-score, f.rng)
		value := f.Score(candidate)
		if value > score {
			best, score = candidate, value
		}
		if value > 1-f.cfg.Eps {
			break
		}
	}
	return best, score, nil
}

// Apply subtracts the shape from the residual and engraves it.
func (f *Fitter) Apply(s shape.Shape) error {
	st := s.Stamp()
	f.residual.Subtract(st)

	seg, ok := s.(shape.Segmenter)
	if !ok {
		return nil
	}
	a, b := seg.Segment()
	declared := image.Pt(abs(a.X-b.X), abs(a.Y-b.Y))
	if st.W < declared.X || st.H < declared.Y {
		return &ConsistencyError{Shape: s, StampSize: image.Pt(st.W, st.H), Declared: declared}
	}
	if f.em == nil {
		return nil
	}
	if err := f.em.EmitLine(a, b); err != nil {
		return fmt.Errorf("emit %v: %w", s, err)
	}
	return nil
}

// EpochStats summarises one epoch of searches.
type EpochStats struct {
	Epoch    int           `json:"epoch"`
	Epochs   int           `json:"epochs"`
	Mean     float64       `json:"mean"`
	Max      float64       `json:"max"`
	Applied  int           `json:"applied"`
	Searches int           `json:"searches"`
	Skipped  int           `json:"skipped"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Result summarises a fitting run.
type Result struct {
	Epochs    []EpochStats  `json:"epochs"`
	Applied   int           `json:"applied"`
	Converged bool          `json:"converged"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Run performs EpochCount epochs of EpochSize searches, applying every result
// that scores above ApplyThreshold. observe, if not nil, is called after each
// epoch. The context is checked before every search.
func (f *Fitter) Run(ctx context.Context, observe func(EpochStats)) (*Result, error) {
	start := time.Now()
	result := &Result{}
	tracker := NewConvergenceTracker(f.cfg.Convergence)

	slog.Info("Starting fit",
		"width", f.residual.W,
		"height", f.residual.H,
		"epochs", f.cfg.EpochCount,
		"epoch_size", f.cfg.EpochSize,
		"search", f.search.Name(),
		"seed", f.cfg.Seed,
	)

	for epoch := 1; epoch <= f.cfg.EpochCount; epoch++ {
		epochStart := time.Now()
		stats := EpochStats{Epoch: epoch, Epochs: f.cfg.EpochCount}
		var sum float64

		for i := 0; i < f.cfg.EpochSize; i++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			s, value, err := f.search.Search(f)
			if errors.Is(err, ErrNoCandidate) {
				stats.Skipped++
				continue
			}
			if err != nil {
				return result, err
			}

			if stats.Searches == 0 || value > stats.Max {
				stats.Max = value
			}
			stats.Searches++
			sum += value

			if value > f.cfg.ApplyThreshold {
				if err := f.Apply(s); err != nil {
					return result, err
				}
				stats.Applied++
			}
		}

		if stats.Searches > 0 {
			stats.Mean = sum / float64(stats.Searches)
		}
		stats.Elapsed = time.Since(epochStart)
		result.Epochs = append(result.Epochs, stats)
		result.Applied += stats.Applied

		slog.Info("Epoch complete",
			"epoch", epoch,
			"of", f.cfg.EpochCount,
			"mean", stats.Mean,
			"max", stats.Max,
			"applied", stats.Applied,
			"skipped", stats.Skipped,
		)
		if observe != nil {
			observe(stats)
		}

		if tracker.Update(stats.Applied, stats.Searches+stats.Skipped) {
			result.Converged = true
			break
		}
	}

	result.Elapsed = time.Since(start)
	slog.Info("Fit complete", "applied", result.Applied, "epochs", len(result.Epochs), "elapsed", result.Elapsed)
	return result, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
