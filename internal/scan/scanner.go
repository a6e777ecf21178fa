// Package scan engraves an image as diagonal hatching: pixels are quantised
// into darkness bands and each band adds another pass of lines.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/cwbudde/laserlines/internal/geometry"
	"github.com/cwbudde/laserlines/internal/intensity"
)

// MaxLevels is the highest band count the pass schedule supports.
const MaxLevels = 3

var (
	// ErrUnsupportedLevels is returned for a band count outside 1..MaxLevels.
	ErrUnsupportedLevels = errors.New("unsupported number of levels")
	// ErrBadSpacing is returned when the line distance rounds to zero pixels.
	ErrBadSpacing = errors.New("line distance smaller than one pixel")
)

// ConfigError reports an invalid scanner setting. It is returned before any
// line is emitted.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scan config: %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config holds the scanner parameters.
type Config struct {
	Levels      int     `json:"levels"`
	DistanceMM  float64 `json:"distanceMm"`
	PrecisionMM float64 `json:"precisionMm"`
}

// DefaultConfig returns the settings used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Levels:      MaxLevels,
		DistanceMM:  2,
		PrecisionMM: 0.2,
	}
}

// Validate checks the settings that do not depend on the image.
func (c Config) Validate() error {
	if c.Levels < 1 || c.Levels > MaxLevels {
		return &ConfigError{Field: "levels", Value: c.Levels, Err: ErrUnsupportedLevels}
	}
	if c.DistanceMM <= 0 {
		return &ConfigError{Field: "distanceMm", Value: c.DistanceMM, Err: ErrBadSpacing}
	}
	return nil
}

// Emitter receives the decided segments in pixel coordinates.
type Emitter interface {
	Canvas() geometry.Canvas
	EmitLine(start, end image.Point) error
}

// Pass describes one hatching sweep.
type Pass struct {
	MinLevel uint8 `json:"minLevel"`
	Shift    int   `json:"shift"`
	Crossed  bool  `json:"crossed"`
	Segments int   `json:"segments"`
}

// Result summarises a scan run.
type Result struct {
	DistancePx  int           `json:"distancePx"`
	PrecisionPx int           `json:"precisionPx"`
	Thresholds  []float64     `json:"thresholds"`
	Passes      []Pass        `json:"passes"`
	Segments    int           `json:"segments"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Schedule returns the passes run for the given level count and distance.
// The distance is forced even for three levels so the half shift lands on a
// whole pixel.
func Schedule(levels, distancePx int) ([]Pass, int, error) {
	if levels < 1 || levels > MaxLevels {
		return nil, 0, &ConfigError{Field: "levels", Value: levels, Err: ErrUnsupportedLevels}
	}
	if levels > 2 {
		distancePx += distancePx % 2
	}

	passes := []Pass{{MinLevel: 1}}
	if levels > 1 {
		passes = append(passes, Pass{MinLevel: 2, Crossed: true})
	}
	if levels > 2 {
		passes = append(passes,
			Pass{MinLevel: 3, Shift: distancePx / 2},
			Pass{MinLevel: 3, Shift: distancePx / 2, Crossed: true},
		)
	}
	return passes, distancePx, nil
}

// Run quantises grid and emits every hatching run through em.
func Run(ctx context.Context, grid *intensity.Grid, em Emitter, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	canvas := em.Canvas()
	distancePx := canvas.ToPixels(cfg.DistanceMM)
	if distancePx < 1 {
		return nil, &ConfigError{Field: "distanceMm", Value: cfg.DistanceMM, Err: ErrBadSpacing}
	}
	precisionPx := max(1, canvas.ToPixels(cfg.PrecisionMM))

	passes, distancePx, err := Schedule(cfg.Levels, distancePx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	bands := Quantize(grid, cfg.Levels)
	result := &Result{
		DistancePx:  distancePx,
		PrecisionPx: precisionPx,
		Thresholds:  Thresholds(grid, cfg.Levels),
	}

	slog.Info("Starting scan",
		"levels", cfg.Levels,
		"distance_px", distancePx,
		"precision_px", precisionPx,
		"thresholds", result.Thresholds,
	)

	for _, p := range passes {
		n, err := runPass(ctx, bands, em, distancePx, precisionPx, p)
		if err != nil {
			return nil, err
		}
		p.Segments = n
		result.Passes = append(result.Passes, p)
		result.Segments += n
		slog.Debug("Scan pass complete", "min_level", p.MinLevel, "shift", p.Shift, "crossed", p.Crossed, "segments", n)
	}

	result.Elapsed = time.Since(start)
	slog.Info("Scan complete", "segments", result.Segments, "elapsed", result.Elapsed)
	return result, nil
}

// runPass walks one line family and emits every maximal run of samples at or
// above the pass level. A run needs two distinct samples to be emitted.
func runPass(ctx context.Context, bands *Bands, em Emitter, distancePx, precisionPx int, p Pass) (int, error) {
	emitted := 0
	for _, d := range DiagonalLines(bands.W, bands.H, distancePx, p.Shift, p.Crossed) {
		if err := ctx.Err(); err != nil {
			return emitted, err
		}

		var runStart, runEnd image.Point
		inRun, hasEnd := false, false

		for _, pt := range d.Samples(precisionPx) {
			if bands.At(pt.X, pt.Y) >= p.MinLevel {
				if !inRun {
					runStart, inRun = pt, true
				} else {
					runEnd, hasEnd = pt, true
				}
				continue
			}
			if hasEnd {
				if err := em.EmitLine(runStart, runEnd); err != nil {
					return emitted, err
				}
				emitted++
			}
			inRun, hasEnd = false, false
		}
		if hasEnd {
			if err := em.EmitLine(runStart, runEnd); err != nil {
				return emitted, err
			}
			emitted++
		}
	}
	return emitted, nil
}
