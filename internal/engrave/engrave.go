// Package engrave runs one image-to-toolpath conversion end to end: it loads
// the image, drives the chosen algorithm through a shared emitter and stores
// the resulting artifacts.
package engrave

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/laserlines/internal/fit"
	"github.com/cwbudde/laserlines/internal/gcode"
	"github.com/cwbudde/laserlines/internal/geometry"
	"github.com/cwbudde/laserlines/internal/imagesource"
	"github.com/cwbudde/laserlines/internal/intensity"
	"github.com/cwbudde/laserlines/internal/preview"
	"github.com/cwbudde/laserlines/internal/scan"
	"github.com/cwbudde/laserlines/internal/store"
)

// Options controls how a run is executed and persisted.
type Options struct {
	// Store receives the run record and artifacts. Nil keeps everything in
	// memory.
	Store store.Store

	// RunID names the run. A random UUID is used when empty.
	RunID string

	// Image overrides loading Config.Image from disk. Config.Image is still
	// recorded as the source name.
	Image image.Image

	// OnEpoch is called after every fitter epoch.
	OnEpoch func(fit.EpochStats)
}

// Outcome is everything a run produced.
type Outcome struct {
	Run      *store.Run
	Program  string
	Preview  *preview.Image
	Residual *intensity.Grid // fit runs only
}

// Run executes cfg. Invalid settings and unreadable images fail before any
// run record is written. Once processing has started a record is always
// stored: completed, cancelled (with the partial toolpath) or failed.
func Run(ctx context.Context, cfg Config, opts Options) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	img := opts.Image
	if img == nil {
		var err error
		img, err = imagesource.Load(cfg.Image)
		if err != nil {
			return nil, err
		}
	}

	b := img.Bounds()
	canvas, err := geometry.NewCanvas(b.Dx(), b.Dy(), cfg.WidthMM)
	if err != nil {
		return nil, &ValidationError{Field: "image", Err: err}
	}
	writer, err := gcode.NewWriter(cfg.Device)
	if err != nil {
		return nil, &ValidationError{Field: "device", Err: err}
	}
	prev, err := preview.New(canvas)
	if err != nil {
		return nil, &ValidationError{Field: "widthMm", Err: err}
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	run := &store.Run{
		ID:        runID,
		Config:    cfg.RunConfig(),
		StartedAt: time.Now(),
	}
	out := &Outcome{Run: run, Preview: prev}
	logger := slog.With("run_id", runID, "algorithm", cfg.Algorithm)

	logger.Info("Starting run",
		"image", cfg.Image,
		"width_px", canvas.WidthPx,
		"height_px", canvas.HeightPx,
		"width_mm", canvas.WidthMM,
		"height_mm", canvas.HeightMM,
		"pixel_size", canvas.PixelSize,
	)

	var em *geometry.Emitter
	switch cfg.Algorithm {
	case store.AlgorithmScan:
		em = geometry.NewEmitter(canvas, writer, prev)
		run.Scan, err = scan.Run(ctx, intensity.FromImage(img), em, cfg.Scan)
	case store.AlgorithmFit:
		em, err = runFit(ctx, cfg, opts, img, canvas, writer, prev, out)
	}

	run.Canvas = em.Canvas()
	run.Segments = em.Count()
	if r, ok := em.Extent(); ok {
		run.Extent = &store.Extent{MinX: r.Min.X, MinY: r.Min.Y, MaxX: r.Max.X, MaxY: r.Max.Y}
	}
	run.FinishedAt = time.Now()
	out.Program = writer.String()

	switch {
	case err == nil:
		run.Status = store.StatusCompleted
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		run.Status = store.StatusCancelled
		run.Error = err.Error()
	default:
		run.Status = store.StatusFailed
		run.Error = err.Error()
	}

	if opts.Store != nil {
		if perr := persist(opts.Store, out); perr != nil {
			logger.Error("Failed to persist run", "error", perr)
			if err == nil {
				err = perr
			}
		}
	}

	logger.Info("Run finished",
		"status", run.Status,
		"segments", run.Segments,
		"elapsed", run.FinishedAt.Sub(run.StartedAt),
	)
	return out, err
}

// runFit prepares the residual, rescales the canvas to it and runs the
// fitter, streaming epochs into the run trace.
func runFit(ctx context.Context, cfg Config, opts Options, img image.Image, canvas geometry.Canvas,
	writer *gcode.Writer, prev *preview.Image, out *Outcome) (*geometry.Emitter, error) {
	residual, err := fit.Prepare(img, cfg.Fit.ApproxLevel)
	if err != nil {
		return geometry.NewEmitter(canvas, writer, prev), err
	}
	out.Residual = residual

	if residual.W != canvas.WidthPx || residual.H != canvas.HeightPx {
		scaled, err := canvas.Rescale(residual.W, residual.H)
		if err != nil {
			return geometry.NewEmitter(canvas, writer, prev), err
		}
		canvas = scaled
	}
	em := geometry.NewEmitter(canvas, writer, prev)

	fitter, err := fit.New(residual, em, cfg.Fit)
	if err != nil {
		return em, err
	}

	var trace *store.TraceWriter
	if opts.Store != nil {
		trace, err = opts.Store.OpenTrace(out.Run.ID)
		if err != nil {
			return em, err
		}
		defer func() {
			if cerr := trace.Close(); cerr != nil {
				slog.Warn("Failed to close trace", "run_id", out.Run.ID, "error", cerr)
			}
		}()
	}

	observe := func(stats fit.EpochStats) {
		if trace != nil {
			if err := trace.Write(store.TraceEntry{EpochStats: stats}); err != nil {
				slog.Warn("Failed to write trace entry", "run_id", out.Run.ID, "epoch", stats.Epoch, "error", err)
			}
		}
		if opts.OnEpoch != nil {
			opts.OnEpoch(stats)
		}
	}

	out.Run.Fit, err = fitter.Run(ctx, observe)
	return em, err
}

// persist stores the record and, unless the run failed, its artifacts.
func persist(s store.Store, out *Outcome) error {
	run := out.Run
	if run.Status != store.StatusFailed {
		err := s.WriteArtifact(run.ID, store.ArtifactToolpath, func(w io.Writer) error {
			_, err := io.WriteString(w, out.Program)
			return err
		})
		if err != nil {
			return err
		}
		if err := s.WriteArtifact(run.ID, store.ArtifactPreview, out.Preview.EncodePNG); err != nil {
			return err
		}
		if out.Residual != nil {
			err := s.WriteArtifact(run.ID, store.ArtifactResidual, func(w io.Writer) error {
				return png.Encode(w, preview.ResidualImage(out.Residual))
			})
			if err != nil {
				return err
			}
		}
	}
	if err := s.SaveRun(run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}
