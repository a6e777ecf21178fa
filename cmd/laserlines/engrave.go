package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwbudde/laserlines/internal/engrave"
	"github.com/cwbudde/laserlines/internal/fit"
	"github.com/cwbudde/laserlines/internal/preview"
	"github.com/cwbudde/laserlines/internal/store"
)

var (
	// flagCfg receives flag values; only flags the user set are copied
	// over the defaults and the preset.
	flagCfg      = engrave.Defaults()
	presetName   string
	outPath      string
	previewPath  string
	residualPath string
	saveRun      bool
	searchKind   string
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Engrave an image as diagonal hatching",
	Long: `Quantises the image into up to three darkness bands and hatches each band
with diagonal lines. Darker bands receive additional crossed and shifted
passes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEngrave(cmd, store.AlgorithmScan, args[0])
	},
}

var fitCmd = &cobra.Command{
	Use:   "fit <image>",
	Short: "Approximate an image with straight strokes",
	Long: `Repeatedly searches for the line that best matches the remaining
darkness of the image, subtracts it and engraves it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEngrave(cmd, store.AlgorithmFit, args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, fitCmd} {
		f := c.Flags()
		f.Float64Var(&flagCfg.WidthMM, "width", flagCfg.WidthMM, "Engraved width in millimetres")
		f.StringVar(&presetName, "preset", "", fmt.Sprintf("Start from a preset %v", engrave.PresetNames()))
		f.StringVar(&outPath, "out", "out.gcode", "G-code output path")
		f.StringVar(&previewPath, "preview", "", "Preview PNG path (empty to skip)")
		f.BoolVar(&saveRun, "save", false, "Store the run and its artifacts under --data-dir")

		f.IntVar(&flagCfg.Device.MoveSpeed, "move-speed", flagCfg.Device.MoveSpeed, "Travel feed rate")
		f.Float64Var(&flagCfg.Device.Speed, "speed", flagCfg.Device.Speed, "Engraving feed rate")
		f.IntVar(&flagCfg.Device.Power, "power", flagCfg.Device.Power, "Laser power (0-255)")
		f.Float64Var(&flagCfg.Device.DefaultZ, "z", flagCfg.Device.DefaultZ, "Focus height")
		f.Float64Var(&flagCfg.Device.PauseSeconds, "pause", flagCfg.Device.PauseSeconds, "Dwell after switching the laser on, in seconds")
		f.Float64Var(&flagCfg.Device.CornerX, "corner-x", flagCfg.Device.CornerX, "Machine X of the work area corner")
		f.Float64Var(&flagCfg.Device.CornerY, "corner-y", flagCfg.Device.CornerY, "Machine Y of the work area corner")
		f.Float64Var(&flagCfg.Device.CornerMargin, "corner-margin", flagCfg.Device.CornerMargin, "Margin added to the corner")
		f.BoolVar(&flagCfg.Device.AutoHome, "home", flagCfg.Device.AutoHome, "Home all axes before engraving")
	}

	sf := scanCmd.Flags()
	sf.IntVar(&flagCfg.Scan.Levels, "levels", flagCfg.Scan.Levels, "Number of darkness bands (1-3)")
	sf.Float64Var(&flagCfg.Scan.DistanceMM, "distance", flagCfg.Scan.DistanceMM, "Distance between hatch lines in millimetres")
	sf.Float64Var(&flagCfg.Scan.PrecisionMM, "precision", flagCfg.Scan.PrecisionMM, "Sampling step along a hatch line in millimetres")

	ff := fitCmd.Flags()
	ff.IntVar(&flagCfg.Fit.ApproxLevel, "approx", flagCfg.Fit.ApproxLevel, "Downscale factor before fitting")
	ff.IntVar(&flagCfg.Fit.EpochCount, "epochs", flagCfg.Fit.EpochCount, "Number of epochs")
	ff.IntVar(&flagCfg.Fit.EpochSize, "epoch-size", flagCfg.Fit.EpochSize, "Searches per epoch")
	ff.IntVar(&flagCfg.Fit.MaxIter, "max-iter", flagCfg.Fit.MaxIter, "Hill climb steps per search")
	ff.Float64Var(&flagCfg.Fit.ApplyThreshold, "apply-threshold", flagCfg.Fit.ApplyThreshold, "Score a line needs to be engraved")
	ff.Int64Var(&flagCfg.Fit.Seed, "seed", flagCfg.Fit.Seed, "Random seed")
	ff.StringVar(&searchKind, "search", string(flagCfg.Fit.Search), "Search strategy: greedy or mayfly")
	ff.BoolVar(&flagCfg.Fit.Convergence.Enabled, "converge", false, "Stop early once epochs stop applying lines")
	ff.StringVar(&residualPath, "residual", "", "Residual PNG path (empty to skip)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(fitCmd)
}

// buildConfig layers the preset and the explicitly set flags over the
// defaults.
func buildConfig(cmd *cobra.Command, algorithm, image string) (engrave.Config, error) {
	cfg := engrave.Defaults()
	if presetName != "" {
		if err := engrave.ApplyPreset(&cfg, presetName); err != nil {
			return cfg, err
		}
	}
	cfg.Image = image
	cfg.Algorithm = algorithm

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			apply()
		}
	}

	set("width", func() { cfg.WidthMM = flagCfg.WidthMM })
	set("move-speed", func() { cfg.Device.MoveSpeed = flagCfg.Device.MoveSpeed })
	set("speed", func() { cfg.Device.Speed = flagCfg.Device.Speed })
	set("power", func() { cfg.Device.Power = flagCfg.Device.Power })
	set("z", func() { cfg.Device.DefaultZ = flagCfg.Device.DefaultZ })
	set("pause", func() { cfg.Device.PauseSeconds = flagCfg.Device.PauseSeconds })
	set("corner-x", func() { cfg.Device.CornerX = flagCfg.Device.CornerX })
	set("corner-y", func() { cfg.Device.CornerY = flagCfg.Device.CornerY })
	set("corner-margin", func() { cfg.Device.CornerMargin = flagCfg.Device.CornerMargin })
	set("home", func() { cfg.Device.AutoHome = flagCfg.Device.AutoHome })

	set("levels", func() { cfg.Scan.Levels = flagCfg.Scan.Levels })
	set("distance", func() { cfg.Scan.DistanceMM = flagCfg.Scan.DistanceMM })
	set("precision", func() { cfg.Scan.PrecisionMM = flagCfg.Scan.PrecisionMM })

	set("approx", func() { cfg.Fit.ApproxLevel = flagCfg.Fit.ApproxLevel })
	set("epochs", func() { cfg.Fit.EpochCount = flagCfg.Fit.EpochCount })
	set("epoch-size", func() { cfg.Fit.EpochSize = flagCfg.Fit.EpochSize })
	set("max-iter", func() { cfg.Fit.MaxIter = flagCfg.Fit.MaxIter })
	set("apply-threshold", func() { cfg.Fit.ApplyThreshold = flagCfg.Fit.ApplyThreshold })
	set("seed", func() { cfg.Fit.Seed = flagCfg.Fit.Seed })
	set("search", func() { cfg.Fit.Search = fit.SearchKind(searchKind) })
	set("converge", func() {
		cfg.Fit.Convergence = fit.DefaultConvergenceConfig()
		cfg.Fit.Convergence.Enabled = flagCfg.Fit.Convergence.Enabled
	})

	return cfg, cfg.Validate()
}

func runEngrave(cmd *cobra.Command, algorithm, image string) error {
	cfg, err := buildConfig(cmd, algorithm, image)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := engrave.Options{}
	if saveRun {
		runStore, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		opts.Store = runStore
	}

	out, err := engrave.Run(ctx, cfg, opts)
	if out == nil {
		return err
	}
	if out.Run.Status == store.StatusFailed {
		return err
	}

	// Cancelled runs still write the partial toolpath.
	if werr := writeOutputs(out); werr != nil {
		return werr
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Wrote %s (%d segments, %.1f x %.1f mm", outPath, out.Run.Segments, out.Run.Canvas.WidthMM, out.Run.Canvas.HeightMM)
	if out.Run.Fit != nil {
		fmt.Fprintf(w, ", %d epochs", len(out.Run.Fit.Epochs))
	}
	fmt.Fprintln(w, ")")
	if saveRun {
		fmt.Fprintf(w, "Run %s stored in %s\n", out.Run.ID, dataDir)
	}

	if errors.Is(err, context.Canceled) {
		slog.Warn("Run interrupted, output is partial", "run_id", out.Run.ID)
	}
	return err
}

func writeOutputs(out *engrave.Outcome) error {
	if err := os.WriteFile(outPath, []byte(out.Program), 0644); err != nil {
		return fmt.Errorf("failed to write toolpath: %w", err)
	}
	if previewPath != "" {
		if err := out.Preview.SavePNG(previewPath); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
	}
	if residualPath != "" && out.Residual != nil {
		f, err := os.Create(residualPath)
		if err != nil {
			return fmt.Errorf("failed to create residual: %w", err)
		}
		defer f.Close()
		if err := png.Encode(f, preview.ResidualImage(out.Residual)); err != nil {
			return fmt.Errorf("failed to encode residual: %w", err)
		}
	}
	return nil
}
