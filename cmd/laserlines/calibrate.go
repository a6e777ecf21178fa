package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/laserlines/internal/calibrate"
	"github.com/cwbudde/laserlines/internal/gcode"
)

var (
	calDevice  = gcode.DefaultConfig()
	calOutPath string

	gridRows, gridCols int
	gridSize           float64

	heightMin, heightMax float64

	dotX, dotY float64

	matX1, matX2, matY, matZOffset, matSpeed float64
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Generate machine calibration patterns",
	Long: `Writes G-code for the patterns used to set up the laser: a focus height
ramp, an origin cross, a scale grid and a single test line on new material.`,
}

var calGridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Burn a grid to check scale and squareness",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCalibration(cmd, func(w *gcode.Writer) error {
			return calibrate.GridTest(w, gridRows, gridCols, gridSize)
		})
	},
}

var calHeightCmd = &cobra.Command{
	Use:   "height",
	Short: "Burn a line while raising the head to find the focus height",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCalibration(cmd, func(w *gcode.Writer) error {
			return calibrate.HeightTest(w, heightMin, heightMax)
		})
	},
}

var calDotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Burn a small cross to locate a point",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCalibration(cmd, func(w *gcode.Writer) error {
			calibrate.DotTest(w, dotX, dotY)
			return nil
		})
	},
}

var calMaterialCmd = &cobra.Command{
	Use:   "material",
	Short: "Burn one line to test speed and height on a material",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCalibration(cmd, func(w *gcode.Writer) error {
			return calibrate.MaterialTest(w, matX1, matX2, matY, matZOffset, matSpeed)
		})
	},
}

func init() {
	pf := calibrateCmd.PersistentFlags()
	pf.StringVar(&calOutPath, "out", "calibration.gcode", "G-code output path")
	pf.Float64Var(&calDevice.Speed, "speed", calDevice.Speed, "Engraving feed rate")
	pf.IntVar(&calDevice.Power, "power", calDevice.Power, "Laser power (0-255)")
	pf.Float64Var(&calDevice.DefaultZ, "z", calDevice.DefaultZ, "Focus height")
	pf.Float64Var(&calDevice.CornerX, "corner-x", calDevice.CornerX, "Machine X of the work area corner")
	pf.Float64Var(&calDevice.CornerY, "corner-y", calDevice.CornerY, "Machine Y of the work area corner")

	calGridCmd.Flags().IntVar(&gridRows, "rows", 5, "Grid rows")
	calGridCmd.Flags().IntVar(&gridCols, "cols", 5, "Grid columns")
	calGridCmd.Flags().Float64Var(&gridSize, "size", 10, "Cell size in millimetres")

	calHeightCmd.Flags().Float64Var(&heightMin, "min-z", 50, "Head height at the start of the line")
	calHeightCmd.Flags().Float64Var(&heightMax, "max-z", 70, "Head height at the end of the line")

	calDotCmd.Flags().Float64Var(&dotX, "x", 0, "Cross centre X in millimetres")
	calDotCmd.Flags().Float64Var(&dotY, "y", 0, "Cross centre Y in millimetres")

	calMaterialCmd.Flags().Float64Var(&matX1, "x1", 0, "Line start X")
	calMaterialCmd.Flags().Float64Var(&matX2, "x2", 50, "Line end X")
	calMaterialCmd.Flags().Float64Var(&matY, "y", 0, "Line Y")
	calMaterialCmd.Flags().Float64Var(&matZOffset, "z-offset", 0, "Head height above --z")
	calMaterialCmd.Flags().Float64Var(&matSpeed, "line-speed", 100, "Feed rate of the test line")

	calibrateCmd.AddCommand(calGridCmd, calHeightCmd, calDotCmd, calMaterialCmd)
	rootCmd.AddCommand(calibrateCmd)
}

func writeCalibration(cmd *cobra.Command, draw func(*gcode.Writer) error) error {
	w, err := gcode.NewWriter(calDevice)
	if err != nil {
		return err
	}
	if err := draw(w); err != nil {
		return err
	}

	f, err := os.Create(calOutPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()
	if _, err := w.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write G-code: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d elements)\n", calOutPath, w.Elements())
	return nil
}
