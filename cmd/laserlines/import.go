package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/laserlines/internal/gcode"
)

var (
	importDevice  = gcode.DefaultConfig()
	importWidth   float64
	importCX      float64
	importCY      float64
	importOutPath string
)

var importCmd = &cobra.Command{
	Use:   "import <inkscape.gcode>",
	Short: "Rescale an Inkscape G-code export for the laser",
	Long: `Reads the output of Inkscape's "Path to GCode" extension, scales the
drawing to --width millimetres, centres it on (--cx, --cy) and writes it
with this machine's laser on/off sequence.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.Float64Var(&importWidth, "width", 50, "Target width in millimetres")
	f.Float64Var(&importCX, "cx", 0, "Target centre X")
	f.Float64Var(&importCY, "cy", 0, "Target centre Y")
	f.StringVar(&importOutPath, "out", "out.gcode", "G-code output path")
	f.Float64Var(&importDevice.Speed, "speed", importDevice.Speed, "Engraving feed rate")
	f.IntVar(&importDevice.Power, "power", importDevice.Power, "Laser power (0-255)")
	f.Float64Var(&importDevice.DefaultZ, "z", importDevice.DefaultZ, "Focus height")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	w, err := gcode.NewWriter(importDevice)
	if err != nil {
		return err
	}
	if err := w.ImportInkscape(in, importWidth, importCX, importCY); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if err := os.WriteFile(importOutPath, []byte(w.String()), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d paths)\n", importOutPath, w.Elements())
	return nil
}
