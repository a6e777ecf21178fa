// Package calibrate draws the test patterns used to set up a machine: focus
// height, origin, scale and burn depth on a new material.
package calibrate

import (
	"fmt"

	"github.com/cwbudde/laserlines/internal/gcode"
)

// HeightTest burns an 80 mm line while the head rises from minZ to maxZ,
// with two 10 mm ticks at the midpoint height marking both ends. The
// sharpest part of the line shows the focus height.
func HeightTest(w *gcode.Writer, minZ, maxZ float64) error {
	if minZ > maxZ {
		return fmt.Errorf("height test: min %g above max %g", minZ, maxZ)
	}
	mid := 0.5 * (minZ + maxZ)
	w.DrawLine(0, 5, 80, 5, gcode.WithZ(minZ), gcode.WithEndZ(maxZ))
	w.DrawLine(0, 0, 0, 10, gcode.WithSpeed(100), gcode.WithZ(mid))
	w.DrawLine(80, 0, 80, 10, gcode.WithSpeed(100), gcode.WithZ(mid))
	return nil
}

// DotTest burns a 10 mm cross centred on (x, y).
func DotTest(w *gcode.Writer, x, y float64) {
	w.DrawLine(x, y-5, x, y+5)
	w.DrawLine(x-5, y, x+5, y)
}

// GridTest burns a rows x columns grid of size millimetre cells.
func GridTest(w *gcode.Writer, rows, columns int, size float64) error {
	if rows < 1 || columns < 1 || size <= 0 {
		return fmt.Errorf("grid test: invalid grid %dx%d of %g mm", rows, columns, size)
	}
	for i := 0; i <= rows; i++ {
		y := float64(i) * size
		w.DrawLine(0, y, float64(columns)*size, y)
	}
	for j := 0; j <= columns; j++ {
		x := float64(j) * size
		w.DrawLine(x, 0, x, float64(rows)*size)
	}
	return nil
}

// MaterialTest burns one line from x1 to x2 at height y with the head
// zOffset above the default height and the given speed.
func MaterialTest(w *gcode.Writer, x1, x2, y, zOffset, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("material test: speed must be positive, got %g", speed)
	}
	w.DrawLine(x1, y, x2, y, gcode.WithZ(zOffset+w.Config().DefaultZ), gcode.WithSpeed(speed))
	return nil
}
