// Package gcode writes laser engraving programs for Marlin style machines
// that drive the laser through the fan output (M106/M107).
package gcode

import (
	"fmt"
	"io"
	"strings"

	"github.com/jbeda/geom"
)

const (
	laserOn  = 106
	laserOff = 107
)

// DrawOption overrides the defaults of one drawing call.
type DrawOption func(*drawParams)

type drawParams struct {
	speed float64
	power int
	z     *float64
	endZ  *float64
}

// WithSpeed sets the engraving feed rate.
func WithSpeed(speed float64) DrawOption {
	return func(p *drawParams) { p.speed = speed }
}

// WithPower sets the laser power.
func WithPower(power int) DrawOption {
	return func(p *drawParams) { p.power = power }
}

// WithZ sets the head height. Lines carry it on both endpoint moves; other
// elements set it once before the laser turns on.
func WithZ(z float64) DrawOption {
	return func(p *drawParams) { p.z = &z }
}

// WithEndZ sets a different height for the end of a line.
func WithEndZ(z float64) DrawOption {
	return func(p *drawParams) { p.endZ = &z }
}

// Writer accumulates a program. Coordinates passed to the drawing methods
// are millimetres relative to the work area corner.
type Writer struct {
	cfg      Config
	origin   geom.Coord
	code     strings.Builder
	elements int
}

// NewWriter starts a program with the initialisation block.
func NewWriter(cfg Config) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Writer{
		cfg:    cfg,
		origin: geom.Coord{X: cfg.CornerX + cfg.CornerMargin, Y: cfg.CornerY + cfg.CornerMargin},
	}
	home := ""
	if cfg.AutoHome {
		home = "\nG28"
	}
	fmt.Fprintf(&w.code, "M%d S0\n\nG90\nG21%s\nG1  Z%.4f\n", laserOff, home, cfg.DefaultZ)
	return w, nil
}

// Config returns the machine settings.
func (w *Writer) Config() Config {
	return w.cfg
}

// Elements returns the number of laser-on elements drawn.
func (w *Writer) Elements() int {
	return w.elements
}

func (w *Writer) params(opts []DrawOption) drawParams {
	p := drawParams{speed: w.cfg.Speed, power: w.cfg.Power}
	for _, o := range opts {
		o(&p)
	}
	return p
}

func (w *Writer) machine(c geom.Coord) geom.Coord {
	return c.Plus(w.origin)
}

func (w *Writer) move(c geom.Coord, z *float64) {
	c = w.machine(c)
	if z == nil {
		fmt.Fprintf(&w.code, "\nG1  X%.4f Y%.4f", c.X, c.Y)
		return
	}
	fmt.Fprintf(&w.code, "\nG1  X%.4f Y%.4f Z%.4f", c.X, c.Y, *z)
}

func (w *Writer) arc(c geom.Coord, r float64) {
	c = w.machine(c)
	fmt.Fprintf(&w.code, "\nG2  X%.4f Y%.4f R%.4f", c.X, c.Y, r)
}

// prepare travels to start with the laser off, then switches it on.
func (w *Writer) prepare(start geom.Coord, startZ, headZ *float64, p drawParams) {
	fmt.Fprintf(&w.code, "\nG1 F%d", w.cfg.MoveSpeed)
	w.move(start, startZ)
	if headZ != nil {
		fmt.Fprintf(&w.code, "\nG1  Z%.4f", *headZ)
	}
	w.code.WriteString("\nG4 P0")
	fmt.Fprintf(&w.code, "\nM%d S%d", laserOn, p.power)
	fmt.Fprintf(&w.code, "\nG4 P%.4f", w.cfg.PauseSeconds)
	fmt.Fprintf(&w.code, "\nG1 F%.4f", p.speed)
}

func (w *Writer) finish() {
	fmt.Fprintf(&w.code, "\nG4 P0\nM%d S0", laserOff)
	w.elements++
}

// Line implements geometry.PathSink with the default speed and power.
func (w *Writer) Line(x1, y1, x2, y2 float64) error {
	w.DrawLine(x1, y1, x2, y2)
	return nil
}

// DrawLine engraves one straight segment.
func (w *Writer) DrawLine(x1, y1, x2, y2 float64, opts ...DrawOption) {
	p := w.params(opts)
	endZ := p.endZ
	if endZ == nil {
		endZ = p.z
	}
	w.prepare(geom.Coord{X: x1, Y: y1}, p.z, nil, p)
	w.move(geom.Coord{X: x2, Y: y2}, endZ)
	w.finish()
}

// DrawPath engraves a polyline. The laser starts at the last point, so a
// path whose first and last points differ is drawn closed.
func (w *Writer) DrawPath(points []geom.Coord, opts ...DrawOption) error {
	if len(points) == 0 {
		return fmt.Errorf("draw path: no points")
	}
	p := w.params(opts)
	w.prepare(points[len(points)-1], nil, p.z, p)
	for _, pt := range points {
		w.move(pt, nil)
	}
	w.finish()
	return nil
}

// DrawRectangle engraves the outline of the w x h rectangle at (x, y).
func (w *Writer) DrawRectangle(x, y, width, height float64, opts ...DrawOption) {
	points := []geom.Coord{
		{X: x + width, Y: y},
		{X: x + width, Y: y + height},
		{X: x, Y: y + height},
		{X: x, Y: y},
	}
	// Four points never fail.
	_ = w.DrawPath(points, opts...)
}

// DrawCircle engraves a circle as four clockwise arcs.
func (w *Writer) DrawCircle(cx, cy, r float64, opts ...DrawOption) {
	p := w.params(opts)
	w.prepare(geom.Coord{X: cx - r, Y: cy}, nil, p.z, p)
	w.arc(geom.Coord{X: cx, Y: cy + r}, r)
	w.arc(geom.Coord{X: cx + r, Y: cy}, r)
	w.arc(geom.Coord{X: cx, Y: cy - r}, r)
	w.arc(geom.Coord{X: cx - r, Y: cy}, r)
	w.finish()
}

// String returns the finished program: it appends the return to the machine
// origin and trims indentation and surrounding blank lines. The writer can
// keep drawing afterwards.
func (w *Writer) String() string {
	var tail strings.Builder
	fmt.Fprintf(&tail, "\nG1 F%d", w.cfg.MoveSpeed)
	fmt.Fprintf(&tail, "\nG1  X%.4f Y%.4f", 0.0, 0.0)

	lines := strings.Split(w.code.String()+tail.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, " \t")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// WriteTo writes the finished program to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	n, err := io.WriteString(out, w.String())
	return int64(n), err
}
