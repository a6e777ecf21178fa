package shape

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/StephaneBunel/bresenham"
)

// Line is a one pixel wide straight segment on a canvas of W x H pixels.
type Line struct {
	P1, P2 image.Point

	w, h int

	stamp   Stamp
	stamped bool
}

// NewLine creates a line on a w x h canvas. Endpoints are clamped to the
// canvas.
func NewLine(w, h int, p1, p2 image.Point) *Line {
	l := &Line{w: w, h: h}
	l.P1 = l.clamp(p1)
	l.P2 = l.clamp(p2)
	return l
}

// RandomLine creates a line with uniformly distributed endpoints.
func RandomLine(w, h int, rng *rand.Rand) *Line {
	x1 := int(float64(w) * rng.Float64())
	x2 := int(float64(w) * rng.Float64())
	y1 := int(float64(h) * rng.Float64())
	y2 := int(float64(h) * rng.Float64())
	return NewLine(w, h, image.Pt(x1, y1), image.Pt(x2, y2))
}

// LineFromVector decodes a line from four coordinates in [0,1]
// (x1, y1, x2, y2 relative to the canvas).
func LineFromVector(w, h int, v []float64) *Line {
	px := func(f float64, n int) int {
		return int(math.Round(f * float64(n-1)))
	}
	return NewLine(w, h,
		image.Pt(px(v[0], w), px(v[1], h)),
		image.Pt(px(v[2], w), px(v[3], h)),
	)
}

// Vector encodes the line as in LineFromVector.
func (l *Line) Vector() []float64 {
	rel := func(v, n int) float64 {
		if n <= 1 {
			return 0
		}
		return float64(v) / float64(n-1)
	}
	return []float64{rel(l.P1.X, l.w), rel(l.P1.Y, l.h), rel(l.P2.X, l.w), rel(l.P2.Y, l.h)}
}

func (l *Line) clamp(p image.Point) image.Point {
	return image.Pt(clampInt(p.X, 0, l.w-1), clampInt(p.Y, 0, l.h-1))
}

// Bounds implements Shape.
func (l *Line) Bounds() image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(min(l.P1.X, l.P2.X), min(l.P1.Y, l.P2.Y)),
		Max: image.Pt(max(l.P1.X, l.P2.X)+1, max(l.P1.Y, l.P2.Y)+1),
	}
}

// Stamp implements Shape. A zero-length line deposits nothing.
func (l *Line) Stamp() *Stamp {
	if !l.stamped {
		r := l.Bounds()
		l.stamp = newStamp(r)
		if l.P1 != l.P2 {
			a := l.P1.Sub(r.Min)
			b := l.P2.Sub(r.Min)
			bresenham.Bresenham(stampCanvas{&l.stamp}, a.X, a.Y, b.X, b.Y, color.White)
		}
		l.stamped = true
	}
	return &l.stamp
}

// Morph implements Shape. Each endpoint moves independently by up to
// temperature times the canvas size; at temperature <= 0 the endpoints get a
// one pixel nudge instead.
func (l *Line) Morph(temperature float64, rng *rand.Rand) Shape {
	if l.w*l.h <= 1 {
		// A single pixel canvas has exactly one line.
		return l.Copy()
	}
	for {
		d1 := l.shift(temperature, rng)
		d2 := l.shift(temperature, rng)
		m := NewLine(l.w, l.h, l.P1.Add(d1), l.P2.Add(d2))
		if m.P1 != l.P1 || m.P2 != l.P2 {
			return m
		}
	}
}

func (l *Line) shift(temperature float64, rng *rand.Rand) image.Point {
	var dx, dy int
	if temperature > 0 {
		dx = int(float64(l.w) * 2 * (rng.Float64() - 0.5) * temperature)
		dy = int(float64(l.h) * 2 * (rng.Float64() - 0.5) * temperature)
	}
	for dx == 0 && dy == 0 {
		dx = rng.Intn(3) - 1
		dy = rng.Intn(3) - 1
	}
	return image.Pt(dx, dy)
}

// Copy implements Shape.
func (l *Line) Copy() Shape {
	return &Line{P1: l.P1, P2: l.P2, w: l.w, h: l.h}
}

// Segment implements Segmenter.
func (l *Line) Segment() (image.Point, image.Point) {
	return l.P1, l.P2
}

func (l *Line) String() string {
	return fmt.Sprintf("line(%d,%d)-(%d,%d)", l.P1.X, l.P1.Y, l.P2.X, l.P2.Y)
}

// stampCanvas adapts a Stamp to draw.Image so generic rasterisers can write
// the deposit into it. The drawing colour is ignored.
type stampCanvas struct {
	s *Stamp
}

func (c stampCanvas) ColorModel() color.Model {
	return color.Gray16Model
}

func (c stampCanvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.s.W, c.s.H)
}

func (c stampCanvas) At(x, y int) color.Color {
	if !image.Pt(x, y).In(c.Bounds()) {
		return color.Gray16{}
	}
	return color.Gray16{Y: uint16(c.s.At(x, y))}
}

func (c stampCanvas) Set(x, y int, _ color.Color) {
	if !image.Pt(x, y).In(c.Bounds()) {
		return
	}
	c.s.Pix[y*c.s.W+x] = Deposit
}
