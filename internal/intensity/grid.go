// Package intensity holds the signed per-pixel intensity buffers the
// engraving algorithms work on.
package intensity

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/cwbudde/laserlines/internal/shape"
)

// Grid is a W x H buffer of signed samples stored row-major. Values may go
// negative while fitting, which records overshoot.
type Grid struct {
	W, H int
	Pix  []int32
}

// New allocates a zeroed grid.
func New(w, h int) *Grid {
	return &Grid{W: w, H: h, Pix: make([]int32, w*h)}
}

// Filled allocates a grid with every sample set to v.
func Filled(w, h int, v int32) *Grid {
	g := New(w, h)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// FromImage converts an image to 8-bit luminance samples in [0, 255].
func FromImage(img image.Image) *Grid {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	g := New(b.Dx(), b.Dy())
	for y := 0; y < g.H; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < g.W; x++ {
			g.Pix[y*g.W+x] = int32(row[x*4])
		}
	}
	return g
}

// Downscale shrinks img by an integer factor using bilinear resampling.
// factor <= 1 returns img unchanged.
func Downscale(img image.Image, factor int) (image.Image, error) {
	if factor <= 1 {
		return img, nil
	}
	b := img.Bounds()
	w, h := b.Dx()/factor, b.Dy()/factor
	if w < 2 || h < 1 {
		return nil, fmt.Errorf("approximation level %d too coarse for %dx%d image", factor, b.Dx(), b.Dy())
	}
	return imaging.Resize(img, w, h, imaging.Linear), nil
}

// At returns the sample at (x, y).
func (g *Grid) At(x, y int) int32 {
	return g.Pix[y*g.W+x]
}

// Set stores v at (x, y).
func (g *Grid) Set(x, y int, v int32) {
	g.Pix[y*g.W+x] = v
}

// Bounds returns the grid rectangle anchored at the origin.
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.W, g.H)
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{W: g.W, H: g.H, Pix: make([]int32, len(g.Pix))}
	copy(c.Pix, g.Pix)
	return c
}

// Sum returns the total of all samples.
func (g *Grid) Sum() int64 {
	var s int64
	for _, v := range g.Pix {
		s += int64(v)
	}
	return s
}

// MinMax returns the smallest and largest sample.
func (g *Grid) MinMax() (lo, hi int32) {
	if len(g.Pix) == 0 {
		return 0, 0
	}
	lo, hi = g.Pix[0], g.Pix[0]
	for _, v := range g.Pix[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Inverted returns a copy rescaled so the darkest sample maps to 255 and the
// brightest to 0. A flat grid inverts to all zeros.
func (g *Grid) Inverted() *Grid {
	lo, hi := g.MinMax()
	out := New(g.W, g.H)
	if hi == lo {
		return out
	}
	span := float64(hi - lo)
	for i, v := range g.Pix {
		out.Pix[i] = int32(255 * (float64(hi-v) / span))
	}
	return out
}

// Subtract removes a stamp's deposit from the grid in place. Parts of the
// stamp outside the grid are ignored.
func (g *Grid) Subtract(s *shape.Stamp) {
	r := s.Bounds().Intersect(g.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.Pix[y*g.W+x] -= int32(s.At(x-s.Origin.X, y-s.Origin.Y))
		}
	}
}

// Histogram counts how often each value 0..255 occurs. Samples outside that
// range are ignored.
func (g *Grid) Histogram() [256]int {
	var hist [256]int
	for _, v := range g.Pix {
		if v >= 0 && v < 256 {
			hist[v]++
		}
	}
	return hist
}
