// Package preview renders what the laser will burn so a toolpath can be
// checked before it runs.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/jbeda/geom"

	"github.com/cwbudde/laserlines/internal/geometry"
	"github.com/cwbudde/laserlines/internal/intensity"
)

// Image is a white sheet the emitted segments are drawn on in black, one
// pixel wide, at geometry.PreviewPixelsPerMM.
type Image struct {
	dc    *gg.Context
	lines int
}

// New creates a preview sized for canvas.
func New(canvas geometry.Canvas) (*Image, error) {
	w, h := canvas.PreviewSize()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("preview of %gx%g mm is empty", canvas.WidthMM, canvas.HeightMM)
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	return &Image{dc: dc}, nil
}

// DrawLine implements geometry.Preview. Coordinates are millimetres.
func (p *Image) DrawLine(a, b geom.Coord) {
	x1, y1 := toPixel(a)
	x2, y2 := toPixel(b)
	p.dc.DrawLine(x1, y1, x2, y2)
	p.dc.Stroke()
	p.lines++
}

func toPixel(c geom.Coord) (float64, float64) {
	// Centre of the target pixel so the 1px stroke stays crisp.
	x := float64(int(c.X*geometry.PreviewPixelsPerMM)) + 0.5
	y := float64(int(c.Y*geometry.PreviewPixelsPerMM)) + 0.5
	return x, y
}

// Lines returns the number of segments drawn.
func (p *Image) Lines() int {
	return p.lines
}

// Image returns the rendered preview.
func (p *Image) Image() image.Image {
	return p.dc.Image()
}

// EncodePNG writes the preview as PNG.
func (p *Image) EncodePNG(w io.Writer) error {
	return p.dc.EncodePNG(w)
}

// SavePNG writes the preview to path.
func (p *Image) SavePNG(path string) error {
	return p.dc.SavePNG(path)
}

// ResidualImage visualises a fitter residual: remaining darkness shows in
// yellow (red and green), overshoot below zero in blue. Values are clamped
// to 255.
func ResidualImage(g *intensity.Grid) *image.RGBA {
	img := image.NewRGBA(g.Bounds())
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			v := g.At(x, y)
			var pos, mag uint8
			if v >= 0 {
				pos = clamp8(v)
				mag = pos
			} else {
				mag = clamp8(-v)
			}
			img.SetRGBA(x, y, color.RGBA{R: pos, G: pos, B: mag, A: 255})
		}
	}
	return img
}

func clamp8(v int32) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}
