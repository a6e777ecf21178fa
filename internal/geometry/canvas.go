package geometry

import (
	"fmt"
	"image"

	"github.com/jbeda/geom"
)

// PreviewPixelsPerMM is the magnification used when drawing emitted lines
// into a preview raster.
const PreviewPixelsPerMM = 8

// Canvas describes the pixel grid of one processing run and the physical
// area it maps onto. The pixel size is fixed for the lifetime of a run.
type Canvas struct {
	WidthPx  int
	HeightPx int

	// WidthMM is the requested physical width, HeightMM follows the image
	// aspect ratio.
	WidthMM  float64
	HeightMM float64

	// PixelSize is the physical distance between two adjacent pixel centres.
	PixelSize float64
}

// NewCanvas derives the pixel size for an image of widthPx x heightPx pixels
// engraved at widthMM millimetres.
func NewCanvas(widthPx, heightPx int, widthMM float64) (Canvas, error) {
	if widthPx < 2 {
		return Canvas{}, fmt.Errorf("image width must be at least 2 pixels, got %d", widthPx)
	}
	if heightPx < 1 {
		return Canvas{}, fmt.Errorf("image height must be positive, got %d", heightPx)
	}
	if widthMM <= 0 {
		return Canvas{}, fmt.Errorf("physical width must be positive, got %g", widthMM)
	}

	return Canvas{
		WidthPx:   widthPx,
		HeightPx:  heightPx,
		WidthMM:   widthMM,
		HeightMM:  float64(heightPx) * widthMM / float64(widthPx),
		PixelSize: widthMM / float64(widthPx-1),
	}, nil
}

// Rescale returns a canvas for a resampled copy of the image. The physical
// size is kept; only the pixel grid and pixel size change.
func (c Canvas) Rescale(widthPx, heightPx int) (Canvas, error) {
	if widthPx < 2 || heightPx < 1 {
		return Canvas{}, fmt.Errorf("rescaled image too small: %dx%d", widthPx, heightPx)
	}
	c.WidthPx = widthPx
	c.HeightPx = heightPx
	c.PixelSize = c.WidthMM / float64(widthPx-1)
	return c, nil
}

// ToPhysical converts a pixel coordinate into millimetres.
func (c Canvas) ToPhysical(p image.Point) geom.Coord {
	return geom.Coord{X: float64(p.X) * c.PixelSize, Y: float64(p.Y) * c.PixelSize}
}

// ToPixels converts a length in millimetres into a whole number of pixels,
// truncating towards zero.
func (c Canvas) ToPixels(mm float64) int {
	return int(mm / c.PixelSize)
}

// PreviewSize returns the preview raster dimensions in pixels.
func (c Canvas) PreviewSize() (int, int) {
	return int(c.WidthMM) * PreviewPixelsPerMM, int(c.HeightMM) * PreviewPixelsPerMM
}
