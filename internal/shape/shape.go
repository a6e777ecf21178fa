package shape

import (
	"image"
	"math/rand"
)

// Deposit is the intensity a shape stamps into every pixel it covers.
const Deposit = 85

// Shape is a drawable primitive the fitter can score, perturb and apply.
// Implementations are logically immutable once their stamp is computed.
type Shape interface {
	// Bounds returns the minimal pixel rectangle covering the shape.
	Bounds() image.Rectangle

	// Stamp returns the rasterised footprint. The result is cached.
	Stamp() *Stamp

	// Morph returns a new, randomly displaced shape. Lower temperature
	// means smaller displacement. The result never equals the receiver.
	Morph(temperature float64, rng *rand.Rand) Shape

	// Copy returns an equal shape with no stamp computed yet.
	Copy() Shape
}

// Segmenter is implemented by shapes that can be engraved as one straight
// segment.
type Segmenter interface {
	Segment() (start, end image.Point)
}

// Stamp is the rasterised footprint of a shape: deposit values over the
// shape's bounding box, stored row-major.
type Stamp struct {
	Origin image.Point
	W, H   int
	Pix    []int16
}

func newStamp(r image.Rectangle) Stamp {
	return Stamp{
		Origin: r.Min,
		W:      r.Dx(),
		H:      r.Dy(),
		Pix:    make([]int16, r.Dx()*r.Dy()),
	}
}

// At returns the deposit at stamp-local coordinates.
func (s *Stamp) At(x, y int) int16 {
	return s.Pix[y*s.W+x]
}

// Bounds returns the stamp rectangle in canvas coordinates.
func (s *Stamp) Bounds() image.Rectangle {
	return image.Rectangle{Min: s.Origin, Max: s.Origin.Add(image.Pt(s.W, s.H))}
}

// Weight returns the total deposit of the stamp.
func (s *Stamp) Weight() int {
	var sum int
	for _, v := range s.Pix {
		sum += int(v)
	}
	return sum
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
