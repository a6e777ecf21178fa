package shape

import (
	"image"
	"math/rand"
	"testing"
)

func TestLineBounds(t *testing.T) {
	l := NewLine(20, 20, image.Pt(8, 2), image.Pt(3, 7))

	want := image.Rect(3, 2, 9, 8)
	if got := l.Bounds(); got != want {
		t.Errorf("Expected bounds %v, got %v", want, got)
	}
}

func TestNewLineClampsToCanvas(t *testing.T) {
	l := NewLine(10, 5, image.Pt(-3, 7), image.Pt(12, -1))

	if l.P1 != image.Pt(0, 4) {
		t.Errorf("P1 not clamped: %v", l.P1)
	}
	if l.P2 != image.Pt(9, 0) {
		t.Errorf("P2 not clamped: %v", l.P2)
	}
}

func TestLineStampWeight(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 image.Point
		pixels int
	}{
		{"horizontal", image.Pt(0, 0), image.Pt(4, 0), 5},
		{"vertical", image.Pt(2, 1), image.Pt(2, 6), 6},
		{"diagonal", image.Pt(0, 0), image.Pt(3, 3), 4},
		{"shallow", image.Pt(0, 0), image.Pt(8, 3), 9},
		{"steep reversed", image.Pt(5, 9), image.Pt(3, 1), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLine(20, 20, tt.p1, tt.p2)
			s := l.Stamp()

			if s.W != l.Bounds().Dx() || s.H != l.Bounds().Dy() {
				t.Errorf("Stamp size %dx%d does not match bounds %v", s.W, s.H, l.Bounds())
			}
			if s.Origin != l.Bounds().Min {
				t.Errorf("Stamp origin %v does not match bounds %v", s.Origin, l.Bounds())
			}
			if got := s.Weight(); got != tt.pixels*Deposit {
				t.Errorf("Expected weight %d, got %d", tt.pixels*Deposit, got)
			}

			// Both endpoints must be covered
			a := tt.p1.Sub(s.Origin)
			b := tt.p2.Sub(s.Origin)
			if s.At(a.X, a.Y) != Deposit || s.At(b.X, b.Y) != Deposit {
				t.Error("Stamp does not cover both endpoints")
			}
		})
	}
}

func TestZeroLengthLineHasEmptyStamp(t *testing.T) {
	l := NewLine(10, 10, image.Pt(4, 4), image.Pt(4, 4))

	if w := l.Stamp().Weight(); w != 0 {
		t.Errorf("Expected zero weight, got %d", w)
	}
}

func TestStampIsCached(t *testing.T) {
	l := NewLine(10, 10, image.Pt(0, 0), image.Pt(9, 9))

	if l.Stamp() != l.Stamp() {
		t.Error("Stamp should be computed once and reused")
	}

	c := l.Copy()
	if c.Stamp() == l.Stamp() {
		t.Error("Copy must not share the stamp cache")
	}
	if c.Stamp().Weight() != l.Stamp().Weight() {
		t.Error("Copy should rasterise to the same footprint")
	}
}

func TestMorphNeverReturnsIdenticalLine(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	temperatures := []float64{0, -1, 0.001, 0.5, 0.9}

	for _, temp := range temperatures {
		l := RandomLine(12, 9, rng)
		for i := 0; i < 500; i++ {
			m := l.Morph(temp, rng).(*Line)
			if m.P1 == l.P1 && m.P2 == l.P2 {
				t.Fatalf("Morph at temperature %f returned identical line %v", temp, l)
			}
			if m.stamped {
				t.Fatal("Morphed line should start without a stamp")
			}
			l = m
		}
	}
}

func TestMorphStaysOnCanvas(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	l := NewLine(6, 4, image.Pt(0, 0), image.Pt(5, 3))
	canvas := image.Rect(0, 0, 6, 4)

	for i := 0; i < 1000; i++ {
		m := l.Morph(2.0, rng).(*Line)
		if !m.P1.In(canvas) || !m.P2.In(canvas) {
			t.Fatalf("Morphed endpoints left canvas: %v", m)
		}
	}
}

func TestMorphDeterministicWithSeed(t *testing.T) {
	l := NewLine(50, 50, image.Pt(10, 10), image.Pt(30, 40))

	a := l.Morph(0.4, rand.New(rand.NewSource(99))).(*Line)
	b := l.Morph(0.4, rand.New(rand.NewSource(99))).(*Line)

	if a.P1 != b.P1 || a.P2 != b.P2 {
		t.Errorf("Same seed should give same morph: %v vs %v", a, b)
	}
}

func TestLineVectorRoundTrip(t *testing.T) {
	l := NewLine(31, 17, image.Pt(4, 16), image.Pt(30, 0))

	back := LineFromVector(31, 17, l.Vector())
	if back.P1 != l.P1 || back.P2 != l.P2 {
		t.Errorf("Vector round trip failed: %v -> %v", l, back)
	}
}

func TestLineIsSegmenter(t *testing.T) {
	var s Shape = NewLine(10, 10, image.Pt(1, 2), image.Pt(3, 4))

	seg, ok := s.(Segmenter)
	if !ok {
		t.Fatal("Line should implement Segmenter")
	}
	a, b := seg.Segment()
	if a != image.Pt(1, 2) || b != image.Pt(3, 4) {
		t.Errorf("Unexpected segment %v-%v", a, b)
	}
}
