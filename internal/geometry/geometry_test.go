package geometry

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/jbeda/geom"
)

func TestNewCanvas(t *testing.T) {
	c, err := NewCanvas(101, 50, 100)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}

	if c.PixelSize != 1.0 {
		t.Errorf("Expected pixel size 1.0, got %f", c.PixelSize)
	}

	expectedHeight := 50 * 100.0 / 101.0
	if math.Abs(c.HeightMM-expectedHeight) > 1e-9 {
		t.Errorf("Expected height %f, got %f", expectedHeight, c.HeightMM)
	}
}

func TestNewCanvasRejectsDegenerateInput(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		widthMM float64
	}{
		{"single column", 1, 10, 100},
		{"zero height", 10, 0, 100},
		{"zero width mm", 10, 10, 0},
		{"negative width mm", 10, 10, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCanvas(tt.w, tt.h, tt.widthMM); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestCanvasRescaleKeepsPhysicalSize(t *testing.T) {
	c, err := NewCanvas(201, 100, 149)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}

	r, err := c.Rescale(100, 50)
	if err != nil {
		t.Fatalf("Rescale failed: %v", err)
	}

	if r.WidthMM != c.WidthMM || r.HeightMM != c.HeightMM {
		t.Errorf("Physical size changed: %fx%f -> %fx%f", c.WidthMM, c.HeightMM, r.WidthMM, r.HeightMM)
	}
	if math.Abs(r.PixelSize-149.0/99.0) > 1e-12 {
		t.Errorf("Unexpected pixel size %f", r.PixelSize)
	}
}

func TestToPhysicalRoundTrip(t *testing.T) {
	c, err := NewCanvas(77, 31, 149)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}

	for x := 0; x < c.WidthPx; x += 7 {
		for y := 0; y < c.HeightPx; y += 3 {
			p := c.ToPhysical(image.Pt(x, y))
			if math.Abs(p.X/c.PixelSize-float64(x)) > 1e-9 {
				t.Errorf("X round trip failed for %d: %f", x, p.X/c.PixelSize)
			}
			if math.Abs(p.Y/c.PixelSize-float64(y)) > 1e-9 {
				t.Errorf("Y round trip failed for %d: %f", y, p.Y/c.PixelSize)
			}
		}
	}
}

type previewSpy struct {
	lines [][2]geom.Coord
}

func (p *previewSpy) DrawLine(a, b geom.Coord) {
	p.lines = append(p.lines, [2]geom.Coord{a, b})
}

func TestEmitLineMirrorsX(t *testing.T) {
	c, err := NewCanvas(11, 11, 20)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}

	rec := &Recorder{}
	spy := &previewSpy{}
	em := NewEmitter(c, rec, spy)

	if err := em.EmitLine(image.Pt(0, 1), image.Pt(5, 10)); err != nil {
		t.Fatalf("EmitLine failed: %v", err)
	}

	if len(rec.Segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(rec.Segments))
	}

	want := Segment{X1: 20, Y1: 2, X2: 10, Y2: 20}
	if rec.Segments[0] != want {
		t.Errorf("Expected %+v, got %+v", want, rec.Segments[0])
	}

	// Preview sees unmirrored coordinates
	if len(spy.lines) != 1 {
		t.Fatalf("Expected 1 preview line, got %d", len(spy.lines))
	}
	if spy.lines[0][0].X != 0 || spy.lines[0][1].X != 10 {
		t.Errorf("Preview should not be mirrored: %+v", spy.lines[0])
	}

	if em.Count() != 1 {
		t.Errorf("Expected count 1, got %d", em.Count())
	}

	extent, ok := em.Extent()
	if !ok {
		t.Fatal("Expected extent after emission")
	}
	if extent.Min.X != 10 || extent.Max.X != 20 || extent.Min.Y != 2 || extent.Max.Y != 20 {
		t.Errorf("Unexpected extent %+v", extent)
	}
}

func TestEmitterWithoutSink(t *testing.T) {
	c, err := NewCanvas(11, 11, 20)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}

	em := NewEmitter(c, nil, nil)
	if _, ok := em.Extent(); ok {
		t.Error("Extent should be empty before emission")
	}
	if err := em.EmitLine(image.Pt(1, 1), image.Pt(2, 2)); err != nil {
		t.Fatalf("EmitLine failed: %v", err)
	}
	if em.Count() != 1 {
		t.Errorf("Expected count 1, got %d", em.Count())
	}
}

type failingSink struct{}

var errSinkFull = errors.New("sink full")

func (failingSink) Line(x1, y1, x2, y2 float64) error { return errSinkFull }

func TestEmitLinePropagatesSinkError(t *testing.T) {
	c, err := NewCanvas(11, 11, 20)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}

	em := NewEmitter(c, failingSink{}, nil)
	err = em.EmitLine(image.Pt(1, 1), image.Pt(2, 2))
	if !errors.Is(err, errSinkFull) {
		t.Errorf("Expected sink error, got %v", err)
	}
	if em.Count() != 0 {
		t.Errorf("Failed emission should not be counted, got %d", em.Count())
	}
}
