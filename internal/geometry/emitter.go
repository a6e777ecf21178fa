package geometry

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jbeda/geom"
)

// PathSink consumes line segments in physical units. Calls may arrive in any
// order and any number.
type PathSink interface {
	Line(x1, y1, x2, y2 float64) error
}

// Preview receives every emitted segment for visualisation. Coordinates are
// in millimetres, before the X mirroring applied for the sink.
type Preview interface {
	DrawLine(a, b geom.Coord)
}

// Emitter is the single point where pixel-space line decisions turn into
// physical toolpaths. Both engraving algorithms emit through it.
type Emitter struct {
	canvas  Canvas
	sink    PathSink
	preview Preview

	count     int
	extent    geom.Rect
	hasExtent bool
}

// NewEmitter creates an emitter. sink and preview may be nil.
func NewEmitter(canvas Canvas, sink PathSink, preview Preview) *Emitter {
	if sink == nil {
		slog.Warn("No path sink configured, emitted lines will only be counted")
	}
	return &Emitter{
		canvas:  canvas,
		sink:    sink,
		preview: preview,
	}
}

// Canvas returns the canvas the emitter converts against.
func (e *Emitter) Canvas() Canvas {
	return e.canvas
}

// EmitLine converts a pixel segment to millimetres, draws it into the preview
// and forwards it to the sink with the X axis mirrored: the device origin sits
// on the side opposite the image's pixel origin.
func (e *Emitter) EmitLine(start, end image.Point) error {
	a := e.canvas.ToPhysical(start)
	b := e.canvas.ToPhysical(end)

	if e.preview != nil {
		e.preview.DrawLine(a, b)
	}

	x1, y1 := e.canvas.WidthMM-a.X, a.Y
	x2, y2 := e.canvas.WidthMM-b.X, b.Y

	if e.sink != nil {
		if err := e.sink.Line(x1, y1, x2, y2); err != nil {
			return fmt.Errorf("failed to emit line %v-%v: %w", start, end, err)
		}
	}

	e.track(geom.Coord{X: x1, Y: y1})
	e.track(geom.Coord{X: x2, Y: y2})
	e.count++
	return nil
}

func (e *Emitter) track(c geom.Coord) {
	if !e.hasExtent {
		e.extent = geom.Rect{Min: c, Max: c}
		e.hasExtent = true
		return
	}
	e.extent.ExpandToContainCoord(c)
}

// Count returns the number of segments emitted so far.
func (e *Emitter) Count() int {
	return e.count
}

// Extent returns the bounding rectangle of all emitted segments in device
// coordinates. ok is false when nothing has been emitted.
func (e *Emitter) Extent() (r geom.Rect, ok bool) {
	return e.extent, e.hasExtent
}

// Segment is a physical line segment as handed to a sink.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// Recorder is a PathSink that keeps every segment in memory.
type Recorder struct {
	Segments []Segment
}

// Line implements PathSink.
func (r *Recorder) Line(x1, y1, x2, y2 float64) error {
	r.Segments = append(r.Segments, Segment{X1: x1, Y1: y1, X2: x2, Y2: y2})
	return nil
}
