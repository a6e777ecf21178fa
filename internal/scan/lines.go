package scan

import "image"

// Diagonal is one 45 degree hatching line clipped to the grid. Start and End
// are both inside the grid.
type Diagonal struct {
	Start, End image.Point
}

// DiagonalLines returns the family of 45 degree lines covering a w x h grid,
// spaced distance pixels apart starting at shift. Every other line is
// reversed so the head travels back and forth. crossed mirrors the family
// horizontally.
func DiagonalLines(w, h, distance, shift int, crossed bool) []Diagonal {
	var lines []Diagonal
	reverse := false

	for i := -h + shift; i < w; i += distance {
		var start, end image.Point
		if i >= 0 {
			start = image.Pt(i, 0)
		} else {
			start = image.Pt(0, -i)
		}
		if i+h-1 < w {
			end = image.Pt(i+h-1, h-1)
		} else {
			end = image.Pt(w-1, w-i-1)
		}

		if start.X >= end.X {
			continue
		}

		if crossed {
			start.X = w - 1 - start.X
			end.X = w - 1 - end.X
		}
		if reverse {
			start, end = end, start
		}
		reverse = !reverse

		lines = append(lines, Diagonal{Start: start, End: end})
	}
	return lines
}

// Samples returns the pixels visited when walking d every step pixels along
// X. The walk covers [Start.X, End.X) going right, or (End.X .. Start.X-1]
// descending going left.
func (d Diagonal) Samples(step int) []image.Point {
	slope := 1
	if (d.End.X-d.Start.X)*(d.End.Y-d.Start.Y) < 0 {
		slope = -1
	}
	at := func(x int) image.Point {
		return image.Pt(x, d.Start.Y+slope*(x-d.Start.X))
	}

	var pts []image.Point
	switch {
	case d.Start.X < d.End.X:
		for x := d.Start.X; x < d.End.X; x += step {
			pts = append(pts, at(x))
		}
	case d.Start.X > d.End.X:
		var xs []int
		for x := d.End.X; x < d.Start.X; x += step {
			xs = append(xs, x)
		}
		for i := len(xs) - 1; i >= 0; i-- {
			pts = append(pts, at(xs[i]))
		}
	}
	return pts
}
