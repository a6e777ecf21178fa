package gcode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jbeda/geom"
)

// ErrEmptyImport is returned when an Inkscape file holds no usable moves.
var ErrEmptyImport = errors.New("no cutting paths with XY moves")

var (
	pathStartRe = regexp.MustCompile(`Start cutting path id: ([^\s)]+)`)
	pathEndRe   = regexp.MustCompile(`End cutting path id: `)
	commentRe   = regexp.MustCompile(`\(.*?\)`)
)

// importMove is one parsed G word line. Words other than X, Y, Z and F are
// kept in order; I, J and R get scaled with the path.
type importMove struct {
	cmd   string
	at    geom.Coord
	words []string
}

type importPath struct {
	id    string
	moves []importMove
}

// ImportInkscape appends the cutting paths of an Inkscape "Path to GCode"
// export. The drawing is scaled to width millimetres and centred on
// (cx, cy). Paths are engraved in order of their first X coordinate.
func (w *Writer) ImportInkscape(r io.Reader, width, cx, cy float64, opts ...DrawOption) error {
	paths, err := parseInkscape(r)
	if err != nil {
		return err
	}

	bounds := geom.Rect{}
	first := true
	for _, p := range paths {
		for _, m := range p.moves {
			if first {
				bounds = geom.Rect{Min: m.at, Max: m.at}
				first = false
				continue
			}
			bounds.ExpandToContainCoord(m.at)
		}
	}
	if first {
		return ErrEmptyImport
	}
	if bounds.Width() <= 0 {
		return fmt.Errorf("import: drawing has zero width")
	}

	scale := width / bounds.Width()
	mid := geom.Coord{X: (bounds.Min.X + bounds.Max.X) / 2, Y: (bounds.Min.Y + bounds.Max.Y) / 2}
	centre := geom.Coord{X: cx, Y: cy}

	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].moves[0].at.X < paths[j].moves[0].at.X
	})

	p := w.params(opts)
	for _, path := range paths {
		w.code.WriteString("\n")
		for i, m := range path.moves {
			at := m.at.Minus(mid).Times(scale).Plus(centre)
			if i == 0 {
				w.prepare(at, nil, p.z, p)
				continue
			}
			abs := w.machine(at)
			fmt.Fprintf(&w.code, "\n%s X%.6f Y%.6f", m.cmd, abs.X, abs.Y)
			for _, word := range m.words {
				w.code.WriteString(" " + scaleWord(word, scale))
			}
		}
		w.finish()
	}
	return nil
}

func parseInkscape(r io.Reader) ([]importPath, error) {
	var (
		paths   []importPath
		current = -1
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case pathStartRe.MatchString(line):
			id := pathStartRe.FindStringSubmatch(line)[1]
			paths = append(paths, importPath{id: id})
			current = len(paths) - 1
		case pathEndRe.MatchString(line):
			current = -1
		case strings.HasPrefix(line, "("):
		case strings.HasPrefix(strings.ToUpper(line), "G"):
			if current < 0 {
				continue
			}
			m, ok, err := parseMove(line)
			if err != nil {
				return nil, fmt.Errorf("import path %s: %w", paths[current].id, err)
			}
			if ok {
				paths[current].moves = append(paths[current].moves, m)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read inkscape gcode: %w", err)
	}

	kept := paths[:0]
	for _, p := range paths {
		if len(p.moves) > 0 {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmptyImport
	}
	return kept, nil
}

// parseMove reads a line such as
// "G02 X88.704067 Y251.364508 Z-0.125000 I0.032899 J0.064154".
// Lines without both X and Y are skipped.
func parseMove(line string) (importMove, bool, error) {
	fields := strings.Fields(commentRe.ReplaceAllString(line, ""))
	if len(fields) == 0 {
		return importMove{}, false, nil
	}

	m := importMove{cmd: fields[0]}
	var hasX, hasY bool
	for _, f := range fields[1:] {
		if len(f) < 2 {
			continue
		}
		axis := strings.ToUpper(f[:1])
		if axis != "X" && axis != "Y" && axis != "Z" && axis != "F" {
			m.words = append(m.words, f)
			continue
		}
		v, err := strconv.ParseFloat(f[1:], 64)
		if err != nil {
			return importMove{}, false, fmt.Errorf("bad word %q: %w", f, err)
		}
		switch axis {
		case "X":
			m.at.X, hasX = v, true
		case "Y":
			m.at.Y, hasY = v, true
		}
	}
	return m, hasX && hasY, nil
}

func scaleWord(word string, scale float64) string {
	switch strings.ToUpper(word[:1]) {
	case "I", "J", "R":
		v, err := strconv.ParseFloat(word[1:], 64)
		if err != nil || math.IsNaN(v) {
			return word
		}
		return fmt.Sprintf("%s%.6f", word[:1], v*scale)
	}
	return word
}
