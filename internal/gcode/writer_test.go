package gcode

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jbeda/geom"

	"github.com/cwbudde/laserlines/internal/geometry"
)

var _ geometry.PathSink = (*Writer)(nil)

func newWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(DefaultConfig())
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	return w
}

func TestSingleLineProgram(t *testing.T) {
	w := newWriter(t)
	if err := w.Line(0, 0, 20, 0); err != nil {
		t.Fatalf("Line failed: %v", err)
	}

	want := strings.Join([]string{
		"M107 S0",
		"",
		"G90",
		"G21",
		"G28",
		"G1  Z60.0000",
		"",
		"G1 F3000",
		"G1  X60.0000 Y45.0000",
		"G4 P0",
		"M106 S100",
		"G4 P0.3000",
		"G1 F100.0000",
		"G1  X80.0000 Y45.0000",
		"G4 P0",
		"M107 S0",
		"G1 F3000",
		"G1  X0.0000 Y0.0000",
	}, "\n")

	if got := w.String(); got != want {
		t.Errorf("Unexpected program:\n%s\nwant:\n%s", got, want)
	}
	if w.Elements() != 1 {
		t.Errorf("Expected 1 element, got %d", w.Elements())
	}
}

func TestNoHomeAndCustomCorner(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoHome = false
	cfg.CornerX, cfg.CornerY, cfg.CornerMargin = 0, 0, 0
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	w.DrawLine(1, 2, 3, 4)

	out := w.String()
	if strings.Contains(out, "G28") {
		t.Error("G28 emitted with auto home disabled")
	}
	if !strings.Contains(out, "G1  X1.0000 Y2.0000\n") || !strings.Contains(out, "G1  X3.0000 Y4.0000\n") {
		t.Errorf("Coordinates not passed through:\n%s", out)
	}
}

func TestDrawLineOptions(t *testing.T) {
	w := newWriter(t)
	w.DrawLine(0, 0, 10, 10, WithZ(5), WithEndZ(7), WithSpeed(700), WithPower(50))

	out := w.String()
	for _, line := range []string{
		"G1  X60.0000 Y45.0000 Z5.0000",
		"G1  X70.0000 Y55.0000 Z7.0000",
		"M106 S50",
		"G1 F700.0000",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("Missing %q in:\n%s", line, out)
		}
	}
}

func TestDrawRectangleStartsAtLastCorner(t *testing.T) {
	w := newWriter(t)
	w.DrawRectangle(0, 0, 10, 5)

	lines := strings.Split(w.String(), "\n")
	var moves []string
	for _, l := range lines {
		if strings.HasPrefix(l, "G1  X") {
			moves = append(moves, l)
		}
	}
	// travel + 4 corners + return home
	if len(moves) != 6 {
		t.Fatalf("Expected 6 moves, got %d: %v", len(moves), moves)
	}
	if moves[0] != "G1  X60.0000 Y45.0000" || moves[4] != "G1  X60.0000 Y45.0000" {
		t.Errorf("Rectangle should start and end at its origin: %v", moves)
	}
}

func TestDrawCircleUsesArcs(t *testing.T) {
	w := newWriter(t)
	w.DrawCircle(10, 10, 5, WithZ(3))

	out := w.String()
	if n := strings.Count(out, "G2  "); n != 4 {
		t.Errorf("Expected 4 arcs, got %d", n)
	}
	if !strings.Contains(out, "G2  X70.0000 Y60.0000 R5.0000") {
		t.Errorf("Missing top arc in:\n%s", out)
	}
	if !strings.Contains(out, "\nG1  Z3.0000\nG4 P0\nM106") {
		t.Errorf("Head height should be set before the laser turns on:\n%s", out)
	}
}

func TestDrawPathRejectsEmpty(t *testing.T) {
	w := newWriter(t)
	if err := w.DrawPath(nil); err == nil {
		t.Error("Expected error for empty path")
	}
	if err := w.DrawPath([]geom.Coord{{X: 1, Y: 1}, {X: 2, Y: 2}}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestWriteToIsRepeatable(t *testing.T) {
	w := newWriter(t)
	w.DrawLine(0, 0, 1, 1)

	var a, b bytes.Buffer
	if _, err := w.WriteTo(&a); err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteTo(&b); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("WriteTo should not change the program")
	}
	if strings.Count(a.String(), "G1  X0.0000 Y0.0000") != 1 {
		t.Error("Expected exactly one return to origin")
	}
	if strings.HasSuffix(a.String(), "\n") || strings.HasPrefix(a.String(), "\n") {
		t.Error("Program should be trimmed")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"move speed", func(c *Config) { c.MoveSpeed = 0 }},
		{"pause", func(c *Config) { c.PauseSeconds = -1 }},
		{"speed", func(c *Config) { c.Speed = 0 }},
		{"power", func(c *Config) { c.Power = 300 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewWriter(cfg)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("Expected ConfigError, got %v", err)
			}
		})
	}
}
