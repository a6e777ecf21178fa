package fit

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/cwbudde/laserlines/internal/intensity"
	"github.com/cwbudde/laserlines/internal/shape"
)

type recorder struct {
	lines [][2]image.Point
	err   error
}

func (r *recorder) EmitLine(start, end image.Point) error {
	if r.err != nil {
		return r.err
	}
	r.lines = append(r.lines, [2]image.Point{start, end})
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EpochSize = 20
	cfg.EpochCount = 2
	cfg.MaxIter = 50
	cfg.MaxRejections = 200
	return cfg
}

func newFitter(t *testing.T, g *intensity.Grid, em Emitter, cfg Config) *Fitter {
	t.Helper()
	f, err := New(g, em, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return f
}

func TestScoreZeroLengthLine(t *testing.T) {
	f := newFitter(t, intensity.Filled(10, 10, 200), nil, testConfig())

	l := shape.NewLine(10, 10, image.Pt(4, 4), image.Pt(4, 4))
	if s := f.Score(l); s != -1 {
		t.Errorf("Expected -1 for zero-length line, got %f", s)
	}
}

func TestScorePerfectMatch(t *testing.T) {
	g := intensity.New(10, 10)
	l := shape.NewLine(10, 10, image.Pt(1, 2), image.Pt(8, 6))
	st := l.Stamp()
	for y := 0; y < st.H; y++ {
		for x := 0; x < st.W; x++ {
			g.Set(st.Origin.X+x, st.Origin.Y+y, int32(st.At(x, y)))
		}
	}

	f := newFitter(t, g, nil, testConfig())
	if s := f.Score(l); s < 0.999 {
		t.Errorf("Expected score ~1 for exact match, got %f", s)
	}
}

func TestScoreOvershoot(t *testing.T) {
	tests := []struct {
		name  string
		fill  int32
		score float64
	}{
		{"empty residual", 0, 0},
		{"half deposit", shape.Deposit / 2, float64(shape.Deposit/2) / shape.Deposit},
		{"plenty", 255, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFitter(t, intensity.Filled(10, 10, tt.fill), nil, testConfig())
			l := shape.NewLine(10, 10, image.Pt(0, 5), image.Pt(9, 5))
			if s := f.Score(l); s < tt.score-1e-9 || s > tt.score+1e-9 {
				t.Errorf("Expected %f, got %f", tt.score, s)
			}
		})
	}
}

func TestScoreCountsNegativeResidualInBox(t *testing.T) {
	g := intensity.Filled(10, 10, 255)
	// Off the line but inside its bounding box
	g.Set(1, 0, -85)

	f := newFitter(t, g, nil, testConfig())
	l := shape.NewLine(10, 10, image.Pt(0, 0), image.Pt(2, 2))

	if s := f.Score(l); s >= 1 {
		t.Errorf("Negative residual in the box should lower the score, got %f", s)
	}
}

func TestBestRandomShapeConverges(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		cfg := testConfig()
		cfg.Seed = seed
		f := newFitter(t, intensity.Filled(10, 10, 200), nil, cfg)

		s, score, err := f.BestRandomShape()
		if err != nil {
			t.Fatalf("seed %d: unexpected error %v", seed, err)
		}
		if score <= 0.99 {
			t.Errorf("seed %d: expected score > 0.99, got %f", seed, score)
		}
		if s.Stamp().Weight() == 0 {
			t.Errorf("seed %d: best shape deposits nothing", seed)
		}
	}
}

func TestBestRandomShapeGivesUp(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRejections = 25
	f := newFitter(t, intensity.New(10, 10), nil, cfg)

	if _, _, err := f.BestRandomShape(); !errors.Is(err, ErrNoCandidate) {
		t.Errorf("Expected ErrNoCandidate on empty residual, got %v", err)
	}
}

func TestApplyConservesResidual(t *testing.T) {
	g := intensity.Filled(10, 10, 200)
	rec := &recorder{}
	f := newFitter(t, g, rec, testConfig())
	l := shape.NewLine(10, 10, image.Pt(0, 0), image.Pt(9, 3))

	before := g.Sum()
	if err := f.Apply(l); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if diff := before - g.Sum(); diff != int64(l.Stamp().Weight()) {
		t.Errorf("Residual dropped by %d, stamp weighs %d", diff, l.Stamp().Weight())
	}
	if len(rec.lines) != 1 || rec.lines[0] != [2]image.Point{image.Pt(0, 0), image.Pt(9, 3)} {
		t.Errorf("Unexpected emitted lines: %v", rec.lines)
	}
}

func TestApplyPropagatesEmitError(t *testing.T) {
	boom := errors.New("sink full")
	f := newFitter(t, intensity.Filled(10, 10, 200), &recorder{err: boom}, testConfig())

	err := f.Apply(shape.NewLine(10, 10, image.Pt(0, 0), image.Pt(5, 5)))
	if !errors.Is(err, boom) {
		t.Errorf("Expected sink error, got %v", err)
	}
}

// brokenShape claims a long segment but stamps a single pixel.
type brokenShape struct{}

func (brokenShape) Bounds() image.Rectangle { return image.Rect(0, 0, 1, 1) }
func (brokenShape) Stamp() *shape.Stamp {
	return &shape.Stamp{W: 1, H: 1, Pix: []int16{shape.Deposit}}
}
func (b brokenShape) Morph(float64, *rand.Rand) shape.Shape { return b }
func (b brokenShape) Copy() shape.Shape                     { return b }
func (brokenShape) Segment() (image.Point, image.Point) {
	return image.Pt(0, 0), image.Pt(6, 0)
}

func TestApplyDetectsInconsistentStamp(t *testing.T) {
	rec := &recorder{}
	f := newFitter(t, intensity.Filled(10, 10, 200), rec, testConfig())

	err := f.Apply(brokenShape{})

	var ce *ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ConsistencyError, got %v", err)
	}
	if ce.Declared.X != 6 {
		t.Errorf("Expected declared width 6, got %d", ce.Declared.X)
	}
	if len(rec.lines) != 0 {
		t.Error("Inconsistent shape must not be emitted")
	}
}

func TestRunReportsEpochs(t *testing.T) {
	g := intensity.Filled(30, 20, 255)
	rec := &recorder{}
	f := newFitter(t, g, rec, testConfig())

	var seen []EpochStats
	res, err := f.Run(context.Background(), func(s EpochStats) {
		seen = append(seen, s)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(seen) != 2 || len(res.Epochs) != 2 {
		t.Fatalf("Expected 2 epochs, observer saw %d, result has %d", len(seen), len(res.Epochs))
	}
	total := 0
	for i, s := range seen {
		if s.Epoch != i+1 || s.Epochs != 2 {
			t.Errorf("Unexpected epoch numbering: %+v", s)
		}
		if s.Searches+s.Skipped != 20 {
			t.Errorf("Epoch %d ran %d searches", s.Epoch, s.Searches+s.Skipped)
		}
		if s.Max < s.Mean {
			t.Errorf("Epoch %d: max %f below mean %f", s.Epoch, s.Max, s.Mean)
		}
		total += s.Applied
	}
	if total == 0 {
		t.Error("Expected shapes to be applied on a dark image")
	}
	if res.Applied != total || len(rec.lines) != total {
		t.Errorf("Applied mismatch: result %d, epochs %d, emitted %d", res.Applied, total, len(rec.lines))
	}
}

func TestRunDeterministic(t *testing.T) {
	run := func() [][2]image.Point {
		rec := &recorder{}
		f := newFitter(t, intensity.Filled(30, 20, 255), rec, testConfig())
		if _, err := f.Run(context.Background(), nil); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return rec.lines
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("Different line counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Line %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRunSkipsWhenNothingFits(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRejections = 10
	rec := &recorder{}
	f := newFitter(t, intensity.New(10, 10), rec, cfg)

	res, err := f.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Applied != 0 || len(rec.lines) != 0 {
		t.Errorf("Nothing should be applied on an empty residual")
	}
	if res.Epochs[0].Skipped != cfg.EpochSize {
		t.Errorf("Expected every search skipped, got %d", res.Epochs[0].Skipped)
	}
}

func TestRunStopsOnConvergence(t *testing.T) {
	cfg := testConfig()
	cfg.EpochCount = 10
	cfg.MaxRejections = 10
	cfg.Convergence = ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 0.5}
	f := newFitter(t, intensity.New(10, 10), nil, cfg)

	res, err := f.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Converged || len(res.Epochs) != 2 {
		t.Errorf("Expected convergence after 2 epochs, got converged=%v epochs=%d", res.Converged, len(res.Epochs))
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	f := newFitter(t, intensity.Filled(10, 10, 200), nil, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Run(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestMayflySearchFindsLine(t *testing.T) {
	cfg := testConfig()
	cfg.Search = SearchMayfly
	cfg.MayflyIterations = 10
	cfg.MayflyPopulation = 20
	f := newFitter(t, intensity.Filled(10, 10, 200), nil, cfg)

	s, score, err := f.search.Search(f)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if score <= 0.99 {
		t.Errorf("Expected score > 0.99, got %f", score)
	}
	if _, ok := s.(shape.Segmenter); !ok {
		t.Error("Expected a line")
	}
}

func TestPrepareInverts(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(1, 1, color.Gray{Y: 0})

	g, err := Prepare(img, 1)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if g.At(1, 1) != 255 || g.At(0, 0) != 0 {
		t.Errorf("Expected dark pixel at 255 and white at 0, got %d and %d", g.At(1, 1), g.At(0, 0))
	}

	small, err := Prepare(image.NewGray(image.Rect(0, 0, 8, 6)), 2)
	if err != nil {
		t.Fatalf("Prepare with approximation failed: %v", err)
	}
	if small.W != 4 || small.H != 3 {
		t.Errorf("Expected 4x3 residual, got %dx%d", small.W, small.H)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"approx", func(c *Config) { c.ApproxLevel = 0 }},
		{"epoch size", func(c *Config) { c.EpochSize = 0 }},
		{"epoch count", func(c *Config) { c.EpochCount = -1 }},
		{"eps", func(c *Config) { c.Eps = 1 }},
		{"search", func(c *Config) { c.Search = "annealing" }},
		{"rejections", func(c *Config) { c.MaxRejections = -1 }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			var ce *ConfigError
			if err := cfg.Validate(); !errors.As(err, &ce) {
				t.Errorf("Expected ConfigError, got %v", err)
			}
		})
	}
}
