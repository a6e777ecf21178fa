package imagesource

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(40 * x), G: uint8(40 * x), B: uint8(40 * x), A: 255})
		}
	}
	return img
}

func writeFile(t *testing.T, name string, encode func(f *os.File) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := encode(f); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	return path
}

func TestLoadRasterFormats(t *testing.T) {
	src := testImage()
	tests := []struct {
		name   string
		encode func(f *os.File) error
	}{
		{"img.png", func(f *os.File) error { return png.Encode(f, src) }},
		{"img.bmp", func(f *os.File) error { return bmp.Encode(f, src) }},
		{"img.tiff", func(f *os.File) error { return tiff.Encode(f, src, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Load(writeFile(t, tt.name, tt.encode))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 4 {
				t.Fatalf("Expected 6x4, got %v", img.Bounds())
			}
			r, _, _, _ := img.At(3, 1).RGBA()
			if r>>8 != 120 {
				t.Errorf("Expected red 120 at (3,1), got %d", r>>8)
			}
		})
	}
}

func TestLoadFlattensTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})

	path := writeFile(t, "alpha.png", func(f *os.File) error { return png.Encode(f, img) })
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if r, _, _, _ := out.At(1, 1).RGBA(); r>>8 != 255 {
		t.Errorf("Transparent pixel should become white, got %d", r>>8)
	}
	if r, _, _, _ := out.At(0, 0).RGBA(); r>>8 != 0 {
		t.Errorf("Opaque black should stay black, got %d", r>>8)
	}
}

func TestLoadSVG(t *testing.T) {
	doc := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10" width="20" height="10">
<rect x="0" y="0" width="10" height="10" fill="black"/>
</svg>`
	path := filepath.Join(t.TempDir(), "shape.svg")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Fatalf("Expected 20x10, got %v", img.Bounds())
	}
	if r, _, _, _ := img.At(5, 5).RGBA(); r>>8 > 20 {
		t.Errorf("Expected dark pixel inside rect, got %d", r>>8)
	}
	if r, _, _, _ := img.At(15, 5).RGBA(); r>>8 < 235 {
		t.Errorf("Expected white background, got %d", r>>8)
	}
}

func TestDecodeSVGScales(t *testing.T) {
	doc := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10"></svg>`

	img, err := DecodeSVG(strings.NewReader(doc), 100)
	if err != nil {
		t.Fatalf("DecodeSVG failed: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50, got %v", img.Bounds())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}
