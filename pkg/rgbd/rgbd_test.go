package rgbd

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// newTestPair builds a w×h pair with a recognisable gradient in both members.
func newTestPair(w, h int) *Pair {
	img := NewImage(w, h)
	dm := NewDepthmap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetBGR(x, y, uint8(x*10), uint8(y*10), uint8(x+y))
			dm.Set(x, y, uint8((x*7+y*13)%256))
		}
	}
	return NewPair(img, dm)
}

func TestPairValidate(t *testing.T) {
	tests := []struct {
		name string
		pair *Pair
		want error
	}{
		{"valid", newTestPair(4, 3), nil},
		{"nil pair", nil, ErrEmptyImage},
		{"empty image", NewPair(NewImage(0, 0), NewDepthmap(2, 2)), ErrEmptyImage},
		{"nil depthmap", NewPair(NewImage(2, 2), nil), ErrEmptyDepthmap},
		{"width mismatch", NewPair(NewImage(3, 2), NewDepthmap(2, 2)), ErrSizeMismatch},
		{"height mismatch", NewPair(NewImage(2, 3), NewDepthmap(2, 2)), ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pair.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPairBump(t *testing.T) {
	p := newTestPair(2, 2)
	if p.Version != 1 {
		t.Fatalf("expected version 1, got %d", p.Version)
	}
	if v := p.Bump(); v != 2 || p.Version != 2 {
		t.Errorf("expected version 2 after bump, got %d", p.Version)
	}
}

func TestImageRGBARoundTrip(t *testing.T) {
	p := newTestPair(5, 4)
	rgba := p.Image.ToRGBA()

	c := rgba.RGBAAt(3, 2)
	b, g, r := p.Image.BGRAt(3, 2)
	if c.R != r || c.G != g || c.B != b || c.A != 255 {
		t.Errorf("RGBA pixel %v does not match BGR (%d,%d,%d)", c, b, g, r)
	}

	back := ImageFromStd(rgba)
	if !bytes.Equal(back.Pix, p.Image.Pix) {
		t.Error("ImageFromStd(ToRGBA()) changed pixel data")
	}
}

func TestDepthmapFromColorSource(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	src.Set(1, 0, color.RGBA{R: 0, G: 0, B: 0, A: 255})

	dm := DepthmapFromStd(src)
	if dm.At(0, 0) != 255 || dm.At(1, 0) != 0 {
		t.Errorf("expected luma 255,0 got %d,%d", dm.At(0, 0), dm.At(1, 0))
	}
}

func TestDepthmapFromOffsetBounds(t *testing.T) {
	src := image.NewGray(image.Rect(10, 10, 13, 12))
	src.SetGray(10, 10, color.Gray{Y: 42})

	dm := DepthmapFromStd(src)
	if dm.W != 3 || dm.H != 2 {
		t.Fatalf("expected 3x2, got %dx%d", dm.W, dm.H)
	}
	if dm.At(0, 0) != 42 {
		t.Errorf("expected 42 at origin, got %d", dm.At(0, 0))
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadPair(t *testing.T) {
	dir := t.TempDir()
	p := newTestPair(6, 4)
	imagePath := filepath.Join(dir, "photo.png")
	depthPath := filepath.Join(dir, "photo-depth.png")
	writePNG(t, imagePath, p.Image.ToRGBA())
	writePNG(t, depthPath, p.Depth.ToGray())

	loaded, err := LoadPair(imagePath, depthPath)
	if err != nil {
		t.Fatalf("LoadPair failed: %v", err)
	}
	if !bytes.Equal(loaded.Image.Pix, p.Image.Pix) {
		t.Error("image pixels differ after load")
	}
	if !bytes.Equal(loaded.Depth.Pix, p.Depth.Pix) {
		t.Error("depth samples differ after load")
	}
}

func TestLoadPairSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "a.png")
	depthPath := filepath.Join(dir, "b.png")
	writePNG(t, imagePath, newTestPair(4, 4).Image.ToRGBA())
	writePNG(t, depthPath, newTestPair(5, 4).Depth.ToGray())

	_, err := LoadPair(imagePath, depthPath)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestLoadPairMissing(t *testing.T) {
	_, err := LoadPair("/nonexistent/a.png", "/nonexistent/b.png")
	if err == nil {
		t.Error("expected error for missing files")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "sessions", "scene")
	p := newTestPair(3, 3)

	if err := SaveSession(base, p); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	imagePath, depthPath := SessionPaths(base)
	if filepath.Base(imagePath) != "scene-depthmap-image.png" {
		t.Errorf("unexpected image path %s", imagePath)
	}
	if filepath.Base(depthPath) != "scene-depthmap-mask.png" {
		t.Errorf("unexpected depth path %s", depthPath)
	}

	loaded, err := LoadSession(base)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if !bytes.Equal(loaded.Depth.Pix, p.Depth.Pix) {
		t.Error("depth samples differ after session round trip")
	}
}
