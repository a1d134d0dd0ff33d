package capture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// glRows builds bottom-up RGBA pixels where row y of the final image has
// red value 10*y.
func glRows(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * width * 4
		for x := 0; x < width; x++ {
			pixels[src+x*4] = uint8(10 * y)
			pixels[src+x*4+3] = 255
		}
	}
	return pixels
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestFrameFromPixelsFlips(t *testing.T) {
	img, err := FrameFromPixels(glRows(2, 3), 2, 3)
	if err != nil {
		t.Fatalf("FrameFromPixels failed: %v", err)
	}
	for y := 0; y < 3; y++ {
		if got := img.RGBAAt(1, y).R; got != uint8(10*y) {
			t.Errorf("row %d: expected red %d, got %d", y, 10*y, got)
		}
	}
}

func TestFrameFromPixelsSizeMismatch(t *testing.T) {
	tests := []struct {
		name          string
		pixels        []byte
		width, height int
	}{
		{"short", make([]byte, 7), 2, 1},
		{"zero width", nil, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FrameFromPixels(tt.pixels, tt.width, tt.height); !errors.Is(err, ErrPixelSize) {
				t.Errorf("expected ErrPixelSize, got %v", err)
			}
		})
	}
}

func TestCaptureNextNumbersFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	c := New(dir, "anaglyph")
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})

	for _, want := range []string{"anaglyph-001.png", "anaglyph-002.png"} {
		path, err := c.CaptureNext(img)
		if err != nil {
			t.Fatalf("CaptureNext failed: %v", err)
		}
		if path != filepath.Join(dir, want) {
			t.Errorf("expected %s, got %s", want, path)
		}
	}

	got := readPNG(t, filepath.Join(dir, "anaglyph-002.png"))
	if r, _, _, _ := got.At(0, 0).RGBA(); r>>8 != 200 {
		t.Errorf("expected red 200 in saved frame, got %d", r>>8)
	}

	c.Restart()
	if name := c.SequenceName(1); filepath.Base(name) != "anaglyph-001.png" {
		t.Errorf("unexpected name after restart: %s", name)
	}
}

func TestCaptureFromPixels(t *testing.T) {
	c := New(t.TempDir(), "frame")
	c.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }

	path, err := c.CaptureFromPixels(glRows(4, 2), 4, 2)
	if err != nil {
		t.Fatalf("CaptureFromPixels failed: %v", err)
	}
	if filepath.Base(path) != "frame_2024-03-09_14-05-06.png" {
		t.Errorf("unexpected snapshot name %s", path)
	}
	img := readPNG(t, path)
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 2 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	if r, _, _, _ := img.At(0, 1).RGBA(); r>>8 != 10 {
		t.Errorf("expected flipped row with red 10, got %d", r>>8)
	}
}

func TestSequenceNameWithoutDir(t *testing.T) {
	c := New("", "shot")
	if got := c.SequenceName(12); got != "shot-012.png" {
		t.Errorf("expected shot-012.png, got %s", got)
	}
}
