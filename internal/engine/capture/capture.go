// Package capture writes rendered frames and synthesized views to PNG files,
// either as single timestamped snapshots or as numbered sequences.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

var ErrPixelSize = errors.New("pixel data size mismatch")

// Capture names and writes PNG files below a directory.
type Capture struct {
	outputDir string
	prefix    string
	next      int
	now       func() time.Time
}

// New creates a capture writing to outputDir with files named after prefix.
func New(outputDir, prefix string) *Capture {
	return &Capture{
		outputDir: outputDir,
		prefix:    prefix,
		next:      1,
		now:       time.Now,
	}
}

// FrameFromPixels converts bottom-up RGBA rows read back from OpenGL into
// a top-down image.
func FrameFromPixels(pixels []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("%w: expected %d bytes for %dx%d, got %d", ErrPixelSize, width*height*4, width, height, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}

// CaptureFromPixels writes a snapshot of raw GL pixels.
func (c *Capture) CaptureFromPixels(pixels []byte, width, height int) (string, error) {
	img, err := FrameFromPixels(pixels, width, height)
	if err != nil {
		return "", err
	}
	return c.CaptureImage(img)
}

// CaptureImage writes img as a timestamped snapshot.
func (c *Capture) CaptureImage(img image.Image) (string, error) {
	path := c.SnapshotName()
	return path, Save(path, img)
}

// CaptureNext writes img as the next file of the numbered sequence
// <prefix>-001.png, <prefix>-002.png and so on.
func (c *Capture) CaptureNext(img image.Image) (string, error) {
	path := c.SequenceName(c.next)
	if err := Save(path, img); err != nil {
		return "", err
	}
	c.next++
	return path, nil
}

// Restart makes the next sequence file number 1 again.
func (c *Capture) Restart() {
	c.next = 1
}

// SnapshotName returns the timestamped file name for a snapshot.
func (c *Capture) SnapshotName() string {
	timestamp := c.now().Format("2006-01-02_15-04-05")
	return c.join(fmt.Sprintf("%s_%s.png", c.prefix, timestamp))
}

// SequenceName returns the file name of sequence frame n.
func (c *Capture) SequenceName(n int) string {
	return c.join(fmt.Sprintf("%s-%03d.png", c.prefix, n))
}

func (c *Capture) join(name string) string {
	if c.outputDir == "" {
		return name
	}
	return filepath.Join(c.outputDir, name)
}

// Save encodes img as PNG at path, creating parent directories.
func Save(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return file.Close()
}
