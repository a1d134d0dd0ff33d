// Package rgbd provides the color image and depthmap grids consumed by the
// mesh and view-synthesis engines.
package rgbd

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrEmptyDepthmap = errors.New("depthmap is empty")
	ErrSizeMismatch  = errors.New("image and depthmap sizes differ")
)

// Image is an 8-bit, 3-channel raster stored in blue, green, red order.
type Image struct {
	Pix    []uint8
	Stride int
	W, H   int
}

// NewImage allocates a black w×h image.
func NewImage(w, h int) *Image {
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return &Image{
		Pix:    make([]uint8, 3*w*h),
		Stride: 3 * w,
		W:      w,
		H:      h,
	}
}

// Width returns the number of columns.
func (m *Image) Width() int { return m.W }

// Height returns the number of rows.
func (m *Image) Height() int { return m.H }

// Empty reports whether the image has no pixels.
func (m *Image) Empty() bool {
	return m == nil || m.W == 0 || m.H == 0
}

// BGRAt returns the blue, green and red samples at column x, row y.
func (m *Image) BGRAt(x, y int) (b, g, r uint8) {
	i := y*m.Stride + 3*x
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// SetBGR writes one pixel.
func (m *Image) SetBGR(x, y int, b, g, r uint8) {
	i := y*m.Stride + 3*x
	m.Pix[i] = b
	m.Pix[i+1] = g
	m.Pix[i+2] = r
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	c := &Image{
		Pix:    make([]uint8, len(m.Pix)),
		Stride: m.Stride,
		W:      m.W,
		H:      m.H,
	}
	copy(c.Pix, m.Pix)
	return c
}

// ToRGBA converts the image to an opaque *image.RGBA.
func (m *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.W, m.H))
	for y := 0; y < m.H; y++ {
		src := m.Pix[y*m.Stride : y*m.Stride+3*m.W]
		dst := out.Pix[y*out.Stride : y*out.Stride+4*m.W]
		for x := 0; x < m.W; x++ {
			dst[4*x] = src[3*x+2]
			dst[4*x+1] = src[3*x+1]
			dst[4*x+2] = src[3*x]
			dst[4*x+3] = 255
		}
	}
	return out
}

// Depthmap is an 8-bit single-channel grid of depth values.
// Larger values are nearer to the viewer.
type Depthmap struct {
	Pix  []uint8
	W, H int
}

// NewDepthmap allocates a zeroed w×h depthmap.
func NewDepthmap(w, h int) *Depthmap {
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return &Depthmap{Pix: make([]uint8, w*h), W: w, H: h}
}

// Width returns the number of columns.
func (d *Depthmap) Width() int { return d.W }

// Height returns the number of rows.
func (d *Depthmap) Height() int { return d.H }

// Empty reports whether the depthmap has no samples.
func (d *Depthmap) Empty() bool {
	return d == nil || d.W == 0 || d.H == 0
}

// At returns the depth at column x, row y.
func (d *Depthmap) At(x, y int) uint8 {
	return d.Pix[y*d.W+x]
}

// Set writes the depth at column x, row y.
func (d *Depthmap) Set(x, y int, v uint8) {
	d.Pix[y*d.W+x] = v
}

// Fill sets every sample to v.
func (d *Depthmap) Fill(v uint8) {
	for i := range d.Pix {
		d.Pix[i] = v
	}
}

// Clone returns a deep copy.
func (d *Depthmap) Clone() *Depthmap {
	c := &Depthmap{Pix: make([]uint8, len(d.Pix)), W: d.W, H: d.H}
	copy(c.Pix, d.Pix)
	return c
}

// ToGray converts the depthmap to an *image.Gray.
func (d *Depthmap) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, d.W, d.H))
	for y := 0; y < d.H; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+d.W], d.Pix[y*d.W:(y+1)*d.W])
	}
	return out
}

// Pair couples an image with its depthmap. Version increases every time the
// content of either member changes so background work can detect staleness.
type Pair struct {
	Image   *Image
	Depth   *Depthmap
	Version uint64
}

// NewPair creates a pair at version 1.
func NewPair(img *Image, dm *Depthmap) *Pair {
	return &Pair{Image: img, Depth: dm, Version: 1}
}

// Validate checks the pair preconditions shared by every engine operation.
func (p *Pair) Validate() error {
	if p == nil || p.Image.Empty() {
		return ErrEmptyImage
	}
	if p.Depth.Empty() {
		return ErrEmptyDepthmap
	}
	return CheckSize(p.Image, p.Depth)
}

// Bump marks the pair content as changed.
func (p *Pair) Bump() uint64 {
	p.Version++
	return p.Version
}

// Width returns the common width of the pair.
func (p *Pair) Width() int { return p.Image.W }

// Height returns the common height of the pair.
func (p *Pair) Height() int { return p.Image.H }

// CheckSize returns ErrSizeMismatch, annotated with both sizes, when img and
// dm differ in dimensions.
func CheckSize(img *Image, dm *Depthmap) error {
	if img.W != dm.W || img.H != dm.H {
		return fmt.Errorf("%w: image %dx%d, depthmap %dx%d", ErrSizeMismatch, img.W, img.H, dm.W, dm.H)
	}
	return nil
}

// SameSize returns ErrSizeMismatch when a and b differ in dimensions.
func SameSize(a, b *Image) error {
	if a.W != b.W || a.H != b.H {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, a.W, a.H, b.W, b.H)
	}
	return nil
}
