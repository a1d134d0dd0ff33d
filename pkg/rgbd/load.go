package rgbd

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Suffixes of the files written by a saved depthmap session.
const (
	SessionImageSuffix = "-depthmap-image.png"
	SessionDepthSuffix = "-depthmap-mask.png"
)

// ImageFromStd converts any decoded raster into a BGR Image.
func ImageFromStd(src image.Image) *Image {
	b := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}

	out := NewImage(b.Dx(), b.Dy())
	for y := 0; y < out.H; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*out.W]
		dst := out.Pix[y*out.Stride : y*out.Stride+3*out.W]
		for x := 0; x < out.W; x++ {
			dst[3*x] = src[4*x+2]
			dst[3*x+1] = src[4*x+1]
			dst[3*x+2] = src[4*x]
		}
	}
	return out
}

// DepthmapFromStd converts a decoded raster into a Depthmap. Color sources
// are reduced to luma.
func DepthmapFromStd(src image.Image) *Depthmap {
	b := src.Bounds()
	gray, ok := src.(*image.Gray)
	if !ok || gray.Bounds().Min != (image.Point{}) {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	}

	out := NewDepthmap(b.Dx(), b.Dy())
	for y := 0; y < out.H; y++ {
		copy(out.Pix[y*out.W:(y+1)*out.W], gray.Pix[y*gray.Stride:y*gray.Stride+out.W])
	}
	return out
}

// DecodeImage decodes raster bytes (PNG, JPEG, GIF, BMP, TIFF or WebP).
func DecodeImage(data []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ImageFromStd(img), nil
}

// DecodeDepthmap decodes raster bytes into a depthmap.
func DecodeDepthmap(data []byte) (*Depthmap, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return DepthmapFromStd(img), nil
}

// LoadPair reads and validates an image and its depthmap.
func LoadPair(imagePath, depthPath string) (*Pair, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", imagePath, err)
	}

	data, err = os.ReadFile(depthPath)
	if err != nil {
		return nil, fmt.Errorf("reading depthmap: %w", err)
	}
	dm, err := DecodeDepthmap(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", depthPath, err)
	}

	pair := NewPair(img, dm)
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	return pair, nil
}

// SessionPaths returns the image and depthmap paths of a saved session.
func SessionPaths(base string) (imagePath, depthPath string) {
	return base + SessionImageSuffix, base + SessionDepthSuffix
}

// LoadSession loads a pair saved with SaveSession.
func LoadSession(base string) (*Pair, error) {
	return LoadPair(SessionPaths(base))
}

// SaveSession writes the pair as two PNG files next to base.
func SaveSession(base string, p *Pair) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return err
	}
	imagePath, depthPath := SessionPaths(base)
	if err := savePNG(imagePath, p.Image.ToRGBA()); err != nil {
		return err
	}
	return savePNG(depthPath, p.Depth.ToGray())
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return f.Close()
}
