package rgbd

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nfnt/resize"
)

// ErrInvalidGamma is returned for a non-positive gamma.
var ErrInvalidGamma = errors.New("gamma must be positive")

// TintMode selects how an image is recolored before red-cyan viewing.
type TintMode int

const (
	TintColor TintMode = iota
	TintGray
	TintTrue
	TintHalf
	TintOptimized
	TintDubois
)

var tintNames = [...]string{"color", "gray", "true", "half", "optimized", "dubois"}

func (t TintMode) String() string {
	if t < 0 || int(t) >= len(tintNames) {
		return "unknown"
	}
	return tintNames[t]
}

// ParseTint maps a config name to a TintMode.
func ParseTint(name string) (TintMode, error) {
	for i, n := range tintNames {
		if strings.EqualFold(n, name) {
			return TintMode(i), nil
		}
	}
	return TintColor, fmt.Errorf("unknown tint %q", name)
}

// Luma returns the BT.601 luma of an RGB triple.
func Luma(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b) + 500) / 1000)
}

// Grayscale returns a copy with every pixel replaced by its luma.
func Grayscale(img *Image) *Image {
	out := img.Clone()
	for i := 0; i+2 < len(out.Pix); i += 3 {
		y := Luma(out.Pix[i+2], out.Pix[i+1], out.Pix[i])
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = y, y, y
	}
	return out
}

// Rows are output R, G, B; columns are input R, G, B.
var tintMatrices = map[TintMode][3][3]float64{
	TintTrue: {
		{0.299, 0.587, 0.114},
		{0, 0, 0},
		{0.299, 0.587, 0.114},
	},
	TintHalf: {
		{0.299, 0.587, 0.114},
		{0, 1, 0},
		{0, 0, 1},
	},
	TintOptimized: {
		{0, 0.7, 0.3},
		{0, 1, 0},
		{0, 0, 1},
	},
	TintDubois: {
		{0.413, 0.412, 0.174},
		{0.338, 0.696, -0.034},
		{-0.087, -0.134, 1.221},
	},
}

// Tint recolors img to reduce retinal rivalry in red-cyan viewing.
func Tint(img *Image, mode TintMode) *Image {
	switch mode {
	case TintColor:
		return img.Clone()
	case TintGray:
		return Grayscale(img)
	}
	m, ok := tintMatrices[mode]
	if !ok {
		return img.Clone()
	}

	out := img.Clone()
	for i := 0; i+2 < len(out.Pix); i += 3 {
		b, g, r := float64(out.Pix[i]), float64(out.Pix[i+1]), float64(out.Pix[i+2])
		out.Pix[i+2] = clamp8(m[0][0]*r + m[0][1]*g + m[0][2]*b)
		out.Pix[i+1] = clamp8(m[1][0]*r + m[1][1]*g + m[1][2]*b)
		out.Pix[i] = clamp8(m[2][0]*r + m[2][1]*g + m[2][2]*b)
	}
	return out
}

// Gamma applies out = 255·(in/255)^gamma to every channel.
func Gamma(img *Image, gamma float64) (*Image, error) {
	if gamma <= 0 || math.IsNaN(gamma) {
		return nil, ErrInvalidGamma
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(math.Pow(float64(i)/255, gamma) * 255)
	}
	out := img.Clone()
	for i, v := range out.Pix {
		out.Pix[i] = lut[v]
	}
	return out, nil
}

// BlurDepthmap smooths a depthmap with a Gaussian kernel of size
// 2·amount+1. Borders are reflected without repeating the edge sample.
func BlurDepthmap(dm *Depthmap, amount int) *Depthmap {
	if amount <= 0 || dm.Empty() {
		return dm.Clone()
	}
	kernel := gaussianKernel(2*amount + 1)

	tmp := make([]float64, len(dm.Pix))
	for y := 0; y < dm.H; y++ {
		for x := 0; x < dm.W; x++ {
			var sum float64
			for k, w := range kernel {
				sx := reflect101(x+k-amount, dm.W)
				sum += w * float64(dm.Pix[y*dm.W+sx])
			}
			tmp[y*dm.W+x] = sum
		}
	}

	out := NewDepthmap(dm.W, dm.H)
	for y := 0; y < dm.H; y++ {
		for x := 0; x < dm.W; x++ {
			var sum float64
			for k, w := range kernel {
				sy := reflect101(y+k-amount, dm.H)
				sum += w * tmp[sy*dm.W+x]
			}
			out.Pix[y*dm.W+x] = clamp8(sum)
		}
	}
	return out
}

// Sigma follows the usual derivation from kernel size when none is given.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	half := size / 2
	k := make([]float64, size)
	var total float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		total += k[i]
	}
	for i := range k {
		k[i] /= total
	}
	return k
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// Downscale shrinks both members of the pair so that neither dimension
// exceeds maxDim, keeping the aspect ratio. Pairs already small enough are
// returned unchanged. Depth is resampled with nearest neighbour so no new
// depth values are invented along edges.
func Downscale(p *Pair, maxDim int) (*Pair, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	w, h := p.Width(), p.Height()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return p, nil
	}

	scale := float64(maxDim) / float64(max(w, h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	img := resize.Resize(uint(nw), uint(nh), p.Image.ToRGBA(), resize.Lanczos3)
	dm := resize.Resize(uint(nw), uint(nh), p.Depth.ToGray(), resize.NearestNeighbor)

	out := &Pair{
		Image:   ImageFromStd(img),
		Depth:   DepthmapFromStd(dm),
		Version: p.Version + 1,
	}
	return out, out.Validate()
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
