package stereo

import (
	"fmt"

	"github.com/Faultbox/depth3d/pkg/rgbd"
)

// Composite merges a view pair into a red-cyan anaglyph: the right view with
// its red channel taken from the left view.
func Composite(left, right *rgbd.Image) (*rgbd.Image, error) {
	if left.Empty() || right.Empty() {
		return nil, rgbd.ErrEmptyImage
	}
	if err := rgbd.SameSize(left, right); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}

	out := right.Clone()
	for y := 0; y < out.H; y++ {
		for x := 0; x < out.W; x++ {
			o := y*out.Stride + 3*x
			out.Pix[o+2] = left.Pix[y*left.Stride+3*x+2]
		}
	}
	return out, nil
}

// Desaturate replaces every pixel by its gray level in all three channels.
func Desaturate(img *rgbd.Image) *rgbd.Image {
	return rgbd.Grayscale(img)
}

// AnaglyphRedCyan builds an anaglyph from the source image as the left view
// and its Displace warp as the right view.
func AnaglyphRedCyan(img *rgbd.Image, dm *rgbd.Depthmap, gray bool, coefficient, reference int) (*rgbd.Image, error) {
	if err := rgbd.NewPair(img, dm).Validate(); err != nil {
		return nil, fmt.Errorf("anaglyph: %w", err)
	}
	if gray {
		img = Desaturate(img)
	}

	right, err := Displace(img, dm, coefficient, reference)
	if err != nil {
		return nil, err
	}
	return Composite(img, right)
}

// AnaglyphProject3D builds an anaglyph from two Project3D views placed
// symmetrically at angle and 180-angle.
func AnaglyphProject3D(img *rgbd.Image, dm *rgbd.Depthmap, gray bool, d0, angle, radius int) (*rgbd.Image, error) {
	if err := rgbd.NewPair(img, dm).Validate(); err != nil {
		return nil, fmt.Errorf("anaglyph: %w", err)
	}
	if gray {
		img = Desaturate(img)
	}

	left, err := Project3DBGR(img, dm, ProjectParams{D0: d0, AngleX: angle, Radius: radius})
	if err != nil {
		return nil, err
	}
	right, err := Project3DBGR(img, dm, ProjectParams{D0: d0, AngleX: 180 - angle, Radius: radius})
	if err != nil {
		return nil, err
	}
	return Composite(left, right)
}
