// Package stereo synthesizes a second viewpoint from an image and its
// depthmap and merges view pairs into red-cyan anaglyphs.
package stereo

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/depth3d/pkg/rgbd"
)

var (
	ErrInvalidReference = errors.New("reference must be in [1,254]")
	ErrInvalidRadius    = errors.New("radius must not be negative")
)

// Displace shifts every pixel horizontally in proportion to its depth
// relative to the zero-parallax plane at depth 255-reference. Pixels pushed
// outside the image are dropped; uncovered pixels keep the source color.
// A coefficient of 0 returns an unchanged copy.
func Displace(img *rgbd.Image, dm *rgbd.Depthmap, coefficient, reference int) (*rgbd.Image, error) {
	if err := rgbd.NewPair(img, dm).Validate(); err != nil {
		return nil, fmt.Errorf("displace: %w", err)
	}
	if reference < 1 || reference > 254 {
		return nil, fmt.Errorf("displace: %w: got %d", ErrInvalidReference, reference)
	}

	plane := float64(255 - reference)
	result := img.Clone()
	for col := 0; col < img.W; col++ {
		for row := 0; row < img.H; row++ {
			shift := int(math.Round((float64(dm.At(col, row)) - plane) / plane * float64(-coefficient)))
			x := col + shift
			if x < 0 || x >= img.W {
				continue
			}
			b, g, r := img.BGRAt(col, row)
			result.SetBGR(x, row, b, g, r)
		}
	}
	return result, nil
}
