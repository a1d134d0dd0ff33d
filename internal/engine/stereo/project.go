package stereo

import (
	"fmt"
	"image"
	"math"

	"github.com/Faultbox/depth3d/pkg/rgbd"
)

// Camera describes the virtual pinhole camera used by Project3D.
type Camera struct {
	H float64 // offset from the image center
	D float64 // distance of the image plane
	L float64 // focal length
}

// DefaultCamera returns the rig the stereo views are tuned for.
func DefaultCamera() Camera {
	return Camera{H: 400, D: 1000, L: 10000}
}

// ProjectParams controls one Project3D pass.
type ProjectParams struct {
	// D0 is the zero-parallax depth.
	D0 int
	// AngleX and AngleY place the camera on its circle, in degrees.
	AngleX, AngleY int
	// Radius is the half-size of the square each source pixel covers.
	Radius int
	Camera Camera
}

// Project3D re-renders img from a camera rotated by the given angles. Every
// source pixel is projected through the camera and splatted over a
// (2·radius+1)² square; where candidates overlap the nearest one wins.
// Pixels no source reaches stay fully transparent.
func Project3D(img *rgbd.Image, dm *rgbd.Depthmap, p ProjectParams) (*image.RGBA, error) {
	if err := rgbd.NewPair(img, dm).Validate(); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	if p.Radius < 0 {
		return nil, fmt.Errorf("project: %w: got %d", ErrInvalidRadius, p.Radius)
	}
	if p.Camera == (Camera{}) {
		p.Camera = DefaultCamera()
	}

	w, h := img.W, img.H
	x0 := float64(w / 2)
	y0 := float64(h / 2)

	thetaX := math.Pi * 2 * float64(p.AngleX) / 360
	thetaY := math.Pi * 2 * float64(p.AngleY) / 360
	camX := math.Cos(thetaX) * p.Camera.H
	camY := math.Sin(thetaY) * p.Camera.H

	t := newTarget(w, h, p.D0)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			d := int(dm.At(col, row)) - p.D0
			x := p.Camera.axis(camX, x0, float64(col), float64(d))
			y := p.Camera.axis(camY, y0, float64(row), float64(d))
			b, g, r := img.BGRAt(col, row)
			t.splat(int(math.Round(x)), int(math.Round(y)), p.Radius, d, b, g, r)
		}
	}
	return t.out, nil
}

// axis maps one source coordinate to the target view along a single axis.
func (c Camera) axis(cam, origin, coord, d float64) float64 {
	tanAlpha := cam / c.D
	alpha := math.Atan(tanAlpha)
	tanBeta := (tanAlpha*c.L + cam + origin - coord) / (c.D - d + c.L)
	beta := math.Atan(tanBeta)
	return origin - c.L*math.Tan(beta-alpha)/math.Cos(alpha)
}

// Project3DBGR runs Project3D and flattens the result, turning untouched
// pixels black.
func Project3DBGR(img *rgbd.Image, dm *rgbd.Depthmap, p ProjectParams) (*rgbd.Image, error) {
	out, err := Project3D(img, dm, p)
	if err != nil {
		return nil, err
	}
	return rgbd.ImageFromStd(out), nil
}

// target is a view under construction together with its depth buffer.
type target struct {
	out   *image.RGBA
	depth []int
	w, h  int
}

func newTarget(w, h, d0 int) *target {
	t := &target{
		out:   image.NewRGBA(image.Rect(0, 0, w, h)),
		depth: make([]int, w*h),
		w:     w,
		h:     h,
	}
	for i := range t.depth {
		t.depth[i] = -d0 - 1
	}
	return t
}

// splat writes a color at depth d over the square centered on (x, y),
// skipping pixels outside the view or already holding a nearer sample.
func (t *target) splat(x, y, radius, d int, b, g, r uint8) {
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			px, py := x+dx, y+dy
			if px < 0 || px >= t.w || py < 0 || py >= t.h {
				continue
			}
			i := py*t.w + px
			if d <= t.depth[i] {
				continue
			}
			t.depth[i] = d
			o := t.out.PixOffset(px, py)
			t.out.Pix[o+0] = r
			t.out.Pix[o+1] = g
			t.out.Pix[o+2] = b
			t.out.Pix[o+3] = 255
		}
	}
}
