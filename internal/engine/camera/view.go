// Package camera holds the interactive view state of the heightfield viewer:
// Euler rotations in whole degrees, a screen-space shift, a zoom factor and
// the anaglyph eye offset.
package camera

import (
	"github.com/Faultbox/depth3d/pkg/math"
)

const (
	DefaultZoom     = 8.0
	DefaultEyeShift = -1.5

	// KeyStep is the rotation applied by one arrow key press, in degrees.
	KeyStep = 10
	// ZoomStep multiplies or divides the zoom on each wheel notch.
	ZoomStep = 1.25
	// DragShiftStep converts mouse pixels into view shift units.
	DragShiftStep = 48

	halfExtent = 4 * 2048
	depthRange = 5000 * 2048
)

// Eye selects which anaglyph pass a model matrix is built for.
type Eye int

const (
	Center Eye = iota
	Left
	Right
)

// View is the orthographic view of the mesh.
type View struct {
	RotX, RotY, RotZ int
	ShiftX, ShiftY   float64
	Zoom             float64
	EyeShift         float64

	defaultZoom   float64
	width, height int
}

// NewView returns a view at the origin with the given zoom and eye shift.
// A non-positive zoom falls back to DefaultZoom.
func NewView(zoom, eyeShift float64) *View {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	return &View{
		Zoom:        zoom,
		EyeShift:    eyeShift,
		defaultZoom: zoom,
		width:       1,
		height:      1,
	}
}

// NormalizeAngle maps any angle in degrees to [0, 360).
func NormalizeAngle(angle int) int {
	angle %= 360
	if angle < 0 {
		angle += 360
	}
	return angle
}

// SetRotation sets all three angles, normalized.
func (v *View) SetRotation(x, y, z int) {
	v.RotX = NormalizeAngle(x)
	v.RotY = NormalizeAngle(y)
	v.RotZ = NormalizeAngle(z)
}

// Rotate adds dx degrees around X and dy degrees around Y.
func (v *View) Rotate(dx, dy int) {
	v.SetRotation(v.RotX+dx, v.RotY+dy, v.RotZ)
}

// AngleUp, AngleDown, AngleLeft and AngleRight are the arrow key rotations.
func (v *View) AngleUp()    { v.Rotate(-KeyStep, 0) }
func (v *View) AngleDown()  { v.Rotate(KeyStep, 0) }
func (v *View) AngleLeft()  { v.Rotate(0, -KeyStep) }
func (v *View) AngleRight() { v.Rotate(0, KeyStep) }

// Shift moves the view by a number of keyboard steps; one step is ten units
// scaled by the current zoom.
func (v *View) Shift(stepsX, stepsY int) {
	v.ShiftX += float64(stepsX) * 10 * v.Zoom
	v.ShiftY += float64(stepsY) * 10 * v.Zoom
}

// Drag applies a mouse drag of (dx, dy) pixels. The left button rotates,
// the right button pans.
func (v *View) Drag(dx, dy int, left, right bool) {
	switch {
	case left:
		v.Rotate(dy, dx)
	case right:
		v.ShiftX += float64(dx * DragShiftStep)
		v.ShiftY -= float64(dy * DragShiftStep)
	}
}

// Wheel zooms in for positive deltas and out otherwise.
func (v *View) Wheel(delta int) {
	if delta < 0 {
		v.Zoom /= ZoomStep
	} else {
		v.Zoom *= ZoomStep
	}
}

// ResetZoom restores the zoom the view was created with.
func (v *View) ResetZoom() {
	v.Zoom = v.defaultZoom
}

// Reset restores rotation, shift and zoom.
func (v *View) Reset() {
	v.SetRotation(0, 0, 0)
	v.ShiftX, v.ShiftY = 0, 0
	v.ResetZoom()
}

// Resize records the viewport size used by Projection.
func (v *View) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	v.width, v.height = width, height
}

// Aspect returns width / height of the viewport.
func (v *View) Aspect() float64 {
	return float64(v.width) / float64(v.height)
}

// Projection returns the orthographic projection. The horizontal extent is
// fixed and the vertical extent follows the aspect ratio.
func (v *View) Projection() math.Mat4 {
	ratio := float32(v.Aspect())
	return math.Ortho(halfExtent, halfExtent/ratio, depthRange)
}

// ModelView returns shift * zoom * Rx * Ry * Rz, with the left anaglyph
// pass additionally rotated by -EyeShift around Y. The right pass is left
// unrotated so the two passes differ by exactly EyeShift degrees.
func (v *View) ModelView(eye Eye) math.Mat4 {
	m := math.Translate(float32(v.ShiftX), float32(v.ShiftY), 0).
		Mul(math.Scale(float32(v.Zoom))).
		Mul(math.Rotation(math.AxisX, float64(v.RotX))).
		Mul(math.Rotation(math.AxisY, float64(v.RotY))).
		Mul(math.Rotation(math.AxisZ, float64(v.RotZ)))
	if eye == Left {
		m = m.Mul(math.Rotation(math.AxisY, -v.EyeShift))
	}
	return m
}

// MVP returns Projection * ModelView(eye).
func (v *View) MVP(eye Eye) math.Mat4 {
	return v.Projection().Mul(v.ModelView(eye))
}
