// Package math provides the float32 matrix type shared by the camera and the
// GPU renderer.
package math

import "math"

// Mat4 is a column-major 4x4 matrix, laid out the way glUniformMatrix4fv
// reads it without transposition: element (row, col) is m[col*4+row].
type Mat4 [16]float32

// Axis selects the axis of a Rotation.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Identity returns the identity matrix.
func Identity() Mat4 {
	var m Mat4
	for i := 0; i < 4; i++ {
		m[i*5] = 1
	}
	return m
}

// Ortho returns the projection of a box centred on the origin with the given
// half extents. The viewer keeps the mesh centred and zooms by scaling the
// model, so the box never moves. z is flipped so larger depths come nearer.
func Ortho(halfWidth, halfHeight, halfDepth float32) Mat4 {
	m := Identity()
	m[0] = 1 / halfWidth
	m[5] = 1 / halfHeight
	m[10] = -1 / halfDepth
	return m
}

// Translate returns a translation by (x, y, z).
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a uniform scale, used as the view zoom.
func Scale(s float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = s, s, s
	return m
}

// Rotation returns a counter-clockwise rotation of degrees around axis, seen
// from the positive end of the axis.
func Rotation(axis Axis, degrees float64) Mat4 {
	// (i, j) is the rotated plane, ordered so that i turns towards j.
	i, j := 1, 2
	switch axis {
	case AxisY:
		i, j = 2, 0
	case AxisZ:
		i, j = 0, 1
	}
	sn, cs := math.Sincos(degrees * math.Pi / 180)
	m := Identity()
	m[i*4+i] = float32(cs)
	m[j*4+j] = float32(cs)
	m[i*4+j] = float32(sn)
	m[j*4+i] = float32(-sn)
	return m
}

// Mul returns m·other: other is applied to a point first.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Apply transforms the point p (w = 1) and divides by the resulting w when
// it is not 1.
func (m Mat4) Apply(p [3]float32) [3]float32 {
	var out [4]float32
	for row := 0; row < 4; row++ {
		out[row] = m[row]*p[0] + m[4+row]*p[1] + m[8+row]*p[2] + m[12+row]
	}
	if w := out[3]; w != 0 && w != 1 {
		return [3]float32{out[0] / w, out[1] / w, out[2] / w}
	}
	return [3]float32{out[0], out[1], out[2]}
}

// Ptr returns the first element for glUniformMatrix4fv.
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}
