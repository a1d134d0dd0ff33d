// Package formats reads and writes colored triangle meshes in the PLY ASCII
// and Wavefront OBJ formats.
package formats

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Comment is written in the header of every exported file.
const Comment = "Produced by depth3d"

// ErrInvalidMesh is returned when colors or faces do not fit the vertices.
var ErrInvalidMesh = errors.New("invalid mesh data")

// MeshData is an indexed triangle mesh with one RGB color per vertex.
// Colors are normalized to [0,1].
type MeshData struct {
	Vertices [][3]float32
	Colors   [][3]float32
	Faces    [][3]uint32
}

// FromStrip converts a triangle strip into an indexed triangle list. Every
// run of three consecutive strip indices becomes one face, degenerate turns
// included, so a strip of n indices yields n-2 faces.
func FromStrip(vertices [][3]float32, colors [][3]float32, indices []uint32) MeshData {
	m := MeshData{Vertices: vertices, Colors: colors}
	if len(indices) < 3 {
		return m
	}
	m.Faces = make([][3]uint32, 0, len(indices)-2)
	for i := 0; i+2 < len(indices); i++ {
		m.Faces = append(m.Faces, [3]uint32{indices[i], indices[i+1], indices[i+2]})
	}
	return m
}

// Validate checks that colors match the vertex count and that every face
// references an existing vertex.
func (m *MeshData) Validate() error {
	if len(m.Colors) != len(m.Vertices) {
		return fmt.Errorf("%w: %d colors for %d vertices", ErrInvalidMesh, len(m.Colors), len(m.Vertices))
	}
	n := uint32(len(m.Vertices))
	for i, f := range m.Faces {
		if f[0] >= n || f[1] >= n || f[2] >= n {
			return fmt.Errorf("%w: face %d references vertex out of range", ErrInvalidMesh, i)
		}
	}
	return nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func parseFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}

// colorByte quantizes a normalized channel to 0..255.
func colorByte(c float32) uint8 {
	v := math.Round(float64(c) * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
