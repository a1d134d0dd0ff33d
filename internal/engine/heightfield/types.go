// Package heightfield builds and incrementally updates a triangle-strip mesh
// from an image and its depthmap.
package heightfield

import (
	"errors"
	"image"

	"github.com/Faultbox/depth3d/pkg/rgbd"
)

// ErrMapFailed is returned by a VertexBuffer that cannot grant write access.
var ErrMapFailed = errors.New("vertex buffer mapping failed")

// Vertex is one grid sample in mesh space.
type Vertex struct {
	Position [3]float32
}

// Color is a normalized RGB vertex color.
type Color [3]float32

// Bounds holds the axis-aligned bounding box of the mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Region restricts a partial update to a rectangle and, optionally, to the
// non-zero samples of a mask covering the whole grid.
type Region struct {
	Rect image.Rectangle
	Mask *rgbd.Depthmap
	all  bool
}

// AllRegion refreshes every vertex regardless of any mask.
func AllRegion() Region {
	return Region{all: true}
}

// RectRegion refreshes every vertex inside r.
func RectRegion(r image.Rectangle) Region {
	return Region{Rect: r}
}

// MaskRegion refreshes the vertices inside r whose mask sample is non-zero.
func MaskRegion(r image.Rectangle, mask *rgbd.Depthmap) Region {
	return Region{Rect: r, Mask: mask}
}

// All reports whether the region covers the whole grid.
func (r Region) All() bool { return r.all }

// Empty reports whether the region selects nothing.
func (r Region) Empty() bool {
	return !r.all && r.Rect.Empty()
}

func (r Region) selected(col, row int) bool {
	if r.all || r.Mask == nil {
		return true
	}
	return r.Mask.At(col, row) != 0
}

// each calls fn for every selected pixel of a w×h grid in row-major order.
func (r Region) each(w, h int, fn func(i, col, row int)) {
	rect := image.Rect(0, 0, w, h)
	if !r.all {
		rect = r.Rect.Intersect(rect)
	}
	if r.Mask != nil && !r.all && (r.Mask.W != w || r.Mask.H != h) {
		return
	}
	for row := rect.Min.Y; row < rect.Max.Y; row++ {
		for col := rect.Min.X; col < rect.Max.X; col++ {
			if r.selected(col, row) {
				fn(row*w+col, col, row)
			}
		}
	}
}

// union merges two partial regions over a w×h grid.
func union(a, b Region, w, h int) Region {
	switch {
	case a.all || b.all:
		return AllRegion()
	case a.Empty():
		return b
	case b.Empty():
		return a
	}
	if a.Mask == nil && b.Mask == nil && a.Rect.Union(b.Rect) == a.Rect {
		return a
	}

	mask := rgbd.NewDepthmap(w, h)
	paint := func(i, _, _ int) { mask.Pix[i] = 255 }
	a.each(w, h, paint)
	b.each(w, h, paint)
	return MaskRegion(a.Rect.Union(b.Rect), mask)
}

// State is the pending vertex work of a Mesh.
type State int

const (
	Stable State = iota
	NeedsFullRebuild
	NeedsPartialUpdate
)

func (s State) String() string {
	switch s {
	case Stable:
		return "stable"
	case NeedsFullRebuild:
		return "full-rebuild"
	case NeedsPartialUpdate:
		return "partial-update"
	default:
		return "unknown"
	}
}

// Pending describes all work a Mesh will perform on its next Sync.
type Pending struct {
	Vertices State
	Region   Region
	Topology bool
	Colors   bool
}

// Idle reports whether nothing is pending.
func (p Pending) Idle() bool {
	return p.Vertices == Stable && !p.Topology && !p.Colors
}

// SyncResult reports what a Sync call did.
type SyncResult struct {
	RebuiltVertices bool
	UpdatedVertices int
	RebuiltTopology bool
	RebuiltColors   bool
	IndexCount      int
}

// VertexBuffer grants scoped write access to interleaved xyz positions.
// Every successful Map must be paired with exactly one Unmap.
type VertexBuffer interface {
	Map() ([]float32, error)
	Unmap()
}
