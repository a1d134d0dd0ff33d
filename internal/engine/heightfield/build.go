package heightfield

import "github.com/Faultbox/depth3d/pkg/rgbd"

// DepthOrigin is the depth sample that maps to z = 0.
const DepthOrigin = 127

// DepthToZ converts a depth sample to a vertex z coordinate.
func DepthToZ(depth uint8, depthScale float64) float32 {
	return float32(float64(int(depth)-DepthOrigin) * depthScale)
}

// BuildVertices emits one vertex per pixel, centered on the image middle.
// It returns nil when the pair is empty or mismatched.
func BuildVertices(img *rgbd.Image, dm *rgbd.Depthmap, depthScale float64) []Vertex {
	if img.Empty() || dm.Empty() || rgbd.CheckSize(img, dm) != nil {
		return nil
	}

	w, h := dm.W, dm.H
	halfX := w / 2
	halfY := h / 2

	vertices := make([]Vertex, 0, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			vertices = append(vertices, Vertex{Position: [3]float32{
				float32(col - halfX),
				float32(halfY - row),
				DepthToZ(dm.Pix[row*w+col], depthScale),
			}})
		}
	}
	return vertices
}

// IndexCount returns the length of the strip BuildIndexStrip produces.
// For even h it equals w·h + (2w−1)·(h/2−1).
func IndexCount(w, h int) int {
	if w < 1 || h < 2 {
		return 0
	}
	pairs := h - 1
	even := (pairs + 1) / 2
	odd := pairs / 2
	return even*2*w + odd*(2*w-1)
}

// BuildIndexStrip returns a single triangle strip covering a w×h grid.
// Even rows run left to right, odd rows right to left; the repeated index at
// each turn produces degenerate triangles instead of a primitive restart.
func BuildIndexStrip(w, h int) []uint32 {
	n := IndexCount(w, h)
	if n == 0 {
		return nil
	}

	idx := func(row, col int) uint32 { return uint32(row*w + col) }
	indices := make([]uint32, 0, n)
	for row := 0; row < h-1; row++ {
		if row%2 == 0 {
			for col := 0; col < w; col++ {
				indices = append(indices, idx(row, col), idx(row+1, col))
			}
			continue
		}
		for col := w - 1; col > 0; col-- {
			indices = append(indices, idx(row+1, col), idx(row, col-1))
		}
		indices = append(indices, idx(row+1, 0))
	}
	return indices
}

// BuildColors samples one normalized RGB color per pixel.
func BuildColors(img *rgbd.Image) []Color {
	if img.Empty() {
		return nil
	}
	colors := make([]Color, 0, img.W*img.H)
	for row := 0; row < img.H; row++ {
		for col := 0; col < img.W; col++ {
			b, g, r := img.BGRAt(col, row)
			colors = append(colors, Color{
				float32(r) / 255.0,
				float32(g) / 255.0,
				float32(b) / 255.0,
			})
		}
	}
	return colors
}

// UpdateVertices rewrites the z coordinate of the vertices selected by region
// and returns how many were written. x, y and the slice itself are untouched.
// Mismatched inputs are ignored.
func UpdateVertices(vertices []Vertex, dm *rgbd.Depthmap, depthScale float64, region Region) int {
	if dm.Empty() || len(vertices) != dm.W*dm.H {
		return 0
	}
	n := 0
	region.each(dm.W, dm.H, func(i, _, _ int) {
		vertices[i].Position[2] = DepthToZ(dm.Pix[i], depthScale)
		n++
	})
	return n
}

// Flatten packs vertex positions as interleaved xyz floats.
func Flatten(vertices []Vertex) []float32 {
	out := make([]float32, 0, 3*len(vertices))
	for _, v := range vertices {
		out = append(out, v.Position[0], v.Position[1], v.Position[2])
	}
	return out
}

// ComputeBounds returns the bounding box of vertices.
func ComputeBounds(vertices []Vertex) Bounds {
	b := Bounds{
		Min: [3]float32{1e10, 1e10, 1e10},
		Max: [3]float32{-1e10, -1e10, -1e10},
	}
	for _, v := range vertices {
		for k := 0; k < 3; k++ {
			if v.Position[k] < b.Min[k] {
				b.Min[k] = v.Position[k]
			}
			if v.Position[k] > b.Max[k] {
				b.Max[k] = v.Position[k]
			}
		}
	}
	return b
}
