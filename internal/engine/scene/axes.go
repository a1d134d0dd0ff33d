package scene

// AxisLength is the length of each origin axis in mesh units.
const AxisLength = 1000

const (
	arrowLength = 75
	arrowHalf   = 50
)

// axisStride is the number of floats per axis vertex: xyz then rgb.
const axisStride = 6

// AxesGeometry returns interleaved position+color vertices for the three
// origin axes: one line per axis and one arrow-head triangle per axis. The
// X axis points right, Y points down the image and Z points towards the
// viewer. In anaglyph mode the axes are drawn in shades of gray so they
// fuse in both eyes.
func AxesGeometry(anaglyph bool) (lines, triangles []float32) {
	colors := [3][3]float32{
		{1, 0, 0},
		{0, 0, 1},
		{0, 1, 0},
	}
	if anaglyph {
		colors = [3][3]float32{
			{1, 1, 1},
			{0.85, 0.85, 0.85},
			{0.75, 0.75, 0.75},
		}
	}

	const l, a, h = AxisLength, AxisLength - arrowLength, arrowHalf
	tips := [3][3]float32{{l, 0, 0}, {0, -l, 0}, {0, 0, l}}
	heads := [3][3][3]float32{
		{{a, -h, 0}, {a, h, 0}, {l, 0, 0}},
		{{-h, -a, 0}, {h, -a, 0}, {0, -l, 0}},
		{{0, -h, a}, {0, h, a}, {0, 0, l}},
	}

	put := func(dst []float32, p, c [3]float32) []float32 {
		return append(dst, p[0], p[1], p[2], c[0], c[1], c[2])
	}

	lines = make([]float32, 0, 6*axisStride)
	triangles = make([]float32, 0, 9*axisStride)
	for i := range tips {
		lines = put(lines, [3]float32{}, colors[i])
		lines = put(lines, tips[i], colors[i])
		for _, p := range heads[i] {
			triangles = put(triangles, p, colors[i])
		}
	}
	return lines, triangles
}
