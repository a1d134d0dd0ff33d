// Package scene draws the heightfield mesh and its axes overlay with OpenGL.
package scene

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/depth3d/internal/engine/camera"
	"github.com/Faultbox/depth3d/internal/engine/heightfield"
	"github.com/Faultbox/depth3d/internal/engine/scene/shaders"
	"github.com/Faultbox/depth3d/internal/engine/shader"
)

// Options controls how the mesh is drawn.
type Options struct {
	Axes     bool
	Anaglyph bool
	Light    bool
	// Quality enables multisampling and line smoothing.
	Quality bool

	// LightPos is the point light position in view space.
	LightPos [3]float32
	Ambient  float32
	Diffuse  float32

	Background [3]float32
}

// DefaultOptions returns axes on, anaglyph and light off, quality on.
func DefaultOptions() Options {
	return Options{
		Axes:     true,
		Quality:  true,
		LightPos: [3]float32{5000, 0, 5000},
		Ambient:  0.1,
		Diffuse:  3,
	}
}

var uniforms = []string{"uMVP", "uModelView", "uLightEnabled", "uLightPos", "uAmbient", "uDiffuse"}

// HeightfieldRenderer owns the GPU copy of a heightfield.Mesh. Positions
// live in a dynamic buffer that partial updates write through a mapping;
// colors and the index strip are uploaded whole when they change.
//
// HeightfieldRenderer implements heightfield.VertexBuffer.
type HeightfieldRenderer struct {
	Options

	log     *zap.Logger
	program *shader.Program

	vao      uint32
	posVBO   uint32
	colorVBO uint32
	ebo      uint32

	vertexCount int
	colorCount  int
	indexCount  int32

	// stale forces a full position upload after a failed unmap.
	stale  bool
	mapped bool

	axesVAO      uint32
	axesVBO      uint32
	axesLines    int32
	axesTris     int32
	axesAnaglyph bool
}

// NewHeightfieldRenderer compiles the shaders and creates empty buffers.
// A GL context must be current.
func NewHeightfieldRenderer(log *zap.Logger, opts Options) (*HeightfieldRenderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	program, err := shader.NewProgram(shaders.HeightfieldVertexShader, shaders.HeightfieldFragmentShader, uniforms...)
	if err != nil {
		return nil, fmt.Errorf("heightfield shader: %w", err)
	}

	r := &HeightfieldRenderer{Options: opts, log: log, program: program}
	r.createMeshBuffers()
	r.uploadAxes(opts.Anaglyph)
	return r, nil
}

func (r *HeightfieldRenderer) createMeshBuffers() {
	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)

	// Position (location 0)
	gl.GenBuffers(1, &r.posVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.posVBO)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)
	gl.EnableVertexAttribArray(0)

	// Color (location 1)
	gl.GenBuffers(1, &r.colorVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.colorVBO)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, 3*4, 0)
	gl.EnableVertexAttribArray(1)

	gl.GenBuffers(1, &r.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)

	gl.BindVertexArray(0)
}

// Sync resolves the mesh's pending work against the GPU buffers. Partial
// vertex updates are written through Map/Unmap; rebuilt arrays are
// re-uploaded afterwards. It must run between frames, never during Draw.
func (r *HeightfieldRenderer) Sync(mesh *heightfield.Mesh) (heightfield.SyncResult, error) {
	// A renderer created after the mesh was built starts without data.
	if n := len(mesh.Vertices()); n > 0 && n != r.vertexCount {
		r.stale = true
	}
	if r.stale && mesh.Pending().Vertices != heightfield.NeedsFullRebuild {
		r.uploadPositions(mesh.Vertices())
	}

	res, err := mesh.Sync(r)

	if res.RebuiltVertices {
		r.uploadPositions(mesh.Vertices())
	}
	if res.RebuiltTopology || (r.indexCount == 0 && len(mesh.Indices()) > 0) {
		r.uploadIndices(mesh.Indices())
	}
	if res.RebuiltColors || (r.colorCount == 0 && len(mesh.Colors()) > 0) {
		r.uploadColors(mesh.Colors())
	}
	return res, err
}

// Map maps the position buffer for writing. Data outside the written
// floats is preserved.
func (r *HeightfieldRenderer) Map() ([]float32, error) {
	if r.mapped || r.posVBO == 0 || r.vertexCount == 0 {
		return nil, heightfield.ErrMapFailed
	}
	size := r.vertexCount * 3 * 4

	gl.BindBuffer(gl.ARRAY_BUFFER, r.posVBO)
	ptr := gl.MapBufferRange(gl.ARRAY_BUFFER, 0, size, gl.MAP_WRITE_BIT)
	if ptr == nil {
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		return nil, fmt.Errorf("%w: glMapBufferRange returned nil (error 0x%x)", heightfield.ErrMapFailed, gl.GetError())
	}
	r.mapped = true
	return unsafe.Slice((*float32)(ptr), r.vertexCount*3), nil
}

// Unmap releases the mapping taken by Map.
func (r *HeightfieldRenderer) Unmap() {
	if !r.mapped {
		return
	}
	r.mapped = false
	gl.BindBuffer(gl.ARRAY_BUFFER, r.posVBO)
	if !gl.UnmapBuffer(gl.ARRAY_BUFFER) {
		// The store was corrupted while mapped; resend it next frame.
		r.log.Warn("vertex buffer contents lost during unmap")
		r.stale = true
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (r *HeightfieldRenderer) uploadPositions(vertices []heightfield.Vertex) {
	r.stale = false
	r.vertexCount = len(vertices)
	if len(vertices) == 0 {
		return
	}
	data := heightfield.Flatten(vertices)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.posVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, unsafe.Pointer(&data[0]), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	r.log.Debug("uploaded positions", zap.Int("vertices", len(vertices)))
}

func (r *HeightfieldRenderer) uploadColors(colors []heightfield.Color) {
	r.colorCount = len(colors)
	if len(colors) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, r.colorVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(colors)*3*4, unsafe.Pointer(&colors[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (r *HeightfieldRenderer) uploadIndices(indices []uint32) {
	r.indexCount = int32(len(indices))
	if len(indices) == 0 {
		return
	}
	gl.BindVertexArray(r.vao)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)
	gl.BindVertexArray(0)
	r.log.Debug("uploaded index strip", zap.Int32("indices", r.indexCount))
}

func (r *HeightfieldRenderer) uploadAxes(anaglyph bool) {
	lines, tris := AxesGeometry(anaglyph)
	data := append(lines, tris...)

	if r.axesVAO == 0 {
		gl.GenVertexArrays(1, &r.axesVAO)
		gl.GenBuffers(1, &r.axesVBO)
	}
	gl.BindVertexArray(r.axesVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.axesVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, unsafe.Pointer(&data[0]), gl.STATIC_DRAW)

	stride := int32(axisStride * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	r.axesLines = int32(len(lines) / axisStride)
	r.axesTris = int32(len(tris) / axisStride)
	r.axesAnaglyph = anaglyph
}

// Resize sets the GL viewport.
func (r *HeightfieldRenderer) Resize(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Draw renders the axes and the mesh seen through view. In anaglyph mode the
// mesh is drawn twice: the left pass writes only red, the depth buffer is
// cleared, and the right pass writes green and blue.
func (r *HeightfieldRenderer) Draw(view *camera.View) {
	gl.Enable(gl.DEPTH_TEST)
	if r.Quality {
		gl.Enable(gl.MULTISAMPLE)
		gl.Enable(gl.LINE_SMOOTH)
		gl.Enable(gl.DITHER)
	} else {
		gl.Disable(gl.MULTISAMPLE)
		gl.Disable(gl.LINE_SMOOTH)
		gl.Disable(gl.DITHER)
	}

	bg := r.Background
	gl.ClearColor(bg[0], bg[1], bg[2], 1)
	gl.ColorMask(true, true, true, true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.program.Use()
	gl.Uniform3f(r.program.Uniform("uLightPos"), r.LightPos[0], r.LightPos[1], r.LightPos[2])
	gl.Uniform1f(r.program.Uniform("uAmbient"), r.Ambient)
	gl.Uniform1f(r.program.Uniform("uDiffuse"), r.Diffuse)

	if r.Axes {
		r.drawAxes(view)
	}

	if r.indexCount == 0 || r.vertexCount == 0 || r.colorCount != r.vertexCount {
		return
	}

	if !r.Anaglyph {
		r.drawMesh(view, camera.Center)
		return
	}

	gl.ColorMask(true, false, false, true)
	r.drawMesh(view, camera.Left)

	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.ColorMask(false, true, true, true)
	r.drawMesh(view, camera.Right)

	gl.ColorMask(true, true, true, true)
}

func (r *HeightfieldRenderer) setMatrices(view *camera.View, eye camera.Eye) {
	mvp := view.MVP(eye)
	mv := view.ModelView(eye)
	gl.UniformMatrix4fv(r.program.Uniform("uMVP"), 1, false, mvp.Ptr())
	gl.UniformMatrix4fv(r.program.Uniform("uModelView"), 1, false, mv.Ptr())
}

func (r *HeightfieldRenderer) drawAxes(view *camera.View) {
	if r.axesAnaglyph != r.Anaglyph {
		r.uploadAxes(r.Anaglyph)
	}
	r.setMatrices(view, camera.Center)
	gl.Uniform1i(r.program.Uniform("uLightEnabled"), 0)

	gl.BindVertexArray(r.axesVAO)
	gl.DrawArrays(gl.LINES, 0, r.axesLines)
	gl.DrawArrays(gl.TRIANGLES, r.axesLines, r.axesTris)
	gl.BindVertexArray(0)
}

func (r *HeightfieldRenderer) drawMesh(view *camera.View, eye camera.Eye) {
	r.setMatrices(view, eye)
	light := int32(0)
	if r.Light {
		light = 1
	}
	gl.Uniform1i(r.program.Uniform("uLightEnabled"), light)

	gl.BindVertexArray(r.vao)
	gl.DrawElements(gl.TRIANGLE_STRIP, r.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// ReadPixels returns the current framebuffer as bottom-up RGBA rows.
func (r *HeightfieldRenderer) ReadPixels(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels
}

// IndexCount returns the number of uploaded strip indices.
func (r *HeightfieldRenderer) IndexCount() int { return int(r.indexCount) }

func (r *HeightfieldRenderer) clearMesh() {
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
		r.vao = 0
	}
	for _, buf := range []*uint32{&r.posVBO, &r.colorVBO, &r.ebo} {
		if *buf != 0 {
			gl.DeleteBuffers(1, buf)
			*buf = 0
		}
	}
	r.vertexCount, r.colorCount, r.indexCount = 0, 0, 0
}

// Destroy releases all resources.
func (r *HeightfieldRenderer) Destroy() {
	r.clearMesh()
	if r.axesVAO != 0 {
		gl.DeleteVertexArrays(1, &r.axesVAO)
		gl.DeleteBuffers(1, &r.axesVBO)
		r.axesVAO, r.axesVBO = 0, 0
	}
	if r.program != nil {
		r.program.Delete()
		r.program = nil
	}
}

var _ heightfield.VertexBuffer = (*HeightfieldRenderer)(nil)
