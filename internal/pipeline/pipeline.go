// Package pipeline wires the engine packages together the way both binaries
// use them: load and adjust a pair, mesh it, synthesize stereo views and
// export the mesh.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Faultbox/depth3d/internal/config"
	"github.com/Faultbox/depth3d/internal/engine/heightfield"
	"github.com/Faultbox/depth3d/internal/engine/stereo"
	"github.com/Faultbox/depth3d/internal/worker"
	"github.com/Faultbox/depth3d/pkg/formats"
	"github.com/Faultbox/depth3d/pkg/rgbd"
)

var (
	ErrUnknownMethod = errors.New("unknown stereo method")
	ErrUnknownFormat = errors.New("unknown export format")
)

// Load reads a pair and applies the view adjustments.
func Load(imagePath, depthPath string, view config.ViewConfig) (*rgbd.Pair, error) {
	pair, err := rgbd.LoadPair(imagePath, depthPath)
	if err != nil {
		return nil, err
	}
	return Prepare(pair, view)
}

// Prepare downscales the pair to view.MaxDimension, then applies gamma and
// tint to the image. The depthmap is left untouched; see MeshDepth.
func Prepare(pair *rgbd.Pair, view config.ViewConfig) (*rgbd.Pair, error) {
	out, err := rgbd.Downscale(pair, view.MaxDimension)
	if err != nil {
		return nil, err
	}

	img := out.Image
	if view.Gamma != 0 && view.Gamma != 1 {
		if img, err = rgbd.Gamma(img, view.Gamma); err != nil {
			return nil, err
		}
	}
	tint := rgbd.TintColor
	if view.Tint != "" {
		if tint, err = rgbd.ParseTint(view.Tint); err != nil {
			return nil, err
		}
	}
	if tint != rgbd.TintColor {
		img = rgbd.Tint(img, tint)
	}

	if img == out.Image {
		return out, nil
	}
	return &rgbd.Pair{Image: img, Depth: out.Depth, Version: out.Version + 1}, nil
}

// MeshDepth returns the depthmap the 3D view should use: the original, or a
// blurred copy when blur > 0.
func MeshDepth(dm *rgbd.Depthmap, blur int) *rgbd.Depthmap {
	if blur <= 0 {
		return dm
	}
	return rgbd.BlurDepthmap(dm, blur)
}

// BuildMesh loads pair into a new mesh and resolves all pending work on the
// CPU.
func BuildMesh(log *zap.Logger, pair *rgbd.Pair, view config.ViewConfig) (*heightfield.Mesh, error) {
	mesh := heightfield.NewMesh(log)
	if err := mesh.Load(pair, view.DepthScale); err != nil {
		return nil, err
	}
	if view.Blur > 0 {
		if err := mesh.SetDepthmap(MeshDepth(pair.Depth, view.Blur)); err != nil {
			return nil, err
		}
	}
	if _, err := mesh.Sync(nil); err != nil {
		return nil, err
	}
	return mesh, nil
}

// MeshData converts the mesh arrays for export.
func MeshData(mesh *heightfield.Mesh) formats.MeshData {
	vertices := make([][3]float32, len(mesh.Vertices()))
	for i, v := range mesh.Vertices() {
		vertices[i] = v.Position
	}
	colors := make([][3]float32, len(mesh.Colors()))
	for i, c := range mesh.Colors() {
		colors[i] = c
	}
	return formats.FromStrip(vertices, colors, mesh.Indices())
}

// Export writes the mesh in the given format.
func Export(w io.Writer, mesh *heightfield.Mesh, format string) error {
	data := MeshData(mesh)
	switch format {
	case config.FormatPLY:
		return formats.WritePLY(w, data)
	case config.FormatOBJ:
		return formats.WriteOBJ(w, data)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Anaglyph builds a red-cyan anaglyph with the configured method.
func Anaglyph(pair *rgbd.Pair, s config.StereoConfig) (*rgbd.Image, error) {
	switch s.Method {
	case config.MethodProject3D:
		return stereo.AnaglyphProject3D(pair.Image, pair.Depth, s.Gray, s.D0, s.Angle, s.Radius)
	case config.MethodDisplace:
		return stereo.AnaglyphRedCyan(pair.Image, pair.Depth, s.Gray, s.Coefficient, s.Reference)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, s.Method)
	}
}

// View synthesizes the single second view with the configured method.
func View(pair *rgbd.Pair, s config.StereoConfig) (*rgbd.Image, error) {
	switch s.Method {
	case config.MethodProject3D:
		return stereo.Project3DBGR(pair.Image, pair.Depth, stereo.ProjectParams{
			D0:     s.D0,
			AngleX: s.Angle,
			AngleY: s.AngleY,
			Radius: s.Radius,
		})
	case config.MethodDisplace:
		return stereo.Displace(pair.Image, pair.Depth, s.Coefficient, s.Reference)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, s.Method)
	}
}

// AnaglyphJob wraps Anaglyph for a worker.Runner. The pair is captured by
// value so later edits do not race with the job.
func AnaglyphJob(pair *rgbd.Pair, s config.StereoConfig) worker.Func[*rgbd.Image] {
	snapshot := &rgbd.Pair{Image: pair.Image.Clone(), Depth: pair.Depth.Clone(), Version: pair.Version}
	return func(ctx context.Context) (*rgbd.Image, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Anaglyph(snapshot, s)
	}
}
