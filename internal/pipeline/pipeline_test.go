package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/depth3d/internal/config"
	"github.com/Faultbox/depth3d/pkg/formats"
	"github.com/Faultbox/depth3d/pkg/rgbd"
)

func newTestPair(w, h int) *rgbd.Pair {
	img := rgbd.NewImage(w, h)
	dm := rgbd.NewDepthmap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetBGR(x, y, uint8(10*x), uint8(20*y), 200)
			dm.Set(x, y, uint8(100+10*x))
		}
	}
	return rgbd.NewPair(img, dm)
}

func TestPrepareIdentity(t *testing.T) {
	pair := newTestPair(4, 3)
	out, err := Prepare(pair, config.Default().View)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if out != pair {
		t.Error("expected default view settings to return the pair unchanged")
	}
}

func TestPrepareTintAndDownscale(t *testing.T) {
	pair := newTestPair(8, 4)
	view := config.Default().View
	view.Tint = "gray"
	view.MaxDimension = 4

	out, err := Prepare(pair, view)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if out.Width() != 4 || out.Height() != 2 {
		t.Errorf("expected 4x2 after downscale, got %dx%d", out.Width(), out.Height())
	}
	if out.Version <= pair.Version {
		t.Errorf("expected version to advance past %d, got %d", pair.Version, out.Version)
	}
	b, g, r := out.Image.BGRAt(1, 1)
	if b != g || g != r {
		t.Errorf("expected gray pixel, got (%d, %d, %d)", b, g, r)
	}
}

func TestPrepareRejectsBadTint(t *testing.T) {
	view := config.Default().View
	view.Tint = "sepia"
	if _, err := Prepare(newTestPair(2, 2), view); err == nil {
		t.Error("expected an error for an unknown tint")
	}
}

func TestMeshDepth(t *testing.T) {
	dm := newTestPair(5, 5).Depth
	if MeshDepth(dm, 0) != dm {
		t.Error("blur 0 should return the original depthmap")
	}
	blurred := MeshDepth(dm, 1)
	if blurred == dm || blurred.W != 5 || blurred.H != 5 {
		t.Error("expected a blurred copy of the same size")
	}
}

func TestBuildMeshAndExport(t *testing.T) {
	mesh, err := BuildMesh(nil, newTestPair(3, 3), config.Default().View)
	if err != nil {
		t.Fatalf("BuildMesh failed: %v", err)
	}
	if len(mesh.Vertices()) != 9 || len(mesh.Indices()) != 11 || len(mesh.Colors()) != 9 {
		t.Fatalf("unexpected mesh sizes %d/%d/%d", len(mesh.Vertices()), len(mesh.Indices()), len(mesh.Colors()))
	}
	if !mesh.Pending().Idle() {
		t.Errorf("expected no pending work, got %+v", mesh.Pending())
	}

	var buf bytes.Buffer
	if err := Export(&buf, mesh, config.FormatPLY); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	parsed, err := formats.ParsePLY(&buf)
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if len(parsed.Vertices) != 9 || len(parsed.Faces) != 9 {
		t.Errorf("expected 9 vertices and 9 faces, got %d and %d", len(parsed.Vertices), len(parsed.Faces))
	}
	if parsed.Vertices[4] != mesh.Vertices()[4].Position {
		t.Errorf("vertex 4 changed in export: %v vs %v", parsed.Vertices[4], mesh.Vertices()[4].Position)
	}

	buf.Reset()
	if err := Export(&buf, mesh, config.FormatOBJ); err != nil {
		t.Fatalf("Export obj failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\nf 1 4 2\n") {
		t.Errorf("expected first strip face in OBJ output:\n%s", buf.String())
	}

	if err := Export(&buf, mesh, "stl"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestBuildMeshWithBlur(t *testing.T) {
	pair := newTestPair(5, 3)
	view := config.Default().View
	view.Blur = 1

	mesh, err := BuildMesh(nil, pair, view)
	if err != nil {
		t.Fatalf("BuildMesh failed: %v", err)
	}
	sharp, err := BuildMesh(nil, pair, config.Default().View)
	if err != nil {
		t.Fatalf("BuildMesh failed: %v", err)
	}
	// Depth rises left to right, so blurring pulls the left edge up.
	if mesh.Vertices()[0].Position[2] <= sharp.Vertices()[0].Position[2] {
		t.Errorf("expected blurred edge above %v, got %v", sharp.Vertices()[0].Position[2], mesh.Vertices()[0].Position[2])
	}
}

func TestBuildMeshInvalidPair(t *testing.T) {
	pair := newTestPair(3, 3)
	pair.Depth = rgbd.NewDepthmap(2, 3)
	if _, err := BuildMesh(nil, pair, config.Default().View); !errors.Is(err, rgbd.ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestAnaglyphAndView(t *testing.T) {
	pair := newTestPair(6, 4)
	tests := []struct {
		name   string
		method string
	}{
		{"project3d", config.MethodProject3D},
		{"displace", config.MethodDisplace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.Default().Stereo
			s.Method = tt.method

			img, err := Anaglyph(pair, s)
			if err != nil {
				t.Fatalf("Anaglyph failed: %v", err)
			}
			if img.W != 6 || img.H != 4 {
				t.Errorf("unexpected anaglyph size %dx%d", img.W, img.H)
			}

			view, err := View(pair, s)
			if err != nil {
				t.Fatalf("View failed: %v", err)
			}
			if view.W != 6 || view.H != 4 {
				t.Errorf("unexpected view size %dx%d", view.W, view.H)
			}
		})
	}

	s := config.Default().Stereo
	s.Method = "wiggle"
	if _, err := Anaglyph(pair, s); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
	if _, err := View(pair, s); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestAnaglyphJob(t *testing.T) {
	pair := newTestPair(4, 4)
	s := config.Default().Stereo
	s.Method = config.MethodDisplace
	job := AnaglyphJob(pair, s)

	// Edits after submission must not reach the job.
	pair.Image.SetBGR(0, 0, 1, 2, 3)

	img, err := job(context.Background())
	if err != nil {
		t.Fatalf("job failed: %v", err)
	}
	want, _ := Anaglyph(newTestPair(4, 4), s)
	if !bytes.Equal(img.Pix, want.Pix) {
		t.Error("job result depends on edits made after submission")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := job(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoadSession(t *testing.T) {
	base := filepath.Join(t.TempDir(), "scene")
	if err := rgbd.SaveSession(base, newTestPair(3, 2)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	imagePath, depthPath := rgbd.SessionPaths(base)
	pair, err := Load(imagePath, depthPath, config.Default().View)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if pair.Width() != 3 || pair.Height() != 2 {
		t.Errorf("unexpected size %dx%d", pair.Width(), pair.Height())
	}
	if got := pair.Depth.At(2, 1); got != 120 {
		t.Errorf("expected depth 120, got %d", got)
	}
}
