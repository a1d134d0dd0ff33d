package heightfield

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/depth3d/pkg/rgbd"
)

// Mesh owns the vertex grid, index strip and color grid built from one
// image+depthmap pair, and tracks which of them are stale.
//
// Mesh is not safe for concurrent use. Callers must not read the buffers
// while Sync is running.
type Mesh struct {
	log *zap.Logger

	image      *rgbd.Image
	depth      *rgbd.Depthmap
	depthScale float64

	vertices []Vertex
	indices  []uint32
	colors   []Color

	pending    Pending
	onTopology []func(indexCount int)
}

// NewMesh creates an empty mesh. A nil logger disables logging.
func NewMesh(log *zap.Logger) *Mesh {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mesh{log: log, depthScale: 1}
}

// OnTopologyChanged registers fn to be called with the new index count after
// every topology rebuild.
func (m *Mesh) OnTopologyChanged(fn func(indexCount int)) {
	m.onTopology = append(m.onTopology, fn)
}

// Load attaches a new pair. Every buffer is rebuilt on the next Sync; the
// index strip only when the grid dimensions changed. An invalid pair is
// rejected and the previous state is kept.
func (m *Mesh) Load(pair *rgbd.Pair, depthScale float64) error {
	if err := pair.Validate(); err != nil {
		m.log.Warn("rejecting pair", zap.Error(err))
		return fmt.Errorf("load pair: %w", err)
	}

	resized := m.depth == nil || m.depth.W != pair.Width() || m.depth.H != pair.Height()

	m.image = pair.Image
	m.depth = pair.Depth
	m.depthScale = depthScale
	m.pending.Vertices = NeedsFullRebuild
	m.pending.Region = Region{}
	m.pending.Colors = true
	if resized || m.indices == nil {
		m.pending.Topology = true
	}

	m.log.Debug("pair loaded",
		zap.Int("width", pair.Width()),
		zap.Int("height", pair.Height()),
		zap.Bool("resized", resized),
	)
	return nil
}

// Reset discards every buffer, as when an unrelated pair replaces the
// current one.
func (m *Mesh) Reset() {
	m.image = nil
	m.depth = nil
	m.vertices = nil
	m.indices = nil
	m.colors = nil
	m.pending = Pending{}
}

// SetDepthmap replaces the depthmap with one of the same size and schedules
// a refresh of every z coordinate.
func (m *Mesh) SetDepthmap(dm *rgbd.Depthmap) error {
	if m.image == nil {
		return rgbd.ErrEmptyImage
	}
	if dm.Empty() {
		return rgbd.ErrEmptyDepthmap
	}
	if err := rgbd.CheckSize(m.image, dm); err != nil {
		return err
	}
	m.depth = dm
	return m.Invalidate(AllRegion())
}

// SetImage replaces the image with one of the same size and schedules a
// color rebuild.
func (m *Mesh) SetImage(img *rgbd.Image) error {
	if img.Empty() {
		return rgbd.ErrEmptyImage
	}
	if m.depth == nil {
		return rgbd.ErrEmptyDepthmap
	}
	if err := rgbd.CheckSize(img, m.depth); err != nil {
		return err
	}
	m.image = img
	m.pending.Colors = true
	return nil
}

// SetDepthScale changes the z scale and schedules a refresh of every vertex.
func (m *Mesh) SetDepthScale(scale float64) {
	if scale == m.depthScale {
		return
	}
	m.depthScale = scale
	if m.depth != nil {
		m.Invalidate(AllRegion())
	}
}

// DepthScale returns the current z scale.
func (m *Mesh) DepthScale() float64 { return m.depthScale }

// Invalidate schedules a z refresh of region. Pending regions accumulate
// until the next Sync; a pending full rebuild already covers them. A mask
// that does not cover the grid exactly is rejected and nothing is scheduled.
func (m *Mesh) Invalidate(region Region) error {
	if m.depth == nil {
		return rgbd.ErrEmptyDepthmap
	}
	if mask := region.Mask; mask != nil && !region.All() && (mask.W != m.depth.W || mask.H != m.depth.H) {
		err := fmt.Errorf("invalidate: %w: mask %dx%d, grid %dx%d",
			rgbd.ErrSizeMismatch, mask.W, mask.H, m.depth.W, m.depth.H)
		m.log.Warn("rejecting update region", zap.Error(err))
		return err
	}
	if region.Empty() {
		return nil
	}
	switch m.pending.Vertices {
	case NeedsFullRebuild:
		return nil
	case NeedsPartialUpdate:
		m.pending.Region = union(m.pending.Region, region, m.depth.W, m.depth.H)
	default:
		m.pending.Vertices = NeedsPartialUpdate
		m.pending.Region = region
	}
	return nil
}

// Pending returns the work scheduled for the next Sync.
func (m *Mesh) Pending() Pending { return m.pending }

// Sync performs the pending work in a fixed order: full vertex rebuild, then
// partial update, then topology, then colors. A full rebuild supersedes any
// pending partial update. Partial updates are written both to the CPU grid
// and, when buf is not nil, through buf's mapping. If the mapping fails the
// partial update stays pending and the remaining steps still run.
func (m *Mesh) Sync(buf VertexBuffer) (SyncResult, error) {
	var res SyncResult
	if m.image == nil || m.depth == nil {
		return res, nil
	}

	var mapErr error
	switch m.pending.Vertices {
	case NeedsFullRebuild:
		vertices := BuildVertices(m.image, m.depth, m.depthScale)
		if vertices == nil {
			return res, fmt.Errorf("rebuild vertices: %w", rgbd.ErrSizeMismatch)
		}
		m.vertices = vertices
		m.pending.Vertices = Stable
		m.pending.Region = Region{}
		res.RebuiltVertices = true
	case NeedsPartialUpdate:
		n, err := m.updatePartial(buf)
		if err != nil {
			mapErr = err
			m.log.Warn("partial vertex update skipped", zap.Error(err))
			break
		}
		m.pending.Vertices = Stable
		m.pending.Region = Region{}
		res.UpdatedVertices = n
	}

	if m.pending.Topology {
		m.indices = BuildIndexStrip(m.depth.W, m.depth.H)
		m.pending.Topology = false
		res.RebuiltTopology = true
		res.IndexCount = len(m.indices)
		for _, fn := range m.onTopology {
			fn(res.IndexCount)
		}
	}

	if m.pending.Colors {
		m.colors = BuildColors(m.image)
		m.pending.Colors = false
		res.RebuiltColors = true
	}

	if res.RebuiltVertices || res.RebuiltTopology || res.RebuiltColors || res.UpdatedVertices > 0 {
		m.log.Debug("mesh synced",
			zap.Bool("vertices", res.RebuiltVertices),
			zap.Int("updated", res.UpdatedVertices),
			zap.Bool("topology", res.RebuiltTopology),
			zap.Bool("colors", res.RebuiltColors),
		)
	}
	return res, mapErr
}

// updatePartial rewrites the pending region inside a scoped mapping of buf.
func (m *Mesh) updatePartial(buf VertexBuffer) (int, error) {
	if buf == nil {
		return UpdateVertices(m.vertices, m.depth, m.depthScale, m.pending.Region), nil
	}

	mapped, err := buf.Map()
	if err != nil {
		return 0, err
	}
	defer buf.Unmap()
	if len(mapped) != 3*len(m.vertices) {
		return 0, fmt.Errorf("%w: mapped %d floats, want %d", ErrMapFailed, len(mapped), 3*len(m.vertices))
	}

	n := 0
	m.pending.Region.each(m.depth.W, m.depth.H, func(i, _, _ int) {
		z := DepthToZ(m.depth.Pix[i], m.depthScale)
		m.vertices[i].Position[2] = z
		mapped[3*i+2] = z
		n++
	})
	return n, nil
}

// Width returns the grid width, or 0 before the first Load.
func (m *Mesh) Width() int {
	if m.depth == nil {
		return 0
	}
	return m.depth.W
}

// Height returns the grid height, or 0 before the first Load.
func (m *Mesh) Height() int {
	if m.depth == nil {
		return 0
	}
	return m.depth.H
}

// Vertices returns the vertex grid. The slice is owned by the mesh.
func (m *Mesh) Vertices() []Vertex { return m.vertices }

// Indices returns the index strip. The slice is owned by the mesh.
func (m *Mesh) Indices() []uint32 { return m.indices }

// Colors returns the color grid. The slice is owned by the mesh.
func (m *Mesh) Colors() []Color { return m.colors }

// Bounds returns the bounding box of the current vertices.
func (m *Mesh) Bounds() Bounds { return ComputeBounds(m.vertices) }
