package heightfield

import (
	"errors"
	"image"
	"testing"

	"github.com/Faultbox/depth3d/pkg/rgbd"
)

func loadedMesh(t *testing.T, w, h int) (*Mesh, *rgbd.Pair) {
	t.Helper()
	m := NewMesh(nil)
	p := newTestPair(w, h, 127)
	if err := m.Load(p, 1); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := m.Sync(nil); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	return m, p
}

func TestMeshLoadSync(t *testing.T) {
	m := NewMesh(nil)
	var topologyCalls []int
	m.OnTopologyChanged(func(n int) { topologyCalls = append(topologyCalls, n) })

	if err := m.Load(newTestPair(4, 4, 127), 1); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := m.Pending()
	if p.Vertices != NeedsFullRebuild || !p.Topology || !p.Colors {
		t.Fatalf("expected full rebuild pending, got %+v", p)
	}

	res, err := m.Sync(nil)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !res.RebuiltVertices || !res.RebuiltTopology || !res.RebuiltColors {
		t.Errorf("expected everything rebuilt, got %+v", res)
	}
	if res.IndexCount != 23 || len(m.Indices()) != 23 {
		t.Errorf("expected 23 indices, got %d", len(m.Indices()))
	}
	if len(m.Vertices()) != 16 || len(m.Colors()) != 16 {
		t.Errorf("expected 16 vertices and colors, got %d and %d", len(m.Vertices()), len(m.Colors()))
	}
	if len(topologyCalls) != 1 || topologyCalls[0] != 23 {
		t.Errorf("expected one topology notification with 23, got %v", topologyCalls)
	}
	if !m.Pending().Idle() {
		t.Errorf("expected idle after sync, got %+v", m.Pending())
	}
	if m.Width() != 4 || m.Height() != 4 {
		t.Errorf("expected 4x4, got %dx%d", m.Width(), m.Height())
	}
}

func TestMeshReloadSameSizeKeepsTopology(t *testing.T) {
	m, _ := loadedMesh(t, 3, 3)
	calls := 0
	m.OnTopologyChanged(func(int) { calls++ })

	if err := m.Load(newTestPair(3, 3, 10), 1); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	res, _ := m.Sync(nil)
	if res.RebuiltTopology || calls != 0 {
		t.Error("expected topology to survive a same-size reload")
	}
	if !res.RebuiltVertices || !res.RebuiltColors {
		t.Errorf("expected vertices and colors rebuilt, got %+v", res)
	}

	if err := m.Load(newTestPair(4, 3, 10), 1); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	res, _ = m.Sync(nil)
	if !res.RebuiltTopology || calls != 1 {
		t.Error("expected topology rebuild after resize")
	}
}

func TestMeshLoadInvalidKeepsState(t *testing.T) {
	m, _ := loadedMesh(t, 3, 3)
	before := m.Vertices()

	err := m.Load(rgbd.NewPair(rgbd.NewImage(3, 3), rgbd.NewDepthmap(2, 2)), 1)
	if !errors.Is(err, rgbd.ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	if !m.Pending().Idle() || len(m.Vertices()) != len(before) {
		t.Error("expected state to be untouched by a rejected pair")
	}
}

func TestMeshPartialUpdateThroughBuffer(t *testing.T) {
	m, p := loadedMesh(t, 4, 4)
	buf := NewSliceBuffer(m.Vertices())

	dm := p.Depth.Clone()
	dm.Set(1, 2, 227)
	dm.Set(3, 3, 27)
	if err := m.SetDepthmap(dm); err != nil {
		t.Fatalf("SetDepthmap failed: %v", err)
	}
	// SetDepthmap schedules everything; narrow it by resetting to a rect.
	m.pending = Pending{}
	m.Invalidate(RectRegion(image.Rect(0, 0, 2, 3)))
	if m.Pending().Vertices != NeedsPartialUpdate {
		t.Fatalf("expected partial update pending, got %v", m.Pending().Vertices)
	}

	res, err := m.Sync(buf)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.RebuiltVertices || res.UpdatedVertices != 6 {
		t.Errorf("expected 6 partial updates, got %+v", res)
	}
	if buf.Maps != 1 || buf.Unmaps != 1 || buf.Mapped() {
		t.Errorf("expected one balanced mapping, got %d maps and %d unmaps", buf.Maps, buf.Unmaps)
	}

	i := 2*4 + 1
	if m.Vertices()[i].Position[2] != 100 || buf.Data[3*i+2] != 100 {
		t.Errorf("expected z 100 in both copies, got %v and %v", m.Vertices()[i].Position[2], buf.Data[3*i+2])
	}
	j := 3*4 + 3
	if m.Vertices()[j].Position[2] != 0 || buf.Data[3*j+2] != 0 {
		t.Error("expected vertex outside region untouched")
	}
}

func TestMeshMapFailureKeepsPending(t *testing.T) {
	m, _ := loadedMesh(t, 3, 3)
	m.SetDepthScale(2)
	if err := m.SetImage(newTestPair(3, 3, 0).Image); err != nil {
		t.Fatalf("SetImage failed: %v", err)
	}

	buf := NewSliceBuffer(m.Vertices())
	buf.Fail = true

	res, err := m.Sync(buf)
	if !errors.Is(err, ErrMapFailed) {
		t.Fatalf("expected ErrMapFailed, got %v", err)
	}
	if m.Pending().Vertices != NeedsPartialUpdate {
		t.Errorf("expected partial update still pending, got %v", m.Pending().Vertices)
	}
	if !res.RebuiltColors {
		t.Error("expected colors rebuilt despite map failure")
	}
	if buf.Unmaps != 0 {
		t.Error("Unmap called without a successful Map")
	}

	buf.Fail = false
	res, err = m.Sync(buf)
	if err != nil || res.UpdatedVertices != 9 {
		t.Errorf("expected retry to update 9 vertices, got %d (%v)", res.UpdatedVertices, err)
	}
}

func TestMeshMappedSizeMismatch(t *testing.T) {
	m, _ := loadedMesh(t, 3, 3)
	m.Invalidate(AllRegion())

	buf := &SliceBuffer{Data: make([]float32, 6)}
	if _, err := m.Sync(buf); !errors.Is(err, ErrMapFailed) {
		t.Fatalf("expected ErrMapFailed, got %v", err)
	}
	if buf.Mapped() {
		t.Error("expected buffer unmapped after a rejected mapping")
	}
}

func TestMeshFullRebuildWinsOverPartial(t *testing.T) {
	m, _ := loadedMesh(t, 3, 3)
	m.Invalidate(RectRegion(image.Rect(0, 0, 1, 1)))
	if err := m.Load(newTestPair(3, 3, 200), 1); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	m.Invalidate(RectRegion(image.Rect(1, 1, 2, 2)))

	if m.Pending().Vertices != NeedsFullRebuild {
		t.Fatalf("expected full rebuild to absorb partial updates, got %v", m.Pending().Vertices)
	}
	buf := NewSliceBuffer(m.Vertices())
	res, err := m.Sync(buf)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !res.RebuiltVertices || res.UpdatedVertices != 0 || buf.Maps != 0 {
		t.Errorf("expected a single full rebuild, got %+v with %d maps", res, buf.Maps)
	}
	for _, v := range m.Vertices() {
		if v.Position[2] != 73 {
			t.Fatalf("expected z 73 everywhere, got %v", v.Position[2])
		}
	}
}

func TestMeshInvalidateAccumulates(t *testing.T) {
	m, p := loadedMesh(t, 4, 4)
	p.Depth.Fill(255)

	m.Invalidate(RectRegion(image.Rect(0, 0, 1, 1)))
	m.Invalidate(RectRegion(image.Rect(3, 3, 4, 4)))

	res, err := m.Sync(nil)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.UpdatedVertices != 2 {
		t.Errorf("expected both regions updated, got %d", res.UpdatedVertices)
	}
	if m.Vertices()[0].Position[2] != 128 || m.Vertices()[15].Position[2] != 128 {
		t.Error("expected corners refreshed")
	}
	if m.Vertices()[5].Position[2] != 0 {
		t.Error("expected interior untouched")
	}
}

func TestMeshInvalidateRejectsMismatchedMask(t *testing.T) {
	m, p := loadedMesh(t, 4, 4)
	p.Depth.Fill(200)
	buf := NewSliceBuffer(m.Vertices())

	mask := rgbd.NewDepthmap(2, 2)
	mask.Fill(255)
	err := m.Invalidate(MaskRegion(image.Rect(0, 0, 2, 2), mask))
	if !errors.Is(err, rgbd.ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	if !m.Pending().Idle() {
		t.Errorf("expected nothing scheduled, got %+v", m.Pending())
	}

	full := rgbd.NewDepthmap(4, 4)
	full.Set(0, 0, 255)
	if err := m.Invalidate(MaskRegion(image.Rect(0, 0, 2, 2), full)); err != nil {
		t.Fatalf("Invalidate with a full-size mask failed: %v", err)
	}
	res, err := m.Sync(buf)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.UpdatedVertices != 1 || buf.Data[2] != 73 {
		t.Errorf("expected the masked corner refreshed to 73, got %d updates and z %v", res.UpdatedVertices, buf.Data[2])
	}
}

func TestMeshInvalidateWithoutPair(t *testing.T) {
	m := NewMesh(nil)
	if err := m.Invalidate(AllRegion()); !errors.Is(err, rgbd.ErrEmptyDepthmap) {
		t.Errorf("expected ErrEmptyDepthmap, got %v", err)
	}
}

func TestMeshSetDepthScale(t *testing.T) {
	m, p := loadedMesh(t, 2, 2)
	p.Depth.Set(0, 0, 137)
	m.SetDepthScale(3)
	if m.Pending().Vertices != NeedsPartialUpdate || !m.Pending().Region.All() {
		t.Fatalf("expected full-grid partial update, got %+v", m.Pending())
	}
	if _, err := m.Sync(nil); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if z := m.Vertices()[0].Position[2]; z != 30 {
		t.Errorf("expected z 30, got %v", z)
	}

	m.SetDepthScale(3)
	if !m.Pending().Idle() {
		t.Error("expected unchanged scale to schedule nothing")
	}
}

func TestMeshSetters(t *testing.T) {
	m := NewMesh(nil)
	if err := m.SetDepthmap(rgbd.NewDepthmap(2, 2)); !errors.Is(err, rgbd.ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage before load, got %v", err)
	}
	if err := m.SetImage(rgbd.NewImage(2, 2)); !errors.Is(err, rgbd.ErrEmptyDepthmap) {
		t.Errorf("expected ErrEmptyDepthmap before load, got %v", err)
	}

	m, _ = loadedMesh(t, 3, 3)
	if err := m.SetDepthmap(rgbd.NewDepthmap(2, 3)); !errors.Is(err, rgbd.ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
	if err := m.SetImage(rgbd.NewImage(3, 2)); !errors.Is(err, rgbd.ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestMeshSyncWithoutPair(t *testing.T) {
	m := NewMesh(nil)
	res, err := m.Sync(nil)
	if err != nil || res != (SyncResult{}) {
		t.Errorf("expected empty no-op sync, got %+v (%v)", res, err)
	}

	m, _ = loadedMesh(t, 2, 2)
	m.Reset()
	if m.Width() != 0 || m.Vertices() != nil {
		t.Error("expected Reset to drop every buffer")
	}
}
