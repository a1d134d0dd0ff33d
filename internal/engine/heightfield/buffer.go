package heightfield

// SliceBuffer is a VertexBuffer backed by host memory. It records how many
// times it was mapped and refuses nested mappings.
type SliceBuffer struct {
	Data []float32

	// Fail makes Map return ErrMapFailed.
	Fail bool

	mapped bool
	Maps   int
	Unmaps int
}

// NewSliceBuffer copies vertices into a new buffer.
func NewSliceBuffer(vertices []Vertex) *SliceBuffer {
	return &SliceBuffer{Data: Flatten(vertices)}
}

// Map grants write access to Data.
func (b *SliceBuffer) Map() ([]float32, error) {
	if b.Fail || b.mapped || b.Data == nil {
		return nil, ErrMapFailed
	}
	b.mapped = true
	b.Maps++
	return b.Data, nil
}

// Unmap releases the mapping.
func (b *SliceBuffer) Unmap() {
	if b.mapped {
		b.mapped = false
		b.Unmaps++
	}
}

// Mapped reports whether a mapping is outstanding.
func (b *SliceBuffer) Mapped() bool { return b.mapped }
