package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic      = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLYFormat = errors.New("unsupported PLY format")
	ErrTruncatedPLYData     = errors.New("truncated PLY data")
)

// preallocLimit caps the capacity reserved from header element counts; the
// body still has to supply every declared element.
const preallocLimit = 1 << 20

// WritePLY writes m as an ASCII PLY file. Colors are stored as bytes.
func WritePLY(w io.Writer, m MeshData) error {
	if err := m.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "ply")
	fmt.Fprintln(bw, "format ascii 1.0")
	fmt.Fprintln(bw, "comment", Comment)
	fmt.Fprintln(bw, "element vertex", len(m.Vertices))
	fmt.Fprintln(bw, "property float x")
	fmt.Fprintln(bw, "property float y")
	fmt.Fprintln(bw, "property float z")
	fmt.Fprintln(bw, "property uchar red")
	fmt.Fprintln(bw, "property uchar green")
	fmt.Fprintln(bw, "property uchar blue")
	fmt.Fprintln(bw, "element face", len(m.Faces))
	fmt.Fprintln(bw, "property list uchar int vertex_index")
	fmt.Fprintln(bw, "end_header")

	for i, v := range m.Vertices {
		c := m.Colors[i]
		fmt.Fprintf(bw, "%s %s %s %d %d %d\n",
			formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]),
			colorByte(c[0]), colorByte(c[1]), colorByte(c[2]))
	}
	for _, f := range m.Faces {
		fmt.Fprintf(bw, "3 %d %d %d\n", f[0], f[1], f[2])
	}
	return bw.Flush()
}

// plyHeader holds the element counts read from a PLY header.
type plyHeader struct {
	vertices int
	faces    int
}

// ParsePLY reads an ASCII PLY file with per-vertex colors and triangle faces,
// as written by WritePLY.
func ParsePLY(r io.Reader) (*MeshData, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	hdr, err := parsePLYHeader(sc)
	if err != nil {
		return nil, err
	}

	m := &MeshData{
		Vertices: make([][3]float32, 0, min(hdr.vertices, preallocLimit)),
		Colors:   make([][3]float32, 0, min(hdr.vertices, preallocLimit)),
		Faces:    make([][3]uint32, 0, min(hdr.faces, preallocLimit)),
	}

	for i := 0; i < hdr.vertices; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: reading vertex %d", ErrTruncatedPLYData, i)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != 6 {
			return nil, fmt.Errorf("%w: vertex %d has %d fields", ErrTruncatedPLYData, i, len(fields))
		}
		var v, c [3]float32
		for k := 0; k < 3; k++ {
			if v[k], err = parseFloat(fields[k]); err != nil {
				return nil, fmt.Errorf("vertex %d: %w", i, err)
			}
			b, err := strconv.ParseUint(fields[3+k], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("vertex %d color: %w", i, err)
			}
			c[k] = float32(b) / 255
		}
		m.Vertices = append(m.Vertices, v)
		m.Colors = append(m.Colors, c)
	}

	for i := 0; i < hdr.faces; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: reading face %d", ErrTruncatedPLYData, i)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != 4 || fields[0] != "3" {
			return nil, fmt.Errorf("%w: face %d is not a triangle", ErrUnsupportedPLYFormat, i)
		}
		var f [3]uint32
		for k := 0; k < 3; k++ {
			idx, err := strconv.ParseUint(fields[1+k], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("face %d: %w", i, err)
			}
			f[k] = uint32(idx)
		}
		m.Faces = append(m.Faces, f)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parsePLYHeader(sc *bufio.Scanner) (plyHeader, error) {
	var hdr plyHeader
	if !sc.Scan() {
		return hdr, ErrTruncatedPLYData
	}
	if strings.TrimSpace(sc.Text()) != "ply" {
		return hdr, ErrInvalidPLYMagic
	}

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "end_header":
			return hdr, nil
		case "format":
			if len(fields) < 2 || fields[1] != "ascii" {
				return hdr, fmt.Errorf("%w: %s", ErrUnsupportedPLYFormat, strings.Join(fields[1:], " "))
			}
		case "element":
			if len(fields) != 3 {
				return hdr, fmt.Errorf("%w: malformed element line", ErrUnsupportedPLYFormat)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return hdr, fmt.Errorf("%w: bad %s count %q", ErrUnsupportedPLYFormat, fields[1], fields[2])
			}
			switch fields[1] {
			case "vertex":
				hdr.vertices = n
			case "face":
				hdr.faces = n
			default:
				return hdr, fmt.Errorf("%w: element %s", ErrUnsupportedPLYFormat, fields[1])
			}
		}
	}
	return hdr, fmt.Errorf("%w: missing end_header", ErrTruncatedPLYData)
}
