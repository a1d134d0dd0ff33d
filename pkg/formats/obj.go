package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidOBJRecord is returned for OBJ lines the parser cannot read.
var ErrInvalidOBJRecord = errors.New("invalid OBJ record")

// WriteOBJ writes m as a Wavefront OBJ file using the common "v x y z r g b"
// vertex color extension. Face indices are 1-based.
func WriteOBJ(w io.Writer, m MeshData) error {
	if err := m.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#", Comment)
	for i, v := range m.Vertices {
		c := m.Colors[i]
		fmt.Fprintf(bw, "v %s %s %s %s %s %s\n",
			formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]),
			formatFloat(c[0]), formatFloat(c[1]), formatFloat(c[2]))
	}
	for _, f := range m.Faces {
		fmt.Fprintf(bw, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	return bw.Flush()
}

// ParseOBJ reads vertices with optional colors and triangle faces. Vertices
// without colors are white; other record types are skipped.
func ParseOBJ(r io.Reader) (*MeshData, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	m := &MeshData{}
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			v, c, err := parseOBJVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			m.Vertices = append(m.Vertices, v)
			m.Colors = append(m.Colors, c)
		case "f":
			f, err := parseOBJFace(fields[1:], len(m.Vertices))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			m.Faces = append(m.Faces, f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseOBJVertex(fields []string) (v, c [3]float32, err error) {
	if len(fields) != 3 && len(fields) != 6 {
		return v, c, fmt.Errorf("%w: vertex with %d values", ErrInvalidOBJRecord, len(fields))
	}
	c = [3]float32{1, 1, 1}
	for k := 0; k < 3; k++ {
		if v[k], err = parseFloat(fields[k]); err != nil {
			return v, c, fmt.Errorf("%w: %v", ErrInvalidOBJRecord, err)
		}
	}
	if len(fields) == 6 {
		for k := 0; k < 3; k++ {
			if c[k], err = parseFloat(fields[3+k]); err != nil {
				return v, c, fmt.Errorf("%w: %v", ErrInvalidOBJRecord, err)
			}
		}
	}
	return v, c, nil
}

// parseOBJFace accepts "a b c" and "a/t/n" style references, including
// negative indices relative to the last vertex.
func parseOBJFace(fields []string, count int) ([3]uint32, error) {
	var f [3]uint32
	if len(fields) != 3 {
		return f, fmt.Errorf("%w: face with %d vertices", ErrInvalidOBJRecord, len(fields))
	}
	for k, field := range fields {
		ref, _, _ := strings.Cut(field, "/")
		idx, err := strconv.Atoi(ref)
		if err != nil {
			return f, fmt.Errorf("%w: %v", ErrInvalidOBJRecord, err)
		}
		if idx < 0 {
			idx = count + idx + 1
		}
		if idx < 1 || idx > count {
			return f, fmt.Errorf("%w: vertex index %s out of range", ErrInvalidOBJRecord, ref)
		}
		f[k] = uint32(idx - 1)
	}
	return f, nil
}
