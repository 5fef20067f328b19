package u3d

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Data is a parsed data file.
type Data struct {
	Header DataHeader
	Tris   []MeshTri
}

// Aniv is a parsed animation file.
type Aniv struct {
	Header AnivHeader
	Verts  []uint32
}

// VertsPerFrame returns the vertex count derived from the frame size.
func (a *Aniv) VertsPerFrame() int {
	return int(a.Header.FrameSize) / VertexSize
}

// Frame returns the packed vertices of frame i, or nil if out of range.
func (a *Aniv) Frame(i int) []uint32 {
	n := a.VertsPerFrame()
	if i < 0 || i >= int(a.Header.NumFrames) {
		return nil
	}
	return a.Verts[i*n : (i+1)*n]
}

// ParseData parses a data file from raw bytes.
func ParseData(data []byte) (*Data, error) {
	if len(data) < DataHeaderSize {
		return nil, fmt.Errorf("%w: data header", ErrTruncatedData)
	}

	r := bytes.NewReader(data)
	d := &Data{}
	if err := binary.Read(r, binary.LittleEndian, &d.Header); err != nil {
		return nil, fmt.Errorf("%w: data header", ErrTruncatedData)
	}

	n := int(d.Header.NumPolys)
	if r.Len() < n*MeshTriSize {
		return nil, fmt.Errorf("%w: want %d triangles, have %d bytes", ErrTruncatedData, n, r.Len())
	}
	d.Tris = make([]MeshTri, n)
	if err := binary.Read(r, binary.LittleEndian, d.Tris); err != nil {
		return nil, fmt.Errorf("%w: triangles", ErrTruncatedData)
	}

	for i, tri := range d.Tris {
		for _, v := range tri.Vertex {
			if v >= d.Header.NumVertices {
				return nil, fmt.Errorf("triangle %d references vertex %d of %d", i, v, d.Header.NumVertices)
			}
		}
	}

	return d, nil
}

// ParseAniv parses an animation file from raw bytes.
func ParseAniv(data []byte) (*Aniv, error) {
	if len(data) < AnivHeaderSize {
		return nil, fmt.Errorf("%w: animation header", ErrTruncatedData)
	}

	r := bytes.NewReader(data)
	a := &Aniv{}
	if err := binary.Read(r, binary.LittleEndian, &a.Header); err != nil {
		return nil, fmt.Errorf("%w: animation header", ErrTruncatedData)
	}
	if a.Header.FrameSize%VertexSize != 0 {
		return nil, fmt.Errorf("%w: frame size %d", ErrFrameSizeMismatch, a.Header.FrameSize)
	}

	n := int(a.Header.NumFrames) * a.VertsPerFrame()
	if r.Len() < n*VertexSize {
		return nil, fmt.Errorf("%w: want %d vertices, have %d bytes", ErrTruncatedData, n, r.Len())
	}
	a.Verts = make([]uint32, n)
	if err := binary.Read(r, binary.LittleEndian, a.Verts); err != nil {
		return nil, fmt.Errorf("%w: vertices", ErrTruncatedData)
	}
	return a, nil
}

// ParseDataFile parses a data file from disk.
func ParseDataFile(path string) (*Data, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}
	return ParseData(data)
}

// ParseAnivFile parses an animation file from disk.
func ParseAnivFile(path string) (*Aniv, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading animation file: %w", err)
	}
	return ParseAniv(data)
}

// CheckPair verifies that a data file and an animation file describe the
// same vertex set.
func CheckPair(d *Data, a *Aniv) error {
	if int(d.Header.NumVertices) != a.VertsPerFrame() {
		return fmt.Errorf("%w: data has %d vertices, animation frame holds %d",
			ErrFrameSizeMismatch, d.Header.NumVertices, a.VertsPerFrame())
	}
	return nil
}
