package u3d

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// WriteData writes the data file: header followed by the triangle records
// in the given order.
func WriteData(w io.Writer, tris []MeshTri, vertsPerFrame int) error {
	if len(tris) > MaxPolys {
		return fmt.Errorf("%w: %d", ErrTooManyPolys, len(tris))
	}
	if vertsPerFrame < 0 || vertsPerFrame > MaxVertices {
		return fmt.Errorf("%w: %d", ErrTooManyVertices, vertsPerFrame)
	}

	hdr := DataHeader{
		NumPolys:    uint16(len(tris)),
		NumVertices: uint16(vertsPerFrame),
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing data header: %w", err)
	}
	if len(tris) > 0 {
		if err := binary.Write(bw, binary.LittleEndian, tris); err != nil {
			return fmt.Errorf("writing triangles: %w", err)
		}
	}
	return bw.Flush()
}

// WriteAniv writes the animation file: header followed by the packed
// vertices, all slots of frame 0 first, then frame 1, and so on.
func WriteAniv(w io.Writer, verts []uint32, vertsPerFrame, frames int) error {
	if vertsPerFrame < 0 || vertsPerFrame > MaxVertices {
		return fmt.Errorf("%w: %d", ErrTooManyVertices, vertsPerFrame)
	}
	if frames < 0 || frames > MaxFrames {
		return fmt.Errorf("%w: %d frames", ErrFrameData, frames)
	}
	if len(verts) != vertsPerFrame*frames {
		return fmt.Errorf("%w: have %d, want %d x %d", ErrFrameData, len(verts), frames, vertsPerFrame)
	}

	hdr := AnivHeader{
		NumFrames: uint16(frames),
		FrameSize: uint16(vertsPerFrame * VertexSize),
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing animation header: %w", err)
	}
	if len(verts) > 0 {
		if err := binary.Write(bw, binary.LittleEndian, verts); err != nil {
			return fmt.Errorf("writing vertices: %w", err)
		}
	}
	return bw.Flush()
}
