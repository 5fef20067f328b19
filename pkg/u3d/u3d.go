// Package u3d implements the Unreal vertex animation file pair.
//
// A model is stored as a data file (*_d.3d) holding triangle topology, UVs and
// texture slots, and an animation file (*_a.3d) holding one packed 32-bit
// position per vertex per frame. Both files are little-endian with no padding.
package u3d

import (
	"errors"
	"fmt"
)

// Format errors.
var (
	ErrTruncatedData     = errors.New("truncated u3d data")
	ErrFrameSizeMismatch = errors.New("animation frame size does not match vertex count")
	ErrTooManyPolys      = errors.New("polygon count exceeds u16 header field")
	ErrTooManyVertices   = errors.New("vertex count exceeds animation frame size field")
	ErrFrameData         = errors.New("packed vertex count does not match frames x vertices")
)

// Record and header sizes in bytes.
const (
	DataHeaderSize = 48
	AnivHeaderSize = 4
	MeshTriSize    = 16
	VertexSize     = 4
)

// Limits imposed by the u16 header fields.
const (
	MaxPolys    = 0xFFFF
	MaxFrames   = 0xFFFF
	MaxVertices = 0xFFFF / VertexSize
)

// DataHeader is the fixed header of a data file.
// Only NumPolys and NumVertices carry meaning; the rest is legacy and zero.
type DataHeader struct {
	NumPolys    uint16
	NumVertices uint16
	BogusRot    uint16
	BogusFrame  uint16
	BogusNormX  uint32
	BogusNormY  uint32
	BogusNormZ  uint32
	FixScale    uint32
	Unused1     uint32
	Unused2     uint32
	Unused3     uint32
	Unknown1    uint32
	Unknown2    uint32
	Unknown3    uint32
}

// AnivHeader is the fixed header of an animation file.
type AnivHeader struct {
	NumFrames uint16
	FrameSize uint16 // bytes per frame, NumVertices * 4
}

// MeshUV is a texture coordinate in 8-bit fixed point.
type MeshUV struct {
	U uint8
	V uint8
}

// NewMeshUV converts a normalized coordinate pair into the packed form.
// V is stored bottom-up, so it is inverted after conversion.
func NewMeshUV(u, v float32) MeshUV {
	return MeshUV{U: ConvertUV(u), V: 255 - ConvertUV(v)}
}

// ConvertUV maps [0,1) onto a byte by scaling with 256 and truncating.
// Out of range input wraps the same way an 8-bit cast does.
func ConvertUV(f float32) uint8 {
	return uint8(truncate(f * 256))
}

// FlagTwoSided is the triangle flag value of a two-sided polygon.
const FlagTwoSided uint8 = 1

// MeshTri is one triangle record of the data file.
type MeshTri struct {
	Vertex     [3]uint16 // vertex slots
	Type       uint8     // legacy mesh type, unused
	Color      uint8     // legacy flat shading color, unused
	Tex        [3]MeshUV
	TextureNum uint8
	Flags      uint8
}

// String returns a compact description of the triangle.
func (t MeshTri) String() string {
	return fmt.Sprintf("tri(%d,%d,%d tex=%d flags=%d)",
		t.Vertex[0], t.Vertex[1], t.Vertex[2], t.TextureNum, t.Flags)
}

// DataFileSize returns the byte size of a data file with n triangles.
func DataFileSize(polys int) int {
	return DataHeaderSize + polys*MeshTriSize
}

// AnivFileSize returns the byte size of an animation file.
func AnivFileSize(frames, vertsPerFrame int) int {
	return AnivHeaderSize + frames*vertsPerFrame*VertexSize
}
