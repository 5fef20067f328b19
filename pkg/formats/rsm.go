// Package formats reads and writes RSM (Ragnarok Resource Model) files, the
// keyframed node hierarchy meshes accepted as export input.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
)

const (
	rsmMagic      = "GRSM"
	rsmNameSize   = 40
	rsmReserved   = 16
	rsmMaxNodes   = 10000
	rsmHeaderSize = 6
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// Supported reports whether the node layout of this version is understood.
// Versions 2.2 and later store textures per node and are rejected.
func (v RSMVersion) Supported() bool {
	return v.AtLeast(1, 1) && !v.AtLeast(2, 2)
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with a vertex color (v1.2+).
// V grows downward.
type RSMTexCoord struct {
	Color [4]uint8
	U, V  float32
}

// RSMFace is a triangle of a node mesh.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16 // index into the node's TextureIDs
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMPosKeyframe is a position key (v < 1.5). Frame is in milliseconds.
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation key stored as X, Y, Z, W.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale key (v1.5+).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string // empty or equal to Name for a root
	TextureIDs []int32

	Matrix   [9]float32 // vertex-only 3x3 transform, column-major
	Offset   [3]float32 // vertex-only translation
	Position [3]float32
	RotAngle float32 // radians, used when there are no rotation keys
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSMVolumeBox is a collision volume.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // v1.3+
}

// RSM is a parsed model.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32 // milliseconds
	Shading     RSMShadingType
	Alpha       float32
	Textures    []string // raw EUC-KR paths
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// rsmReader wraps a byte reader and remembers the first failure so a
// sequence of reads can be checked once.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rd *rsmReader) read(v any) {
	if rd.err != nil {
		return
	}
	if err := binary.Read(rd.r, binary.LittleEndian, v); err != nil {
		rd.err = ErrTruncatedRSMData
	}
}

func (rd *rsmReader) skip(n int64) {
	if rd.err != nil {
		return
	}
	if int64(rd.r.Len()) < n {
		rd.err = ErrTruncatedRSMData
		return
	}
	rd.r.Seek(n, io.SeekCurrent)
}

func (rd *rsmReader) name() string {
	var buf [rsmNameSize]byte
	rd.read(&buf)
	if i := bytes.IndexByte(buf[:], 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf[:])
}

// count reads an element count and checks that at least count*elemSize
// bytes remain.
func (rd *rsmReader) count(what string, elemSize int) int {
	var n int32
	rd.read(&n)
	if rd.err != nil {
		return 0
	}
	if n < 0 || int64(n)*int64(elemSize) > int64(rd.r.Len()) {
		rd.err = fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
		return 0
	}
	return int(n)
}

// ParseRSM parses RSM data from a byte slice.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < rsmHeaderSize {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if !rsm.Version.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rd := &rsmReader{r: bytes.NewReader(data[rsmHeaderSize:])}
	rd.read(&rsm.AnimLength)
	rd.read(&rsm.Shading)

	rsm.Alpha = 1
	if rsm.Version.AtLeast(1, 4) {
		var alpha uint8
		rd.read(&alpha)
		rsm.Alpha = float32(alpha) / 255
	}
	rd.skip(rsmReserved)

	rsm.Textures = make([]string, rd.count("textures", rsmNameSize))
	for i := range rsm.Textures {
		rsm.Textures[i] = rd.name()
	}

	rsm.RootNode = rd.name()

	var nodeCount int32
	rd.read(&nodeCount)
	if rd.err != nil {
		return nil, rd.err
	}
	if nodeCount < 0 || nodeCount > rsmMaxNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		rd.node(&rsm.Nodes[i], rsm.Version)
		if rd.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rd.err)
		}
	}

	// Volume boxes are optional trailing data.
	if rd.r.Len() >= 4 {
		boxSize := 36
		if rsm.Version.AtLeast(1, 3) {
			boxSize += 4
		}
		rsm.VolumeBoxes = make([]RSMVolumeBox, rd.count("volume boxes", boxSize))
		for i := range rsm.VolumeBoxes {
			box := &rsm.VolumeBoxes[i]
			rd.read(&box.Size)
			rd.read(&box.Position)
			rd.read(&box.Rotation)
			if rsm.Version.AtLeast(1, 3) {
				rd.read(&box.Flag)
			}
		}
		if rd.err != nil {
			return nil, fmt.Errorf("parsing volume boxes: %w", rd.err)
		}
	}

	return rsm, nil
}

func (rd *rsmReader) node(n *RSMNode, v RSMVersion) {
	n.Name = rd.name()
	n.Parent = rd.name()

	n.TextureIDs = make([]int32, rd.count("texture ids", 4))
	rd.read(n.TextureIDs)

	rd.read(&n.Matrix)
	rd.read(&n.Offset)
	rd.read(&n.Position)
	rd.read(&n.RotAngle)
	rd.read(&n.RotAxis)
	rd.read(&n.Scale)

	n.Vertices = make([][3]float32, rd.count("vertices", 12))
	rd.read(n.Vertices)

	tcSize := 8
	if v.AtLeast(1, 2) {
		tcSize += 4
	}
	n.TexCoords = make([]RSMTexCoord, rd.count("texture coordinates", tcSize))
	for i := range n.TexCoords {
		tc := &n.TexCoords[i]
		tc.Color = [4]uint8{255, 255, 255, 255}
		if v.AtLeast(1, 2) {
			rd.read(&tc.Color)
		}
		rd.read(&tc.U)
		rd.read(&tc.V)
	}

	faceSize := 20
	if v.AtLeast(1, 2) {
		faceSize += 4
	}
	n.Faces = make([]RSMFace, rd.count("faces", faceSize))
	for i := range n.Faces {
		f := &n.Faces[i]
		rd.read(&f.VertexIDs)
		rd.read(&f.TexCoordIDs)
		rd.read(&f.TextureID)
		rd.read(&f.Padding)
		rd.read(&f.TwoSide)
		if v.AtLeast(1, 2) {
			rd.read(&f.SmoothGroup)
		}
	}

	if !v.AtLeast(1, 5) {
		n.PosKeys = make([]RSMPosKeyframe, rd.count("position keys", 16))
		rd.read(n.PosKeys)
	}

	n.RotKeys = make([]RSMRotKeyframe, rd.count("rotation keys", 20))
	rd.read(n.RotKeys)

	if v.AtLeast(1, 5) {
		n.ScaleKeys = make([]RSMScaleKeyframe, rd.count("scale keys", 16))
		rd.read(n.ScaleKeys)
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// WriteRSM encodes m in the layout of m.Version.
func WriteRSM(w io.Writer, m *RSM) error {
	if !m.Version.Supported() {
		return fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, m.Version)
	}
	v := m.Version
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	put := func(data any) {
		binary.Write(bw, le, data)
	}
	putName := func(s string) {
		var buf [rsmNameSize]byte
		copy(buf[:rsmNameSize-1], s)
		bw.Write(buf[:])
	}
	putCount := func(n int) {
		put(int32(n))
	}

	bw.WriteString(rsmMagic)
	put([2]uint8{v.Major, v.Minor})
	put(m.AnimLength)
	put(m.Shading)
	if v.AtLeast(1, 4) {
		put(uint8(m.Alpha * 255))
	}
	bw.Write(make([]byte, rsmReserved))

	putCount(len(m.Textures))
	for _, t := range m.Textures {
		putName(t)
	}
	putName(m.RootNode)

	putCount(len(m.Nodes))
	for i := range m.Nodes {
		n := &m.Nodes[i]
		putName(n.Name)
		putName(n.Parent)
		putCount(len(n.TextureIDs))
		put(n.TextureIDs)
		put(n.Matrix)
		put(n.Offset)
		put(n.Position)
		put(n.RotAngle)
		put(n.RotAxis)
		put(n.Scale)

		putCount(len(n.Vertices))
		put(n.Vertices)

		putCount(len(n.TexCoords))
		for _, tc := range n.TexCoords {
			if v.AtLeast(1, 2) {
				put(tc.Color)
			}
			put(tc.U)
			put(tc.V)
		}

		putCount(len(n.Faces))
		for _, f := range n.Faces {
			put(f.VertexIDs)
			put(f.TexCoordIDs)
			put(f.TextureID)
			put(f.Padding)
			put(f.TwoSide)
			if v.AtLeast(1, 2) {
				put(f.SmoothGroup)
			}
		}

		if !v.AtLeast(1, 5) {
			putCount(len(n.PosKeys))
			put(n.PosKeys)
		}
		putCount(len(n.RotKeys))
		put(n.RotKeys)
		if v.AtLeast(1, 5) {
			putCount(len(n.ScaleKeys))
			put(n.ScaleKeys)
		}
	}

	putCount(len(m.VolumeBoxes))
	for _, b := range m.VolumeBoxes {
		put(b.Size)
		put(b.Position)
		put(b.Rotation)
		if v.AtLeast(1, 3) {
			put(b.Flag)
		}
	}

	return bw.Flush()
}

// VertexCount returns the number of vertices across all nodes.
func (rsm *RSM) VertexCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Vertices)
	}
	return total
}

// FaceCount returns the number of faces across all nodes.
func (rsm *RSM) FaceCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Faces)
	}
	return total
}

// Node returns the first node with the given name, or nil.
func (rsm *RSM) Node(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Root returns the node named by RootNode, or nil.
func (rsm *RSM) Root() *RSMNode {
	return rsm.Node(rsm.RootNode)
}

// ParentOf returns the parent of n, or nil for a root.
func (rsm *RSM) ParentOf(n *RSMNode) *RSMNode {
	if n.Parent == "" || n.Parent == n.Name {
		return nil
	}
	return rsm.Node(n.Parent)
}

// Children returns the nodes whose parent is the named node.
func (rsm *RSM) Children(name string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if n.Parent == name && n.Name != name {
			children = append(children, n)
		}
	}
	return children
}

// HasAnimation reports whether the model animates. A single key on every
// track is a static pose.
func (rsm *RSM) HasAnimation() bool {
	if rsm.AnimLength <= 0 {
		return false
	}
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if len(n.PosKeys) > 1 || len(n.RotKeys) > 1 || len(n.ScaleKeys) > 1 {
			return true
		}
	}
	return false
}
