package source

import (
	"fmt"
	"math"

	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/u3dexport/pkg/encoding"
	"github.com/Faultbox/u3dexport/pkg/formats"
	"github.com/Faultbox/u3dexport/pkg/scene"
)

// RSMScene exposes every node with geometry as a mesh. Node transforms are
// evaluated at frame*1000/fps milliseconds.
type RSMScene struct {
	Model  *formats.RSM
	fps    float64
	meshes []*rsmMesh
}

type rsmMesh struct {
	model    *RSMScene
	node     *formats.RSMNode
	faces    []formats.RSMFace
	mirrored bool // node transform has negative determinant at time zero
}

// OpenRSM parses an RSM model from disk.
func OpenRSM(path string, opts Options) (*RSMScene, error) {
	m, err := formats.ParseRSMFile(path)
	if err != nil {
		return nil, err
	}
	return NewRSMScene(m, opts), nil
}

// NewRSMScene wraps a parsed model. Faces that reference missing vertices
// are dropped.
func NewRSMScene(m *formats.RSM, opts Options) *RSMScene {
	log := opts.logger()
	s := &RSMScene{Model: m, fps: opts.fps()}

	for i := range m.Nodes {
		node := &m.Nodes[i]
		mesh := &rsmMesh{model: s, node: node}
		for _, f := range node.Faces {
			if validRSMFace(node, f) {
				mesh.faces = append(mesh.faces, f)
			}
		}
		if dropped := len(node.Faces) - len(mesh.faces); dropped > 0 {
			log.Warn("dropped faces with invalid vertex indices",
				zap.String("node", node.Name), zap.Int("faces", dropped))
		}
		if len(node.Vertices) == 0 || len(mesh.faces) == 0 {
			log.Debug("skipping node without geometry", zap.String("node", node.Name))
			continue
		}
		mesh.mirrored = NodeMatrix(m, node, 0).Mat3().Det() < 0
		s.meshes = append(s.meshes, mesh)
	}
	return s
}

func validRSMFace(node *formats.RSMNode, f formats.RSMFace) bool {
	for _, v := range f.VertexIDs {
		if int(v) >= len(node.Vertices) {
			return false
		}
	}
	return true
}

func (s *RSMScene) Meshes() []scene.Mesh {
	meshes := make([]scene.Mesh, len(s.meshes))
	for i, m := range s.meshes {
		meshes[i] = m
	}
	return meshes
}

// FrameRange covers the animation length. Static models export one frame.
func (s *RSMScene) FrameRange() (start, end int) {
	if !s.Model.HasAnimation() {
		return 0, 0
	}
	return 0, int(math.Ceil(float64(s.Model.AnimLength) * s.fps / 1000))
}

func (s *RSMScene) NoteKeys() []scene.NoteKey { return nil }

func (s *RSMScene) timeMs(frame int) float32 {
	return float32(float64(frame) * 1000 / s.fps)
}

func (m *rsmMesh) Name() string { return encoding.EUCKRStringToUTF8(m.node.Name) }

func (m *rsmMesh) NumVertices() int { return len(m.node.Vertices) }

func (m *rsmMesh) NumFaces() int { return len(m.faces) }

func (m *rsmMesh) Face(i int) scene.Face {
	src := m.faces[i]
	f := scene.Face{}
	for c := 0; c < 3; c++ {
		f.Verts[c] = int(src.VertexIDs[c])
		if tc := int(src.TexCoordIDs[c]); tc < len(m.node.TexCoords) {
			uv := m.node.TexCoords[tc]
			f.UV[c] = scene.TexCoord{U: uv.U, V: 1 - uv.V}
			f.HasUV[c] = true
		}
	}
	if int(src.TextureID) < len(m.node.TextureIDs) {
		f.MaterialID = int(m.node.TextureIDs[src.TextureID])
	}
	f.TwoSided = src.TwoSide != 0
	if m.mirrored {
		f.Verts[1], f.Verts[2] = f.Verts[2], f.Verts[1]
		f.UV[1], f.UV[2] = f.UV[2], f.UV[1]
		f.HasUV[1], f.HasUV[2] = f.HasUV[2], f.HasUV[1]
	}
	return f
}

// Material resolves a global texture index to its decoded file name.
func (m *rsmMesh) Material(id int) *scene.Material {
	textures := m.model.Model.Textures
	if id < 0 || id >= len(textures) {
		return nil
	}
	name := encoding.TextureName(textures[id])
	return &scene.Material{Name: name, Texture: name}
}

func (m *rsmMesh) Vertices(frame int) ([]vec3.T, error) {
	if frame < 0 {
		return nil, fmt.Errorf("node %q: %w: %d", m.node.Name, ErrFrameOutOfRange, frame)
	}
	mat := NodeMatrix(m.model.Model, m.node, m.model.timeMs(frame))
	verts := make([]vec3.T, len(m.node.Vertices))
	for i, v := range m.node.Vertices {
		p := mgl32.TransformCoordinate(mgl32.Vec3(v), mat)
		// RO models are Y-down.
		verts[i] = vec3.T{p[0], -p[1], p[2]}
	}
	return verts, nil
}

// NodeMatrix returns the full vertex transform of a node at timeMs: the
// inherited hierarchy matrix followed by the node's vertex-only offset and
// 3x3 matrix.
func NodeMatrix(m *formats.RSM, node *formats.RSMNode, timeMs float32) mgl32.Mat4 {
	visited := make(map[string]bool)
	result := hierarchyMatrix(m, node, timeMs, visited)
	result = result.Mul4(mgl32.Translate3D(node.Offset[0], node.Offset[1], node.Offset[2]))
	return result.Mul4(mgl32.Mat3(node.Matrix).Mat4())
}

// hierarchyMatrix is parent * T * R * S * animated scale. Children inherit
// it; the vertex-only parts are not included.
func hierarchyMatrix(m *formats.RSM, node *formats.RSMNode, timeMs float32, visited map[string]bool) mgl32.Mat4 {
	if visited[node.Name] {
		return mgl32.Ident4()
	}
	visited[node.Name] = true

	pos := node.Position
	if len(node.PosKeys) > 0 {
		pos = interpolatePosKeys(node.PosKeys, timeMs)
	}
	local := mgl32.Translate3D(pos[0], pos[1], pos[2])

	// Keys replace the static axis-angle rotation.
	if len(node.RotKeys) > 0 {
		local = local.Mul4(interpolateRotKeys(node.RotKeys, timeMs).Mat4())
	} else if node.RotAngle != 0 {
		axis := mgl32.Vec3(node.RotAxis)
		if axis.Len() > 1e-6 {
			local = local.Mul4(mgl32.HomogRotate3D(node.RotAngle, axis.Normalize()))
		}
	}

	local = local.Mul4(mgl32.Scale3D(node.Scale[0], node.Scale[1], node.Scale[2]))
	if len(node.ScaleKeys) > 0 {
		s := interpolateScaleKeys(node.ScaleKeys, timeMs)
		local = local.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}

	if parent := m.ParentOf(node); parent != nil {
		return hierarchyMatrix(m, parent, timeMs, visited).Mul4(local)
	}
	return local
}

// keySpan finds the keys around timeMs. frames must be sorted. When timeMs
// is outside the keyed range both indices point at the nearest key.
func keySpan(n int, frame func(int) int32, timeMs float32) (prev, next int, t float32) {
	for i := 0; i < n; i++ {
		if float32(frame(i)) > timeMs {
			next = i
			break
		}
		prev = i
		next = i
	}
	if prev == next {
		return prev, next, 0
	}
	f0, f1 := frame(prev), frame(next)
	if f1 != f0 {
		t = (timeMs - float32(f0)) / float32(f1-f0)
	}
	return prev, next, t
}

func rsmQuat(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}.Normalize()
}

func interpolateRotKeys(keys []formats.RSMRotKeyframe, timeMs float32) mgl32.Quat {
	prev, next, t := keySpan(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	q0 := rsmQuat(keys[prev].Quaternion)
	if prev == next {
		return q0
	}
	return mgl32.QuatSlerp(q0, rsmQuat(keys[next].Quaternion), t)
}

func interpolateScaleKeys(keys []formats.RSMScaleKeyframe, timeMs float32) [3]float32 {
	prev, next, t := keySpan(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	return lerp3(keys[prev].Scale, keys[next].Scale, t)
}

func interpolatePosKeys(keys []formats.RSMPosKeyframe, timeMs float32) [3]float32 {
	prev, next, t := keySpan(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	return lerp3(keys[prev].Position, keys[next].Position, t)
}

func lerp3(a, b [3]float32, t float32) [3]float32 {
	return [3]float32{
		a[0] + t*(b[0]-a[0]),
		a[1] + t*(b[1]-a[1]),
		a[2] + t*(b[2]-a[2]),
	}
}
