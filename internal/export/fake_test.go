package export

import (
	"errors"
	"math"

	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/u3dexport/pkg/scene"
)

// fakeMesh moves its base vertices by frame*step along X.
type fakeMesh struct {
	name      string
	verts     []vec3.T
	faces     []scene.Face
	materials map[int]*scene.Material
	step      float32
	dropAt    int // frame on which one vertex goes missing, -1 for never
	addAt     int // frame on which one extra vertex appears, -1 for never
	nanAt     int // frame on which the first vertex is NaN, -1 for never
	failAt    int // frame on which Vertices fails, -1 for never
}

func newFakeMesh(name string, verts []vec3.T, faces []scene.Face) *fakeMesh {
	return &fakeMesh{name: name, verts: verts, faces: faces, dropAt: -1, addAt: -1, nanAt: -1, failAt: -1}
}

func (m *fakeMesh) Name() string          { return m.name }
func (m *fakeMesh) NumVertices() int      { return len(m.verts) }
func (m *fakeMesh) NumFaces() int         { return len(m.faces) }
func (m *fakeMesh) Face(i int) scene.Face { return m.faces[i] }

func (m *fakeMesh) Material(id int) *scene.Material {
	return m.materials[id]
}

func (m *fakeMesh) Vertices(frame int) ([]vec3.T, error) {
	if frame == m.failAt {
		return nil, errors.New("source gone")
	}
	out := make([]vec3.T, len(m.verts))
	for i, v := range m.verts {
		out[i] = vec3.T{v[0] + float32(frame)*m.step, v[1], v[2]}
	}
	if frame == m.dropAt {
		out = out[:len(out)-1]
	}
	if frame == m.addAt {
		out = append(out, vec3.T{float32(frame), 1, 1})
	}
	if frame == m.nanAt && len(out) > 0 {
		out[0][1] = float32(math.NaN())
	}
	return out, nil
}

type fakeTracker struct {
	name string
}

func (t *fakeTracker) Name() string { return t.name }

func (t *fakeTracker) Transform(frame int) (vec3.T, mgl32.Quat, error) {
	return vec3.T{float32(frame), 0, 0}, mgl32.QuatIdent(), nil
}

type fakeScene struct {
	meshes     []scene.Mesh
	start, end int
	notes      []scene.NoteKey
	trackers   []scene.Tracker
}

func (s *fakeScene) Meshes() []scene.Mesh      { return s.meshes }
func (s *fakeScene) FrameRange() (int, int)    { return s.start, s.end }
func (s *fakeScene) NoteKeys() []scene.NoteKey { return s.notes }
func (s *fakeScene) Trackers() []scene.Tracker { return s.trackers }

func tri(a, b, c int) scene.Face {
	return scene.Face{Verts: [3]int{a, b, c}}
}

// quad returns a two-triangle mesh with four vertices.
func quad(name string, x float32) *fakeMesh {
	return newFakeMesh(name,
		[]vec3.T{{x, 0, 0}, {x + 1, 0, 0}, {x + 1, 1, 0}, {x, 1, 1}},
		[]scene.Face{tri(0, 1, 2), tri(0, 2, 3)},
	)
}
