package source

import (
	"fmt"
	"os"

	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/u3dexport/pkg/scene"
)

// Fixture is a recorded scene: every vertex position is stored per frame.
// A mesh or tracker with a single recorded frame is static.
type Fixture struct {
	Frames    *fixtureRange           `yaml:"frames,omitempty"`
	Materials map[int]fixtureMaterial `yaml:"materials,omitempty"`
	MeshDefs  []*FixtureMesh          `yaml:"meshes"`
	Notes     []noteEntry             `yaml:"notes,omitempty"`
	Tracks    []*FixtureTracker       `yaml:"trackers,omitempty"`
}

type fixtureRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type fixtureMaterial struct {
	Name    string `yaml:"name"`
	Texture string `yaml:"texture"`
}

type fixtureFace struct {
	Verts    [3]int        `yaml:"verts"`
	UV       []*[2]float32 `yaml:"uv,omitempty"`
	Material int           `yaml:"material"`
}

// FixtureMesh is one recorded mesh.
type FixtureMesh struct {
	MeshName string         `yaml:"name"`
	Faces    []fixtureFace  `yaml:"faces"`
	Frames   [][][3]float32 `yaml:"frames"`

	start     int
	materials map[int]fixtureMaterial
}

// FixtureTracker is one recorded helper node. Rotations are X, Y, Z, W.
type FixtureTracker struct {
	TrackerName string `yaml:"name"`
	Frames      []struct {
		Loc [3]float32 `yaml:"loc"`
		Rot [4]float32 `yaml:"rot"`
	} `yaml:"frames"`

	start int
}

// OpenFixture reads a recorded scene from a YAML file.
func OpenFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a recorded scene.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	if f.Frames == nil {
		n := 1
		for _, m := range f.MeshDefs {
			if m != nil {
				n = max(n, len(m.Frames))
			}
		}
		f.Frames = &fixtureRange{Start: 0, End: n - 1}
	}
	if f.Frames.End < f.Frames.Start {
		return nil, fmt.Errorf("%w: frames end %d before start %d", ErrInvalidFixture, f.Frames.End, f.Frames.Start)
	}

	for i, m := range f.MeshDefs {
		if m == nil {
			return nil, fmt.Errorf("%w: mesh %d is empty", ErrInvalidFixture, i)
		}
		for j, face := range m.Faces {
			if len(face.UV) != 0 && len(face.UV) != 3 {
				return nil, fmt.Errorf("%w: mesh %q face %d has %d uv entries", ErrInvalidFixture, m.MeshName, j, len(face.UV))
			}
		}
		m.start = f.Frames.Start
		m.materials = f.Materials
	}
	for i, t := range f.Tracks {
		if t == nil || len(t.Frames) == 0 {
			return nil, fmt.Errorf("%w: tracker %d has no frames", ErrInvalidFixture, i)
		}
		t.start = f.Frames.Start
	}
	return &f, nil
}

func (f *Fixture) Meshes() []scene.Mesh {
	meshes := make([]scene.Mesh, len(f.MeshDefs))
	for i, m := range f.MeshDefs {
		meshes[i] = m
	}
	return meshes
}

func (f *Fixture) FrameRange() (start, end int) {
	return f.Frames.Start, f.Frames.End
}

func (f *Fixture) NoteKeys() []scene.NoteKey {
	keys := make([]scene.NoteKey, len(f.Notes))
	for i, n := range f.Notes {
		keys[i] = scene.NoteKey{Frame: n.Frame, Text: n.Text}
	}
	return keys
}

func (f *Fixture) Trackers() []scene.Tracker {
	trackers := make([]scene.Tracker, len(f.Tracks))
	for i, t := range f.Tracks {
		trackers[i] = t
	}
	return trackers
}

func (m *FixtureMesh) Name() string { return m.MeshName }

func (m *FixtureMesh) NumVertices() int {
	if len(m.Frames) == 0 {
		return 0
	}
	return len(m.Frames[0])
}

func (m *FixtureMesh) NumFaces() int { return len(m.Faces) }

func (m *FixtureMesh) Face(i int) scene.Face {
	src := m.Faces[i]
	f := scene.Face{Verts: src.Verts, MaterialID: src.Material}
	for c, uv := range src.UV {
		if uv != nil {
			f.UV[c] = scene.TexCoord{U: uv[0], V: uv[1]}
			f.HasUV[c] = true
		}
	}
	return f
}

func (m *FixtureMesh) Material(id int) *scene.Material {
	mat, ok := m.materials[id]
	if !ok {
		return nil
	}
	return &scene.Material{Name: mat.Name, Texture: mat.Texture}
}

func (m *FixtureMesh) Vertices(frame int) ([]vec3.T, error) {
	i, err := recordedIndex(frame, m.start, len(m.Frames))
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", m.MeshName, err)
	}
	verts := make([]vec3.T, len(m.Frames[i]))
	for j, p := range m.Frames[i] {
		verts[j] = vec3.T(p)
	}
	return verts, nil
}

func (t *FixtureTracker) Name() string { return t.TrackerName }

func (t *FixtureTracker) Transform(frame int) (vec3.T, mgl32.Quat, error) {
	i, err := recordedIndex(frame, t.start, len(t.Frames))
	if err != nil {
		return vec3.T{}, mgl32.QuatIdent(), fmt.Errorf("tracker %q: %w", t.TrackerName, err)
	}
	fr := t.Frames[i]
	rot := mgl32.Quat{W: fr.Rot[3], V: mgl32.Vec3{fr.Rot[0], fr.Rot[1], fr.Rot[2]}}
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	return vec3.T(fr.Loc), rot.Normalize(), nil
}

// recordedIndex maps an absolute frame to a recorded frame index.
func recordedIndex(frame, start, n int) (int, error) {
	if n == 1 {
		return 0, nil
	}
	i := frame - start
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: %d", ErrFrameOutOfRange, frame)
	}
	return i, nil
}
