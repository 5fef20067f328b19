package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/flywave/go3d/vec3"

	"github.com/Faultbox/u3dexport/pkg/scene"
)

const birdFixture = `
materials:
  0: {name: "Body F=2", texture: BodyTex}
meshes:
  - name: Body
    faces:
      - verts: [0, 1, 2]
        uv: [[0, 0], null, [0.5, 1]]
        material: 0
    frames:
      - [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
      - [[0, 0, 1], [1, 0, 1], [0, 1, 1]]
      - [[0, 0, 2], [1, 0, 2], [0, 1, 2]]
  - name: Beak
    faces:
      - verts: [0, 1, 2]
    frames:
      - [[5, 0, 0], [6, 0, 0], [5, 1, 0]]
notes:
  - {frame: 0, text: "a Fly 2 10"}
trackers:
  - name: Tip
    frames:
      - {loc: [1, 2, 3], rot: [0, 0, 0, 1]}
`

var (
	_ scene.Scene   = (*Fixture)(nil)
	_ scene.Tracked = (*Fixture)(nil)
)

func TestParseFixture_MeshDefsFeedMeshes(t *testing.T) {
	f, err := ParseFixture([]byte(birdFixture))
	if err != nil {
		t.Fatalf("ParseFixture failed: %v", err)
	}
	if len(f.MeshDefs) != 2 {
		t.Fatalf("expected 2 mesh definitions, got %d", len(f.MeshDefs))
	}
	var sc scene.Scene = f
	for i, m := range sc.Meshes() {
		if m.Name() != f.MeshDefs[i].MeshName {
			t.Errorf("mesh %d: expected %s, got %s", i, f.MeshDefs[i].MeshName, m.Name())
		}
	}
}

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte(birdFixture))
	if err != nil {
		t.Fatalf("ParseFixture failed: %v", err)
	}

	if start, end := f.FrameRange(); start != 0 || end != 2 {
		t.Errorf("expected frames 0..2, got %d..%d", start, end)
	}

	meshes := f.Meshes()
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	body := meshes[0]
	if body.NumVertices() != 3 || body.NumFaces() != 1 {
		t.Errorf("expected 3 vertices and 1 face, got %d and %d", body.NumVertices(), body.NumFaces())
	}

	face := body.Face(0)
	if face.HasUV != [3]bool{true, false, true} {
		t.Errorf("expected null uv on corner 1, got %v", face.HasUV)
	}
	if face.UV[2] != (scene.TexCoord{U: 0.5, V: 1}) {
		t.Errorf("expected uv (0.5,1), got %v", face.UV[2])
	}

	mat := body.Material(0)
	if mat == nil || mat.Name != "Body F=2" || mat.Texture != "BodyTex" {
		t.Errorf("unexpected material %+v", mat)
	}
	if body.Material(3) != nil {
		t.Error("expected nil for unbound material")
	}

	verts, err := body.Vertices(2)
	if err != nil {
		t.Fatalf("Vertices failed: %v", err)
	}
	if verts[1] != (vec3.T{1, 0, 2}) {
		t.Errorf("expected (1,0,2), got %v", verts[1])
	}

	// A single recorded frame is static.
	beak, err := meshes[1].Vertices(2)
	if err != nil || beak[0] != (vec3.T{5, 0, 0}) {
		t.Errorf("static mesh: got %v, %v", beak, err)
	}

	if _, err := body.Vertices(3); !errors.Is(err, ErrFrameOutOfRange) {
		t.Errorf("expected ErrFrameOutOfRange, got %v", err)
	}

	if keys := f.NoteKeys(); len(keys) != 1 || keys[0].Text != "a Fly 2 10" {
		t.Errorf("unexpected notes %v", keys)
	}

	trackers := f.Trackers()
	if len(trackers) != 1 || trackers[0].Name() != "Tip" {
		t.Fatalf("unexpected trackers %v", trackers)
	}
	loc, rot, err := trackers[0].Transform(1)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if loc != (vec3.T{1, 2, 3}) || rot.W != 1 {
		t.Errorf("expected loc (1,2,3) with identity rotation, got %v %v", loc, rot)
	}
}

func TestParseFixture_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "meshes: [unclosed"},
		{"reversed frames", "frames: {start: 4, end: 2}\nmeshes: []"},
		{"two uv entries", "meshes:\n  - name: A\n    faces:\n      - verts: [0, 1, 2]\n        uv: [[0, 0], [1, 1]]\n"},
		{"tracker without frames", "trackers:\n  - name: T\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFixture([]byte(tt.data)); !errors.Is(err, ErrInvalidFixture) {
				t.Errorf("expected ErrInvalidFixture, got %v", err)
			}
		})
	}
}

func TestOpen_Dispatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bird.yaml")
	if err := os.WriteFile(path, []byte(birdFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(s.Meshes()) != 2 {
		t.Errorf("expected 2 meshes, got %d", len(s.Meshes()))
	}

	if _, err := Open(filepath.Join(dir, "bird.max"), Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadNotes_WithNotes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.yaml")
	notes := "- {frame: 10, text: \"a Land 20\"}\n- frame: 15\n  text: n Thud 0.5\n"
	if err := os.WriteFile(path, []byte(notes), 0o644); err != nil {
		t.Fatal(err)
	}

	keys, err := LoadNotes(path)
	if err != nil {
		t.Fatalf("LoadNotes failed: %v", err)
	}
	if len(keys) != 2 || keys[1].Frame != 15 || keys[1].Text != "n Thud 0.5" {
		t.Fatalf("unexpected keys %v", keys)
	}

	f, err := ParseFixture([]byte(birdFixture))
	if err != nil {
		t.Fatal(err)
	}
	s := WithNotes(f, keys)

	all := s.NoteKeys()
	if len(all) != 3 || all[0].Text != "a Fly 2 10" || all[2].Frame != 15 {
		t.Errorf("expected own notes followed by loaded ones, got %v", all)
	}
	tracked, ok := s.(scene.Tracked)
	if !ok || len(tracked.Trackers()) != 1 {
		t.Error("expected trackers to stay visible")
	}

	if got := WithNotes(f, nil); got != scene.Scene(f) {
		t.Error("expected scene unchanged without extra notes")
	}

	if _, err := LoadNotes(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
