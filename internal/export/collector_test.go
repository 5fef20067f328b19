package export

import (
	"context"
	"errors"
	"testing"

	"github.com/flywave/go3d/vec3"

	"github.com/Faultbox/u3dexport/pkg/scene"
	"github.com/Faultbox/u3dexport/pkg/u3d"
)

func TestCollect_SlotsContiguous(t *testing.T) {
	a := quad("a", 0)
	empty := newFakeMesh("empty", nil, []scene.Face{tri(0, 1, 2)})
	noFaces := newFakeMesh("nofaces", []vec3.T{{0, 0, 0}}, nil)
	b := newFakeMesh("b", []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []scene.Face{tri(2, 1, 0)})

	g, err := Collect(context.Background(), []scene.Mesh{a, empty, noFaces, b}, CollectOptions{})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if g.VertsPerFrame != 7 {
		t.Errorf("expected 7 verts per frame, got %d", g.VertsPerFrame)
	}
	if len(g.Meshes) != 2 {
		t.Fatalf("expected 2 accepted meshes, got %d", len(g.Meshes))
	}
	if len(g.Rejected) != 2 || g.Rejected[0] != "empty" || g.Rejected[1] != "nofaces" {
		t.Errorf("unexpected rejected list %v", g.Rejected)
	}
	if g.Offsets[0] != 0 || g.Offsets[1] != 4 {
		t.Errorf("expected offsets [0 4], got %v", g.Offsets)
	}
	if g.MeshVertices(0) != 4 || g.MeshVertices(1) != 3 {
		t.Errorf("expected mesh vertex counts 4 and 3, got %d and %d", g.MeshVertices(0), g.MeshVertices(1))
	}

	if len(g.Tris) != 3 {
		t.Fatalf("expected 3 triangles, got %d", len(g.Tris))
	}
	want := [3]uint16{6, 5, 4}
	if g.Tris[2].Vertex != want {
		t.Errorf("expected second mesh triangle %v, got %v", want, g.Tris[2].Vertex)
	}

	// Every reference falls inside the slot range.
	for i, tr := range g.Tris {
		for _, v := range tr.Vertex {
			if int(v) >= g.VertsPerFrame {
				t.Errorf("triangle %d references slot %d of %d", i, v, g.VertsPerFrame)
			}
		}
	}
}

func TestCollect_UVAndMaterials(t *testing.T) {
	m := quad("m", 0)
	m.faces[0].UV = [3]scene.TexCoord{{U: 0.5, V: 0}, {U: 0.25, V: 0.5}, {U: 0, V: 0}}
	m.faces[0].HasUV = [3]bool{true, true, false}
	m.faces[0].MaterialID = 2
	m.faces[1].MaterialID = 0
	m.materials = map[int]*scene.Material{
		2: {Name: "Skin F=3", Texture: "SkinTex"},
	}

	g, err := Collect(context.Background(), []scene.Mesh{m}, CollectOptions{})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	t0 := g.Tris[0]
	if t0.Tex[0] != (u3d.MeshUV{U: 128, V: 255}) {
		t.Errorf("corner 0: expected {128 255}, got %v", t0.Tex[0])
	}
	if t0.Tex[1] != (u3d.MeshUV{U: 64, V: 127}) {
		t.Errorf("corner 1: expected {64 127}, got %v", t0.Tex[1])
	}
	if t0.Tex[2] != (u3d.MeshUV{}) {
		t.Errorf("corner 2 without UV: expected zero, got %v", t0.Tex[2])
	}
	if t0.TextureNum != 2 || t0.Flags != 3 {
		t.Errorf("expected texture 2 flags 3, got %d/%d", t0.TextureNum, t0.Flags)
	}

	t1 := g.Tris[1]
	if t1.TextureNum != 0 || t1.Flags != 0 {
		t.Errorf("face without material: expected 0/0, got %d/%d", t1.TextureNum, t1.Flags)
	}

	slots := g.Materials.Slots()
	if len(slots) != 3 {
		t.Fatalf("expected 3 material slots, got %d", len(slots))
	}
	if slots[0] != nil || slots[1] != nil || slots[2].Texture != "SkinTex" {
		t.Errorf("unexpected slots %v", slots)
	}
}

func TestCollect_TwoSidedFlag(t *testing.T) {
	m := quad("m", 0)
	m.faces[0].TwoSided = true
	m.faces[0].MaterialID = 1
	m.faces[1].TwoSided = true
	m.faces[1].MaterialID = 2
	m.materials = map[int]*scene.Material{
		1: {Name: "Leaf", Texture: "LeafTex"},
		2: {Name: "Glass F=2", Texture: "GlassTex"},
	}

	g, err := Collect(context.Background(), []scene.Mesh{m}, CollectOptions{})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if g.Tris[0].Flags != u3d.FlagTwoSided {
		t.Errorf("expected two-sided flag %d, got %d", u3d.FlagTwoSided, g.Tris[0].Flags)
	}
	if g.Tris[1].Flags != 2 {
		t.Errorf("expected material flags 2 to win, got %d", g.Tris[1].Flags)
	}
}

func TestCollect_InvalidFace(t *testing.T) {
	tests := []struct {
		name string
		face scene.Face
	}{
		{"vertex past end", tri(0, 1, 4)},
		{"negative vertex", tri(-1, 1, 2)},
		{"material out of range", scene.Face{Verts: [3]int{0, 1, 2}, MaterialID: 256}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quad("bad", 0)
			m.faces[1] = tt.face
			_, err := Collect(context.Background(), []scene.Mesh{m}, CollectOptions{})
			if !errors.Is(err, ErrInvalidFace) {
				t.Errorf("expected ErrInvalidFace, got %v", err)
			}
		})
	}
}

func TestCollect_MirroredCoordsFlipWinding(t *testing.T) {
	m := quad("m", 0)
	m.faces[0].UV = [3]scene.TexCoord{{U: 0, V: 0}, {U: 0.25, V: 0}, {U: 0.5, V: 0}}
	m.faces[0].HasUV = [3]bool{true, true, true}

	coords := scene.CoordSystem{X: scene.NegX, Y: scene.PosY, Z: scene.PosZ}
	g, err := Collect(context.Background(), []scene.Mesh{m}, CollectOptions{Coords: coords})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if g.Tris[0].Vertex != [3]uint16{0, 2, 1} {
		t.Errorf("expected winding {0 2 1}, got %v", g.Tris[0].Vertex)
	}
	if g.Tris[0].Tex[1].U != 128 || g.Tris[0].Tex[2].U != 64 {
		t.Errorf("UVs did not follow their corners: %v", g.Tris[0].Tex)
	}
}

func TestCollect_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, []scene.Mesh{quad("m", 0)}, CollectOptions{})
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		want uint8
	}{
		{"", 0},
		{"Plain", 0},
		{"Skin F=2", 2},
		{"Skin,f=5;other", 5},
		{"F=1\tF=4", 4},
		{"F=x", 0},
		{"F=12abc", 12},
		{"F=300", 44},
		{"FF=3", 0},
		{"=3", 0},
	}
	for _, tc := range tests {
		if got := ParseFlags(tc.name); got != tc.want {
			t.Errorf("ParseFlags(%q) = %d, expected %d", tc.name, got, tc.want)
		}
	}
}

func TestMaterialTable_LastWriteWins(t *testing.T) {
	tbl := NewMaterialTable(nil)
	if tbl.Len() != 0 || len(tbl.Slots()) != 0 {
		t.Fatalf("expected empty table, got %d slots", tbl.Len())
	}

	tbl.Bind(1, &scene.Material{Name: "first"})
	tbl.Bind(1, &scene.Material{Name: "second"})
	tbl.Bind(4, &scene.Material{Name: "far"})
	tbl.Bind(2, nil)

	if got := tbl.Get(1); got == nil || got.Name != "second" {
		t.Errorf("expected last bind to win, got %v", got)
	}
	slots := tbl.Slots()
	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
	for _, id := range []int{0, 2, 3} {
		if slots[id] != nil {
			t.Errorf("slot %d: expected nil, got %v", id, slots[id])
		}
	}
	if slots[4].Name != "far" {
		t.Errorf("slot 4: expected far, got %v", slots[4])
	}
}
