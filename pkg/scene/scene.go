// Package scene defines the view of an animated scene that the exporter
// consumes. Adapters in internal/source implement it for concrete file
// formats; tests implement it with in-memory fixtures.
package scene

import (
	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/u3dexport/pkg/notes"
)

// NoteKey is a text annotation attached to an absolute frame.
type NoteKey = notes.Key

// Scene is an ordered collection of meshes sharing one frame timeline.
type Scene interface {
	// Meshes returns the mesh sources in traversal order. The order fixes
	// vertex slot numbering for the whole export.
	Meshes() []Mesh

	// FrameRange returns the inclusive range of absolute frames.
	FrameRange() (start, end int)

	// NoteKeys returns the timeline annotations in encounter order.
	NoteKeys() []NoteKey
}

// Mesh is one triangle mesh whose vertices may move every frame.
type Mesh interface {
	Name() string
	NumVertices() int
	NumFaces() int
	Face(i int) Face

	// Material returns the material bound to a face material id, or nil.
	Material(id int) *Material

	// Vertices returns the world space position of every vertex at an
	// absolute frame. A result whose length differs from NumVertices means
	// the topology changed at that frame.
	Vertices(frame int) ([]vec3.T, error)
}

// TexCoord is a normalized texture coordinate with V growing upward.
type TexCoord struct {
	U, V float32
}

// Face is a triangle referencing mesh-local vertex indices.
type Face struct {
	Verts      [3]int
	UV         [3]TexCoord
	HasUV      [3]bool // false leaves the corner's packed UV at zero
	MaterialID int
	TwoSided   bool // marks the triangle two-sided when its material sets no flags
}

// Material is what a face material id resolves to.
type Material struct {
	Name    string // may carry flag tokens such as "F=2"
	Texture string
}

// Tracked is implemented by scenes that expose helper nodes whose
// transforms are logged alongside the export.
type Tracked interface {
	Trackers() []Tracker
}

// Tracker is a helper node sampled per frame.
type Tracker interface {
	Name() string
	Transform(frame int) (loc vec3.T, rot mgl32.Quat, err error)
}
