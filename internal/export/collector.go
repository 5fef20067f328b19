package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/u3dexport/pkg/scene"
	"github.com/Faultbox/u3dexport/pkg/u3d"
)

// Geometry is the collected topology of all accepted meshes.
type Geometry struct {
	Meshes        []scene.Mesh // accepted meshes in slot order
	Offsets       []int        // first slot of each accepted mesh
	Tris          []u3d.MeshTri
	VertsPerFrame int
	Materials     *MaterialTable
	Rejected      []string // names of meshes without vertices or faces
}

// CollectOptions configures Collect.
type CollectOptions struct {
	Coords scene.CoordSystem // only its handedness matters here
	Logger *zap.Logger
}

// Collect assigns vertex slots and builds triangle records. Meshes with no
// vertices or no faces are skipped and take no slots.
func Collect(ctx context.Context, meshes []scene.Mesh, opts CollectOptions) (*Geometry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	coords := opts.Coords
	if coords.IsZero() {
		coords = scene.Identity()
	}
	flip := coords.Flips()

	g := &Geometry{Materials: NewMaterialTable(log)}

	for _, m := range meshes {
		if err := checkCanceled(ctx); err != nil {
			return nil, err
		}

		nv, nf := m.NumVertices(), m.NumFaces()
		if nv <= 0 || nf <= 0 {
			log.Warn("mesh skipped",
				zap.String("mesh", m.Name()),
				zap.Int("vertices", nv),
				zap.Int("faces", nf))
			g.Rejected = append(g.Rejected, m.Name())
			continue
		}

		offset := g.VertsPerFrame
		if offset+nv > u3d.MaxVertices {
			return nil, fmt.Errorf("mesh %q: %w: %d", m.Name(), u3d.ErrTooManyVertices, offset+nv)
		}
		if len(g.Tris)+nf > u3d.MaxPolys {
			return nil, fmt.Errorf("mesh %q: %w: %d", m.Name(), u3d.ErrTooManyPolys, len(g.Tris)+nf)
		}

		for i := 0; i < nf; i++ {
			tri, err := g.buildTri(m, m.Face(i), offset, nv)
			if err != nil {
				return nil, fmt.Errorf("mesh %q face %d: %w", m.Name(), i, err)
			}
			if flip {
				tri.Vertex[1], tri.Vertex[2] = tri.Vertex[2], tri.Vertex[1]
				tri.Tex[1], tri.Tex[2] = tri.Tex[2], tri.Tex[1]
			}
			g.Tris = append(g.Tris, tri)
		}

		g.Meshes = append(g.Meshes, m)
		g.Offsets = append(g.Offsets, offset)
		g.VertsPerFrame += nv

		log.Debug("mesh collected",
			zap.String("mesh", m.Name()),
			zap.Int("first_slot", offset),
			zap.Int("vertices", nv),
			zap.Int("faces", nf))
	}

	log.Info("geometry collected",
		zap.Int("meshes", len(g.Meshes)),
		zap.Int("skipped", len(g.Rejected)),
		zap.Int("triangles", len(g.Tris)),
		zap.Int("verts_per_frame", g.VertsPerFrame),
		zap.Int("material_slots", g.Materials.Len()))

	return g, nil
}

// MeshVertices returns the vertex count fixed for the i-th accepted mesh.
func (g *Geometry) MeshVertices(i int) int {
	if i+1 < len(g.Offsets) {
		return g.Offsets[i+1] - g.Offsets[i]
	}
	return g.VertsPerFrame - g.Offsets[i]
}

func (g *Geometry) buildTri(m scene.Mesh, f scene.Face, offset, nv int) (u3d.MeshTri, error) {
	var tri u3d.MeshTri

	if f.MaterialID < 0 || f.MaterialID > 0xFF {
		return tri, fmt.Errorf("%w: material id %d", ErrInvalidFace, f.MaterialID)
	}
	tri.TextureNum = uint8(f.MaterialID)
	if mat := m.Material(f.MaterialID); mat != nil {
		tri.Flags = ParseFlags(mat.Name)
		g.Materials.Bind(f.MaterialID, mat)
	}
	if f.TwoSided && tri.Flags == 0 {
		tri.Flags = u3d.FlagTwoSided
	}

	for c, v := range f.Verts {
		if v < 0 || v >= nv {
			return tri, fmt.Errorf("%w: vertex %d of %d", ErrInvalidFace, v, nv)
		}
		tri.Vertex[c] = uint16(offset + v)
		if f.HasUV[c] {
			tri.Tex[c] = u3d.NewMeshUV(f.UV[c].U, f.UV[c].V)
		}
	}
	return tri, nil
}
