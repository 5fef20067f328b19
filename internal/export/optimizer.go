package export

import (
	"math"

	"github.com/flywave/go3d/vec3"
)

// Limits are the largest magnitudes the packed X, Y and Z fields hold.
var Limits = vec3.T{1023, 1023, 511}

// Transform is the bounding transform applied to every sampled position:
// subtract Offset, then multiply by Scale.
type Transform struct {
	Offset vec3.T
	Scale  vec3.T
}

// IdentityTransform leaves positions unchanged.
func IdentityTransform() Transform {
	return Transform{Scale: vec3.T{1, 1, 1}}
}

// IsIdentity reports whether t changes nothing.
func (t Transform) IsIdentity() bool {
	return t == IdentityTransform()
}

// ComputeTransform fits the bounding box of points into Limits. It returns
// the identity when maximize is false or fewer than two points exist. An
// axis with zero extent keeps scale 1.
func ComputeTransform(points []vec3.T, maximize bool) Transform {
	if !maximize || len(points) < 2 {
		return IdentityTransform()
	}

	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
	}

	var t Transform
	for a := 0; a < 3; a++ {
		t.Offset[a] = (lo[a] + hi[a]) * 0.5
		extent := max(abs32(hi[a]-t.Offset[a]), abs32(lo[a]-t.Offset[a]))
		if extent == 0 || math.IsInf(float64(Limits[a]/extent), 0) {
			t.Scale[a] = 1
			continue
		}
		t.Scale[a] = Limits[a] / extent
	}
	return t
}

// Apply transforms points in place.
func (t Transform) Apply(points []vec3.T) {
	if t.IsIdentity() {
		return
	}
	for i := range points {
		p := &points[i]
		for a := 0; a < 3; a++ {
			p[a] = (p[a] - t.Offset[a]) * t.Scale[a]
		}
	}
}

// Optimize computes the bounding transform and applies it in place.
func Optimize(points []vec3.T, maximize bool) Transform {
	t := ComputeTransform(points, maximize)
	t.Apply(points)
	return t
}

// Origin is the mesh origin that undoes the offset in packed units.
func (t Transform) Origin() vec3.T {
	return vec3.T{
		-t.Offset[0] * t.Scale[0],
		-t.Offset[1] * t.Scale[1],
		-t.Offset[2] * t.Scale[2],
	}
}

// MeshScale is the import scale that undoes the fit.
func (t Transform) MeshScale() vec3.T {
	return vec3.T{1 / t.Scale[0], 1 / t.Scale[1], 1 / t.Scale[2]}
}

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}
