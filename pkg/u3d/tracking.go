package u3d

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"
)

// Track holds the per-frame world transform of a helper node. Tracks are
// written to the export log so scripts can attach effects to them.
type Track struct {
	Name string
	Loc  []vec3.T
	Rot  []mgl32.Quat
}

// WriteTracking writes Loc, Quat and Euler (degrees) lines for every frame
// of every track.
func WriteTracking(w io.Writer, tracks []Track) error {
	bw := bufio.NewWriter(w)
	for _, tr := range tracks {
		for t, p := range tr.Loc {
			fmt.Fprintf(bw, "%sLoc[%d]=(X=%f,Y=%f,Z=%f)\n", tr.Name, t, p[0], p[1], p[2])
		}
		for t, q := range tr.Rot {
			fmt.Fprintf(bw, "%sQuat[%d]=(W=%f,X=%f,Y=%f,Z=%f)\n", tr.Name, t, q.W, q.V[0], q.V[1], q.V[2])
		}
		for t, q := range tr.Rot {
			e := EulerDegrees(q)
			fmt.Fprintf(bw, "%sEuler[%d]=(X=%f,Y=%f,Z=%f)\n", tr.Name, t, e[0], e[1], e[2])
		}
	}
	return bw.Flush()
}

// EulerDegrees converts a rotation to X, Y, Z angles in degrees, applied in
// X then Y then Z order.
func EulerDegrees(q mgl32.Quat) [3]float32 {
	q = q.Normalize()
	w, x, y, z := float64(q.W), float64(q.V[0]), float64(q.V[1]), float64(q.V[2])

	rx := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sinY := 2 * (w*y - z*x)
	var ry float64
	switch {
	case sinY >= 1:
		ry = math.Pi / 2
	case sinY <= -1:
		ry = -math.Pi / 2
	default:
		ry = math.Asin(sinY)
	}
	rz := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	const toDeg = 180 / math.Pi
	return [3]float32{float32(rx * toDeg), float32(ry * toDeg), float32(rz * toDeg)}
}
