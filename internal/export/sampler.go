package export

import (
	"context"
	"fmt"
	"math"

	"github.com/flywave/go3d/vec3"
	"go.uber.org/zap"

	"github.com/Faultbox/u3dexport/pkg/scene"
	"github.com/Faultbox/u3dexport/pkg/u3d"
)

// FrameRange is an inclusive range of absolute frames.
type FrameRange struct {
	Start int
	End   int
}

// Count returns the number of frames in the range.
func (r FrameRange) Count() int {
	return r.End - r.Start + 1
}

// Validate rejects empty, reversed and oversized ranges.
func (r FrameRange) Validate() error {
	if r.End < r.Start || r.Count() <= 0 {
		return fmt.Errorf("%w: %d to %d", ErrInvalidFrameRange, r.Start, r.End)
	}
	if r.Count() > u3d.MaxFrames {
		return fmt.Errorf("%w: %d frames exceeds %d", ErrInvalidFrameRange, r.Count(), u3d.MaxFrames)
	}
	return nil
}

// SampleOptions configures Sample.
type SampleOptions struct {
	Frames FrameRange
	Coords scene.CoordSystem
	Logger *zap.Logger
}

// Sample captures every slot of g on every frame of the range. The result
// holds all slots of the first frame, then all slots of the next, and so on.
func Sample(ctx context.Context, g *Geometry, opts SampleOptions) ([]vec3.T, error) {
	if err := opts.Frames.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	coords := opts.Coords
	if coords.IsZero() {
		coords = scene.Identity()
	}

	points := make([]vec3.T, 0, g.VertsPerFrame*opts.Frames.Count())

	for frame := opts.Frames.Start; frame <= opts.Frames.End; frame++ {
		if err := checkCanceled(ctx); err != nil {
			return nil, err
		}

		sampled := 0
		for i, m := range g.Meshes {
			if err := checkCanceled(ctx); err != nil {
				return nil, err
			}
			verts, err := m.Vertices(frame)
			if err != nil {
				return nil, fmt.Errorf("frame %d, mesh %q: %w", frame, m.Name(), err)
			}
			if want := g.MeshVertices(i); len(verts) != want {
				return nil, &FrameError{Frame: frame, Mesh: m.Name(), Got: len(verts), Want: want}
			}
			for j, v := range verts {
				if !finite(v) {
					return nil, fmt.Errorf("frame %d, mesh %q vertex %d: %w: %v", frame, m.Name(), j, ErrNonFinitePosition, v)
				}
				points = append(points, coords.Apply(v))
			}
			sampled += len(verts)
		}

		log.Debug("frame sampled", zap.Int("frame", frame), zap.Int("vertices", sampled))
	}

	log.Info("animation sampled",
		zap.Int("start", opts.Frames.Start),
		zap.Int("end", opts.Frames.End),
		zap.Int("positions", len(points)))

	return points, nil
}

func finite(v vec3.T) bool {
	for _, c := range v {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return false
		}
	}
	return true
}
