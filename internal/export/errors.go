// Package export turns a scene into the packed vertex animation model.
//
// The pipeline runs strictly in order: Collect assigns vertex slots and
// builds triangle records, Sample captures every slot on every frame,
// Optimize fits the positions into the packed range, and the packed words
// are written by the u3d package.
package export

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline errors.
var (
	ErrInvalidFrameRange   = errors.New("invalid frame range")
	ErrVertexCountMismatch = errors.New("vertex count mismatch")
	ErrInvalidFace         = errors.New("invalid face")
	ErrCanceled            = errors.New("export canceled")
	ErrNonFinitePosition   = errors.New("non-finite vertex position")
)

// FrameError reports a mesh whose vertex count on a frame differs from the
// count fixed at collection time.
type FrameError struct {
	Frame int
	Mesh  string
	Got   int
	Want  int
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: mesh %q sampled %d vertices, expected %d", e.Frame, e.Mesh, e.Got, e.Want)
}

func (e *FrameError) Unwrap() error {
	return ErrVertexCountMismatch
}

// checkCanceled returns ErrCanceled wrapping the context error once ctx is
// done.
func checkCanceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return nil
}
