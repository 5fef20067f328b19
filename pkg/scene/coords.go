package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidCoordSystem is returned for axis remaps that are not a signed
// permutation of X, Y and Z.
var ErrInvalidCoordSystem = errors.New("invalid coordinate system")

// Axis selects a source axis, optionally negated. The zero value is invalid.
type Axis int8

// Source axes.
const (
	NegZ Axis = -3
	NegY Axis = -2
	NegX Axis = -1
	PosX Axis = 1
	PosY Axis = 2
	PosZ Axis = 3
)

var axisNames = map[Axis]string{
	PosX: "x", NegX: "-x",
	PosY: "y", NegY: "-y",
	PosZ: "z", NegZ: "-z",
}

// ParseAxis parses "x", "-y", "+z" and so on.
func ParseAxis(s string) (Axis, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "+")
	for a, name := range axisNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown axis %q", ErrInvalidCoordSystem, s)
}

func (a Axis) String() string {
	if name, ok := axisNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Axis(%d)", int8(a))
}

func (a Axis) index() int {
	if a < 0 {
		return int(-a) - 1
	}
	return int(a) - 1
}

func (a Axis) sign() float32 {
	if a < 0 {
		return -1
	}
	return 1
}

// CoordSystem maps source coordinates into output coordinates. Each field
// names the source axis that feeds the corresponding output axis.
type CoordSystem struct {
	X, Y, Z Axis
}

// Identity returns the remap that leaves positions unchanged.
func Identity() CoordSystem {
	return CoordSystem{X: PosX, Y: PosY, Z: PosZ}
}

// ParseCoordSystem builds a remap from three axis names.
func ParseCoordSystem(x, y, z string) (CoordSystem, error) {
	var c CoordSystem
	var err error
	if c.X, err = ParseAxis(x); err != nil {
		return c, err
	}
	if c.Y, err = ParseAxis(y); err != nil {
		return c, err
	}
	if c.Z, err = ParseAxis(z); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// IsZero reports whether c is the unset zero value.
func (c CoordSystem) IsZero() bool {
	return c == CoordSystem{}
}

// Validate checks that every source axis is used exactly once.
func (c CoordSystem) Validate() error {
	var seen [3]bool
	for _, a := range [3]Axis{c.X, c.Y, c.Z} {
		if _, ok := axisNames[a]; !ok {
			return fmt.Errorf("%w: %v", ErrInvalidCoordSystem, a)
		}
		if seen[a.index()] {
			return fmt.Errorf("%w: axis %s used twice", ErrInvalidCoordSystem, Axis(a.index()+1))
		}
		seen[a.index()] = true
	}
	return nil
}

// Apply remaps one position.
func (c CoordSystem) Apply(p vec3.T) vec3.T {
	return vec3.T{
		c.X.sign() * p[c.X.index()],
		c.Y.sign() * p[c.Y.index()],
		c.Z.sign() * p[c.Z.index()],
	}
}

// ApplyRotation expresses a source space rotation in output space.
func (c CoordSystem) ApplyRotation(q mgl32.Quat) mgl32.Quat {
	if c == Identity() {
		return q
	}
	var m mgl32.Mat3
	for row, a := range [3]Axis{c.X, c.Y, c.Z} {
		m[a.index()*3+row] = a.sign()
	}
	r := m.Mul3(q.Mat4().Mat3()).Mul3(m.Transpose())
	return mgl32.Mat4ToQuat(r.Mat4()).Normalize()
}

// Flips reports whether the remap mirrors space, which reverses triangle
// winding.
func (c CoordSystem) Flips() bool {
	neg := c.X < 0
	if c.Y < 0 {
		neg = !neg
	}
	if c.Z < 0 {
		neg = !neg
	}
	// An odd permutation of the source axes mirrors as well.
	perm := [3]int{c.X.index(), c.Y.index(), c.Z.index()}
	inversions := 0
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if perm[i] > perm[j] {
				inversions++
			}
		}
	}
	if inversions%2 == 1 {
		neg = !neg
	}
	return neg
}

func (c CoordSystem) String() string {
	return fmt.Sprintf("(%s,%s,%s)", c.X, c.Y, c.Z)
}
