package scene

import (
	"errors"
	"testing"

	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"
)

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in   string
		want Axis
	}{
		{"x", PosX},
		{"X", PosX},
		{"+y", PosY},
		{"-z", NegZ},
		{" -X ", NegX},
	}
	for _, tc := range tests {
		got, err := ParseAxis(tc.in)
		if err != nil {
			t.Errorf("ParseAxis(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAxis(%q) = %v, expected %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseAxis("w"); !errors.Is(err, ErrInvalidCoordSystem) {
		t.Errorf("expected ErrInvalidCoordSystem, got %v", err)
	}
}

func TestCoordSystem_Apply(t *testing.T) {
	p := vec3.T{1, 2, 3}

	if got := Identity().Apply(p); got != p {
		t.Errorf("identity: expected %v, got %v", p, got)
	}

	// Y-up to Z-up: output Z takes source Y, output Y takes -Z.
	c := CoordSystem{X: PosX, Y: NegZ, Z: PosY}
	want := vec3.T{1, -3, 2}
	if got := c.Apply(p); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCoordSystem_Flips(t *testing.T) {
	tests := []struct {
		c    CoordSystem
		want bool
	}{
		{Identity(), false},
		{CoordSystem{X: NegX, Y: PosY, Z: PosZ}, true},
		{CoordSystem{X: NegX, Y: NegY, Z: PosZ}, false},
		{CoordSystem{X: PosY, Y: PosX, Z: PosZ}, true},
		{CoordSystem{X: PosY, Y: PosZ, Z: PosX}, false},
		{CoordSystem{X: PosX, Y: NegZ, Z: PosY}, false},
		{CoordSystem{X: PosX, Y: PosZ, Z: PosY}, true},
	}
	for _, tc := range tests {
		if got := tc.c.Flips(); got != tc.want {
			t.Errorf("%v.Flips() = %v, expected %v", tc.c, got, tc.want)
		}
	}
}

func TestCoordSystem_Validate(t *testing.T) {
	if err := Identity().Validate(); err != nil {
		t.Errorf("identity should be valid: %v", err)
	}
	if err := (CoordSystem{X: PosX, Y: NegX, Z: PosZ}).Validate(); !errors.Is(err, ErrInvalidCoordSystem) {
		t.Errorf("duplicate axis: expected ErrInvalidCoordSystem, got %v", err)
	}
	if err := (CoordSystem{}).Validate(); !errors.Is(err, ErrInvalidCoordSystem) {
		t.Errorf("zero value: expected ErrInvalidCoordSystem, got %v", err)
	}
	if !(CoordSystem{}).IsZero() {
		t.Error("expected zero value to report IsZero")
	}
}

func TestParseCoordSystem(t *testing.T) {
	c, err := ParseCoordSystem("x", "-z", "y")
	if err != nil {
		t.Fatalf("ParseCoordSystem failed: %v", err)
	}
	if c != (CoordSystem{X: PosX, Y: NegZ, Z: PosY}) {
		t.Errorf("unexpected result %v", c)
	}
	if _, err := ParseCoordSystem("x", "x", "z"); err == nil {
		t.Error("expected error for repeated axis")
	}
}

func TestCoordSystem_ApplyRotation(t *testing.T) {
	// 90 degrees about source Y becomes 90 degrees about output Z when
	// source Y feeds output Z.
	c := CoordSystem{X: PosX, Y: NegZ, Z: PosY}
	q := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	got := c.ApplyRotation(q)

	// Rotating the remapped vector must match remapping the rotated one.
	v := vec3.T{1, 0, 0}
	rv := q.Rotate(mgl32.Vec3(v))
	want := c.Apply(vec3.T(rv))
	gv := got.Rotate(mgl32.Vec3(c.Apply(v)))
	for i := 0; i < 3; i++ {
		if d := gv[i] - want[i]; d > 1e-5 || d < -1e-5 {
			t.Fatalf("expected %v, got %v", want, gv)
		}
	}

	if Identity().ApplyRotation(q) != q {
		t.Error("identity remap changed the rotation")
	}
}
