package u3d

import (
	"math"
	"testing"

	"github.com/flywave/go3d/vec3"
)

func TestPackVertex_RoundTrip(t *testing.T) {
	tests := []struct {
		in      vec3.T
		x, y, z int32
	}{
		{vec3.T{5, -3, 2}, 5, -3, 2},
		{vec3.T{0, 0, 0}, 0, 0, 0},
		{vec3.T{1023, 1023, 511}, 1023, 1023, 511},
		{vec3.T{-1023, -1023, -511}, -1023, -1023, -511},
		{vec3.T{-1024, -1024, -512}, -1024, -1024, -512},
		{vec3.T{5.9, -3.9, 2.5}, 5, -3, 2}, // truncation toward zero
	}

	for _, tc := range tests {
		packed := PackVertex(tc.in)
		x, y, z := UnpackVertex(packed)
		if x != tc.x || y != tc.y || z != tc.z {
			t.Errorf("PackVertex(%v) unpacked to (%d,%d,%d), expected (%d,%d,%d)",
				tc.in, x, y, z, tc.x, tc.y, tc.z)
		}
	}
}

func TestPackVertex_BitLayout(t *testing.T) {
	packed := PackVertex(vec3.T{5, -3, 2})

	if got := packed & 0x7FF; got != 5 {
		t.Errorf("X field: expected 5, got %#x", got)
	}
	// -3 in 11 bits is 0x7FD
	if got := (packed >> 11) & 0x7FF; got != 0x7FD {
		t.Errorf("Y field: expected 0x7fd, got %#x", got)
	}
	if got := packed >> 22; got != 2 {
		t.Errorf("Z field: expected 2, got %#x", got)
	}
}

func TestPackVertex_Wrap(t *testing.T) {
	tests := []struct {
		name    string
		in      vec3.T
		x, y, z int32
	}{
		{"x 1024 wraps to -1024", vec3.T{1024, 0, 0}, -1024, 0, 0},
		{"x 2048 wraps to 0", vec3.T{2048, 0, 0}, 0, 0, 0},
		{"y 1025 wraps to -1023", vec3.T{0, 1025, 0}, 0, -1023, 0},
		{"z 512 wraps to -512", vec3.T{0, 0, 512}, 0, 0, -512},
		{"z 1024 wraps to 0", vec3.T{0, 0, 1024}, 0, 0, 0},
		{"x -1025 wraps to 1023", vec3.T{-1025, 0, 0}, 1023, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := UnpackVertex(PackVertex(tt.in))
			if x != tt.x || y != tt.y || z != tt.z {
				t.Errorf("expected (%d,%d,%d), got (%d,%d,%d)", tt.x, tt.y, tt.z, x, y, z)
			}
		})
	}

	if got := PackVertex(vec3.T{1024, 0, 0}); got != 0x400 {
		t.Errorf("X=1024: expected raw 0x400, got %#x", got)
	}
	if got := PackVertex(vec3.T{2048, 0, 0}); got != 0 {
		t.Errorf("X=2048: expected raw 0, got %#x", got)
	}
}

func TestPackVertexClamped(t *testing.T) {
	x, y, z := UnpackVertex(PackVertexClamped(vec3.T{1500, -5000, 600}))
	if x != MaxX || y != MinY || z != MaxZ {
		t.Errorf("expected (%d,%d,%d), got (%d,%d,%d)", MaxX, MinY, MaxZ, x, y, z)
	}

	x, y, z = UnpackVertex(PackVertexClamped(vec3.T{5, -3, 2}))
	if x != 5 || y != -3 || z != 2 {
		t.Errorf("in-range values changed: (%d,%d,%d)", x, y, z)
	}
}

func TestPackVertex_NonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	if got := PackVertex(vec3.T{nan, inf, -inf}); got != 0 {
		t.Errorf("expected non-finite input to pack as 0, got %#x", got)
	}
}

func TestConvertUV(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{0, 0},
		{0.5, 128},
		{0.999, 255},
		{0.25, 64},
		{1.0, 0}, // wraps like the 8-bit cast
	}
	for _, tc := range tests {
		if got := ConvertUV(tc.in); got != tc.want {
			t.Errorf("ConvertUV(%v) = %d, expected %d", tc.in, got, tc.want)
		}
	}
}

func TestNewMeshUV_InvertsV(t *testing.T) {
	uv := NewMeshUV(0.25, 0.25)
	if uv.U != 64 {
		t.Errorf("expected U 64, got %d", uv.U)
	}
	if uv.V != 255-64 {
		t.Errorf("expected V 191, got %d", uv.V)
	}

	uv = NewMeshUV(0, 0)
	if uv.V != 255 {
		t.Errorf("expected V 255 at v=0, got %d", uv.V)
	}
}

func TestOverflows(t *testing.T) {
	tests := []struct {
		in   vec3.T
		want bool
	}{
		{vec3.T{1023.9, -1024, 511.5}, false},
		{vec3.T{1024, 0, 0}, true},
		{vec3.T{0, -1025, 0}, true},
		{vec3.T{0, 0, 512}, true},
		{vec3.T{0, 0, -512.9}, false},
	}
	for _, tc := range tests {
		if got := Overflows(tc.in); got != tc.want {
			t.Errorf("Overflows(%v) = %v, expected %v", tc.in, got, tc.want)
		}
	}
}
