package u3d

import (
	"math"

	"github.com/flywave/go3d/vec3"
)

// Packed vertex layout: X in bits 0-10, Y in bits 11-21, Z in bits 22-31.
const (
	xBits = 11
	yBits = 11
	zBits = 10

	xMask = 1<<xBits - 1 // 0x7FF
	yMask = 1<<yBits - 1 // 0x7FF
	zMask = 1<<zBits - 1 // 0x3FF

	yShift = xBits
	zShift = xBits + yBits
)

// Representable range of each signed field.
const (
	MinX, MaxX = -(1 << (xBits - 1)), 1<<(xBits-1) - 1
	MinY, MaxY = -(1 << (yBits - 1)), 1<<(yBits-1) - 1
	MinZ, MaxZ = -(1 << (zBits - 1)), 1<<(zBits-1) - 1
)

// PackVertex truncates each coordinate toward zero and masks it into its
// field. Values outside a field's range wrap: X=1024 stores 0x400 and reads
// back as -1024, X=2048 stores 0.
func PackVertex(p vec3.T) uint32 {
	return pack(truncate(p[0]), truncate(p[1]), truncate(p[2]))
}

// PackVertexClamped is PackVertex with saturation to the field ranges
// instead of wrapping.
func PackVertexClamped(p vec3.T) uint32 {
	return pack(
		clamp(truncate(p[0]), MinX, MaxX),
		clamp(truncate(p[1]), MinY, MaxY),
		clamp(truncate(p[2]), MinZ, MaxZ),
	)
}

// Overflows reports whether PackVertex would wrap any field of p.
func Overflows(p vec3.T) bool {
	x, y, z := truncate(p[0]), truncate(p[1]), truncate(p[2])
	return x < MinX || x > MaxX || y < MinY || y > MaxY || z < MinZ || z > MaxZ
}

// UnpackVertex sign-extends the three fields of a packed vertex.
func UnpackVertex(v uint32) (x, y, z int32) {
	x = signExtend(v&xMask, xBits)
	y = signExtend((v>>yShift)&yMask, yBits)
	z = signExtend((v>>zShift)&zMask, zBits)
	return x, y, z
}

func pack(x, y, z int64) uint32 {
	return uint32(x)&xMask |
		(uint32(y)&yMask)<<yShift |
		(uint32(z)&zMask)<<zShift
}

// truncate converts toward zero. NaN and infinities become 0 so the
// conversion stays deterministic across platforms.
func truncate(f float32) int64 {
	d := float64(f)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	if d >= math.MaxInt32 || d <= math.MinInt32 {
		// Only the low bits survive masking; reduce before converting.
		d = math.Mod(math.Trunc(d), 1<<32)
	}
	return int64(d)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
