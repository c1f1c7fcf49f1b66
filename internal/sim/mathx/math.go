package mathx

import "math"

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

// Cell floor-divides a world coordinate by a positive cell size.
func Cell(v, size float32) int32 {
	return int32(math.Floor(float64(v) / float64(size)))
}

func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Len2 is the length of a ground-plane vector.
func Len2(x, z float32) float32 {
	return float32(math.Sqrt(float64(x*x + z*z)))
}

// DistSq is the squared ground-plane distance between two points.
func DistSq(ax, az, bx, bz float32) float32 {
	dx, dz := bx-ax, bz-az
	return dx*dx + dz*dz
}

func Dist(ax, az, bx, bz float32) float32 {
	return Len2(bx-ax, bz-az)
}

// Normalize returns the unit vector of (x, z), or ok=false for a
// zero-length input.
func Normalize(x, z float32) (nx, nz float32, ok bool) {
	l := Len2(x, z)
	if l == 0 {
		return 0, 0, false
	}
	return x / l, z / l, true
}

// Yaw is the rotation around the vertical axis that faces (x, z).
func Yaw(x, z float32) float32 {
	return float32(math.Atan2(float64(x), float64(z)))
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
