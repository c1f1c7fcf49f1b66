package mathx

// Rand is a splitmix64 generator. The world owns one per seed so spawns and
// respawns replay identically from a journal.
type Rand struct {
	state uint64
}

func NewRand(seed int64) *Rand {
	return &Rand{state: uint64(seed)}
}

func (r *Rand) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// Range returns a value in [lo, hi).
func (r *Rand) Range(lo, hi float32) float32 {
	if hi <= lo {
		return lo
	}
	v := lo + float32(r.Float64())*(hi-lo)
	if v >= hi {
		return lo
	}
	return v
}

// Intn returns a value in [0, n). n <= 0 yields 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Uint64() % uint64(n))
}
