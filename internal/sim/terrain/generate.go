package terrain

import "math"

// GeneratorVersion changes whenever ProceduralHeight changes shape, so
// cached heightmaps from older builds are regenerated.
const GeneratorVersion = 1

// Shape of the procedural terrain around the world center.
const (
	playableRadius   = 600.0
	transitionRadius = 400.0
	mountainStart    = 2000.0
	mountainRamp     = 2000.0
	mountainHeight   = 150.0
)

// ProceduralHeight is the analytic terrain function: a nearly flat town core,
// layered sine/cosine hills, and a mountain rim far from the center.
func ProceduralHeight(x, z, worldWidth, worldHeight float32) float32 {
	fx, fz := float64(x), float64(z)
	dx := fx - float64(worldWidth)/2
	dz := fz - float64(worldHeight)/2
	dist := math.Sqrt(dx*dx + dz*dz)

	flatness := 1.0
	switch {
	case dist < playableRadius:
		flatness = 0.1
	case dist < playableRadius+transitionRadius:
		t := (dist - playableRadius) / transitionRadius
		flatness = 0.1 + t*0.9
	}

	h := 0.0

	const f1 = 0.0008
	h += math.Sin(fx*f1*1.1) * math.Cos(fz*f1*0.9) * 80
	h += math.Sin(fx*f1*0.7+1.3) * math.Sin(fz*f1*1.2+0.7) * 60

	const f2 = 0.003
	h += math.Sin(fx*f2*1.3+2.1) * math.Cos(fz*f2*0.8+1.4) * 25
	h += math.Cos(fx*f2*0.9) * math.Sin(fz*f2*1.1+0.5) * 20

	const f3 = 0.01
	h += math.Sin(fx*f3*1.7+0.3) * math.Cos(fz*f3*1.4+2.1) * 8
	h += math.Cos(fx*f3*1.2+1.8) * math.Sin(fz*f3*0.9) * 6

	h *= flatness

	if dist > mountainStart {
		rise := math.Min((dist-mountainStart)/mountainRamp, 1)
		h += rise * rise * mountainHeight
	}
	return float32(h)
}

// Generate fills every sample of h from ProceduralHeight.
func Generate(h *Heightmap, worldWidth, worldHeight float32) {
	last := float32(h.Resolution - 1)
	if last <= 0 {
		last = 1
	}
	for z := uint32(0); z < h.Resolution; z++ {
		for x := uint32(0); x < h.Resolution; x++ {
			wx := h.OriginX + float32(x)/last*h.WorldSize
			wz := h.OriginZ + float32(z)/last*h.WorldSize
			h.SetHeight(x, z, ProceduralHeight(wx, wz, worldWidth, worldHeight))
		}
	}
}

// NewProcedural builds the single chunk covering a world of the given size.
func NewProcedural(resolution uint32, worldWidth, worldHeight float32) *Heightmap {
	h := New(0, 0, resolution)
	size := worldWidth
	if worldHeight > size {
		size = worldHeight
	}
	if size > 0 {
		h.WorldSize = size
	}
	Generate(h, worldWidth, worldHeight)
	return h
}
