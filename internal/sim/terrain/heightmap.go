package terrain

import (
	"fmt"
	"math"

	"mmoarena.ai/internal/protocol"
)

const (
	DefaultResolution = 257
	DefaultWorldSize  = 8000.0
	MinHeight         = -500.0
	MaxHeight         = 500.0

	// MaxResolution bounds decoded chunks so a hostile header cannot force a
	// huge allocation.
	MaxResolution = 4096

	// HeaderSize is the serialized chunk header: chunk_x, chunk_z,
	// resolution, origin_x, origin_z, world_size.
	HeaderSize = 24
)

// QuantizationStep is the height represented by one 16-bit sample unit.
const QuantizationStep = (MaxHeight - MinHeight) / 65535.0

// Heightmap is one square chunk of 16-bit height samples. Samples are stored
// row-major with z as the outer index.
type Heightmap struct {
	ChunkX     int32
	ChunkZ     int32
	Resolution uint32
	OriginX    float32
	OriginZ    float32
	WorldSize  float32
	Samples    []uint16
}

// New allocates a chunk at grid position (cx, cz) covering DefaultWorldSize.
func New(cx, cz int32, resolution uint32) *Heightmap {
	if resolution == 0 {
		resolution = DefaultResolution
	}
	return &Heightmap{
		ChunkX:     cx,
		ChunkZ:     cz,
		Resolution: resolution,
		OriginX:    float32(cx) * DefaultWorldSize,
		OriginZ:    float32(cz) * DefaultWorldSize,
		WorldSize:  DefaultWorldSize,
		Samples:    make([]uint16, int(resolution)*int(resolution)),
	}
}

func quantize(h float32) uint16 {
	clamped := math.Max(MinHeight, math.Min(MaxHeight, float64(h)))
	n := (clamped - MinHeight) / (MaxHeight - MinHeight)
	return uint16(math.Round(n * 65535.0))
}

func dequantize(v uint16) float32 {
	return float32(float64(v)/65535.0*(MaxHeight-MinHeight) + MinHeight)
}

// SetHeight stores h at local sample coordinates. Out-of-range coordinates
// are ignored; heights outside [MinHeight, MaxHeight] are clamped.
func (h *Heightmap) SetHeight(lx, lz uint32, height float32) {
	if lx >= h.Resolution || lz >= h.Resolution {
		return
	}
	h.Samples[lz*h.Resolution+lx] = quantize(height)
}

// HeightLocal returns the stored height at local sample coordinates, or 0
// outside the chunk.
func (h *Heightmap) HeightLocal(lx, lz uint32) float32 {
	if lx >= h.Resolution || lz >= h.Resolution {
		return 0
	}
	return dequantize(h.Samples[lz*h.Resolution+lx])
}

// HeightAt bilinearly interpolates the four samples around a world position.
// Positions outside the chunk clamp to its edge.
func (h *Heightmap) HeightAt(x, z float32) float32 {
	if h == nil || h.Resolution == 0 || h.WorldSize <= 0 {
		return 0
	}
	u := clamp01((x - h.OriginX) / h.WorldSize)
	v := clamp01((z - h.OriginZ) / h.WorldSize)

	last := float32(h.Resolution - 1)
	tx := u * last
	tz := v * last
	x0 := uint32(tx)
	z0 := uint32(tz)
	x1 := min(x0+1, h.Resolution-1)
	z1 := min(z0+1, h.Resolution-1)
	fx := tx - float32(x0)
	fz := tz - float32(z0)

	h00 := h.HeightLocal(x0, z0)
	h10 := h.HeightLocal(x1, z0)
	h01 := h.HeightLocal(x0, z1)
	h11 := h.HeightLocal(x1, z1)

	h0 := h00*(1-fx) + h10*fx
	h1 := h01*(1-fx) + h11*fx
	return h0*(1-fz) + h1*fz
}

// TexelSize is the world distance between adjacent samples.
func (h *Heightmap) TexelSize() float32 {
	if h.Resolution < 2 {
		return h.WorldSize
	}
	return h.WorldSize / float32(h.Resolution-1)
}

// Normal estimates the surface normal with central differences.
func (h *Heightmap) Normal(x, z float32) (nx, ny, nz float32) {
	eps := h.TexelSize()
	hl := h.HeightAt(x-eps, z)
	hr := h.HeightAt(x+eps, z)
	hd := h.HeightAt(x, z-eps)
	hu := h.HeightAt(x, z+eps)

	nx = hl - hr
	ny = 2 * eps
	nz = hd - hu
	l := float32(math.Sqrt(float64(nx*nx + ny*ny + nz*nz)))
	if l <= 0.0001 {
		return 0, 1, 0
	}
	return nx / l, ny / l, nz / l
}

// MarshalBinary produces the HeightmapChunk payload.
func (h *Heightmap) MarshalBinary() ([]byte, error) {
	w := protocol.NewWriter(HeaderSize + len(h.Samples)*2)
	w.I32(h.ChunkX)
	w.I32(h.ChunkZ)
	w.U32(h.Resolution)
	w.F32(h.OriginX)
	w.F32(h.OriginZ)
	w.F32(h.WorldSize)
	for _, s := range h.Samples {
		w.U16(s)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary decodes a HeightmapChunk payload. It rejects resolutions of
// 0 or above MaxResolution and payloads shorter than the declared samples.
func (h *Heightmap) UnmarshalBinary(b []byte) error {
	r := protocol.NewReader(b)
	hm := Heightmap{
		ChunkX:     r.I32(),
		ChunkZ:     r.I32(),
		Resolution: r.U32(),
		OriginX:    r.F32(),
		OriginZ:    r.F32(),
		WorldSize:  r.F32(),
	}
	if err := r.Err(); err != nil {
		return err
	}
	if hm.Resolution == 0 || hm.Resolution > MaxResolution {
		return fmt.Errorf("%w: heightmap resolution %d", protocol.ErrMalformed, hm.Resolution)
	}
	n := int(hm.Resolution) * int(hm.Resolution)
	if r.Remaining() < n*2 {
		return fmt.Errorf("%w: heightmap needs %d sample bytes, have %d", protocol.ErrShortPayload, n*2, r.Remaining())
	}
	hm.Samples = make([]uint16, n)
	for i := range hm.Samples {
		hm.Samples[i] = r.U16()
	}
	*h = hm
	return nil
}

// EncodeChunk frames the heightmap as a HeightmapChunk message.
func (h *Heightmap) EncodeChunk() []byte {
	b, _ := h.MarshalBinary()
	return protocol.Frame(protocol.TypeHeightmapChunk, b)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
