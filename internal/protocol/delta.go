package protocol

import "fmt"

// EntityDelta is a sparse update. Only the groups whose bit is set in Flags
// are serialized, in a fixed order: position, velocity, health, attacking,
// attack direction, rotation.
type EntityDelta struct {
	ID    uint32
	Flags uint8

	X, Y, Z     float32
	VX, VY      float32
	Health      float32
	IsAttacking bool
	AttackDirX  float32
	AttackDirY  float32
	Rotation    float32
}

func (d *EntityDelta) Has(bit uint8) bool { return d.Flags&bit != 0 }

// Size is the encoded payload length for the current flag set.
func (d *EntityDelta) Size() int {
	n := 5
	if d.Has(DeltaPosition) {
		n += 12
	}
	if d.Has(DeltaVelocity) {
		n += 8
	}
	if d.Has(DeltaHealth) {
		n += 4
	}
	if d.Has(DeltaAttacking) {
		n++
	}
	if d.Has(DeltaAttackDir) {
		n += 8
	}
	if d.Has(DeltaRotation) {
		n += 4
	}
	return n
}

func (d *EntityDelta) AppendTo(w *Writer) {
	w.U32(d.ID)
	w.U8(d.Flags)
	if d.Has(DeltaPosition) {
		w.F32(d.X)
		w.F32(d.Y)
		w.F32(d.Z)
	}
	if d.Has(DeltaVelocity) {
		w.F32(d.VX)
		w.F32(d.VY)
	}
	if d.Has(DeltaHealth) {
		w.F32(d.Health)
	}
	if d.Has(DeltaAttacking) {
		w.Bool(d.IsAttacking)
	}
	if d.Has(DeltaAttackDir) {
		w.F32(d.AttackDirX)
		w.F32(d.AttackDirY)
	}
	if d.Has(DeltaRotation) {
		w.F32(d.Rotation)
	}
}

func (d *EntityDelta) Encode() []byte {
	w := NewWriter(d.Size())
	d.AppendTo(w)
	return Frame(TypeEntityUpdate, w.Bytes())
}

// DecodeEntityDelta rejects unknown flag bits and any payload that does not
// carry every group its flags announce.
func DecodeEntityDelta(payload []byte) (EntityDelta, error) {
	r := NewReader(payload)
	d := EntityDelta{ID: r.U32(), Flags: r.U8()}
	if err := r.Err(); err != nil {
		return EntityDelta{}, err
	}
	if d.Flags&^DeltaAll != 0 {
		return EntityDelta{}, fmt.Errorf("%w: unknown delta flags 0x%02x", ErrMalformed, d.Flags)
	}
	if d.Has(DeltaPosition) {
		d.X, d.Y, d.Z = r.F32(), r.F32(), r.F32()
	}
	if d.Has(DeltaVelocity) {
		d.VX, d.VY = r.F32(), r.F32()
	}
	if d.Has(DeltaHealth) {
		d.Health = r.F32()
	}
	if d.Has(DeltaAttacking) {
		d.IsAttacking = r.Bool()
	}
	if d.Has(DeltaAttackDir) {
		d.AttackDirX, d.AttackDirY = r.F32(), r.F32()
	}
	if d.Has(DeltaRotation) {
		d.Rotation = r.F32()
	}
	if err := r.Err(); err != nil {
		return EntityDelta{}, err
	}
	return d, nil
}

// Apply merges the groups present in d into s. Groups not flagged are left
// untouched.
func (d *EntityDelta) Apply(s *NetEntityState) {
	if d.Has(DeltaPosition) {
		s.X, s.Y, s.Z = d.X, d.Y, d.Z
	}
	if d.Has(DeltaVelocity) {
		s.VX, s.VY = d.VX, d.VY
	}
	if d.Has(DeltaHealth) {
		s.Health = d.Health
	}
	if d.Has(DeltaAttacking) {
		s.IsAttacking = d.IsAttacking
	}
	if d.Has(DeltaAttackDir) {
		s.AttackDirX, s.AttackDirY = d.AttackDirX, d.AttackDirY
	}
	if d.Has(DeltaRotation) {
		s.Rotation = d.Rotation
	}
}
